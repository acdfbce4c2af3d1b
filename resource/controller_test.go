package resource

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController(t *testing.T) {
	t.Run("background slots are bounded", func(t *testing.T) {
		c := NewController(Config{MaxBackgroundWorkers: 2})

		require.NoError(t, c.AcquireBackground(context.Background()))
		require.NoError(t, c.AcquireBackground(context.Background()))
		assert.False(t, c.TryAcquireBackground())

		c.ReleaseBackground()
		assert.True(t, c.TryAcquireBackground())

		c.ReleaseBackground()
		c.ReleaseBackground()
	})

	t.Run("zero workers defaults to one", func(t *testing.T) {
		c := NewController(Config{})

		require.True(t, c.TryAcquireBackground())
		assert.False(t, c.TryAcquireBackground())
		c.ReleaseBackground()
	})

	t.Run("unlimited io never blocks", func(t *testing.T) {
		c := NewController(Config{})
		assert.NoError(t, c.AcquireIO(context.Background(), 1<<30))
	})

	t.Run("nil controller is a no-op", func(t *testing.T) {
		var c *Controller
		assert.NoError(t, c.AcquireBackground(context.Background()))
		assert.NoError(t, c.AcquireIO(context.Background(), 1024))
		c.ReleaseBackground()
	})
}

func TestRateLimitedIO(t *testing.T) {
	// A generous limit so the test never actually waits.
	c := NewController(Config{IOLimitBytesPerSec: 1 << 30})

	t.Run("writer passes data through", func(t *testing.T) {
		var buf bytes.Buffer
		w := NewRateLimitedWriter(&buf, c, context.Background())

		n, err := w.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "hello", buf.String())
	})

	t.Run("reader passes data through", func(t *testing.T) {
		r := NewRateLimitedReader(bytes.NewReader([]byte("world")), c, context.Background())

		buf := make([]byte, 5)
		n, err := r.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "world", string(buf))
	})

	t.Run("canceled context aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		limited := NewController(Config{IOLimitBytesPerSec: 1})
		w := NewRateLimitedWriter(&bytes.Buffer{}, limited, ctx)

		_, err := w.Write([]byte("x"))
		require.Error(t, err)
	})
}
