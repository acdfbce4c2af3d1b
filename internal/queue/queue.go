// Package queue provides the bounded top-k selection heap used by the
// exact distance refiner.
package queue

// Item is a candidate in the selection heap.
type Item struct {
	ID       uint32
	Distance float32
}

// worse reports whether a should be evicted before b: larger distance
// first, ties broken by larger ID so equal distances rank by ascending ID.
func worse(a, b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.ID > b.ID
}

// TopK keeps the k smallest (distance, id) pairs seen so far.
// It is a max-heap on (distance, id): the root is the current worst kept
// candidate and is evicted first.
type TopK struct {
	k     int
	items []Item
}

// NewTopK creates a selection heap holding at most k items. k must be > 0.
func NewTopK(k int) *TopK {
	return &TopK{k: k, items: make([]Item, 0, k)}
}

// Len returns the number of kept items.
func (t *TopK) Len() int { return len(t.items) }

// Offer considers a candidate, keeping it only if it ranks among the k
// smallest offered so far.
func (t *TopK) Offer(item Item) {
	if len(t.items) < t.k {
		t.items = append(t.items, item)
		t.siftUp(len(t.items) - 1)
		return
	}
	if !worse(t.items[0], item) {
		return
	}
	t.items[0] = item
	t.siftDown(0)
}

// Drain empties the heap into a slice ordered by ascending (distance, id).
func (t *TopK) Drain() []Item {
	out := make([]Item, len(t.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = t.pop()
	}
	return out
}

func (t *TopK) pop() Item {
	n := len(t.items)
	root := t.items[0]
	t.items[0] = t.items[n-1]
	t.items = t.items[:n-1]
	if len(t.items) > 0 {
		t.siftDown(0)
	}
	return root
}

func (t *TopK) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !worse(t.items[i], t.items[p]) {
			return
		}
		t.items[i], t.items[p] = t.items[p], t.items[i]
		i = p
	}
}

func (t *TopK) siftDown(i int) {
	n := len(t.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		next := l
		if r := l + 1; r < n && worse(t.items[r], t.items[l]) {
			next = r
		}
		if !worse(t.items[next], t.items[i]) {
			return
		}
		t.items[i], t.items[next] = t.items[next], t.items[i]
		i = next
	}
}
