//go:build windows

package mmap

import "os"

const supported = false

func mmap(f *os.File, size int) ([]byte, error) {
	return nil, ErrUnsupported
}

func munmap(data []byte) error {
	return ErrUnsupported
}
