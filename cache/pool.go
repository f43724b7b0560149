// Package cache pools the mutable packet buffers header views are built on.
package cache

import (
	"sync"
)

func AlignUp(x int) int {
	return (x + 3) &^ 3
}

// MaxBytesSize fits the largest IPv4 datagram plus link layer framing.
const MaxBytesSize = 65536

// DefaultBytesSize fits a standard ethernet frame.
const DefaultBytesSize = 2048

type BytesPool struct {
	size int
	pool sync.Pool
}

func NewBytesPool(size int) *BytesPool {
	if size <= 0 {
		size = DefaultBytesSize
	} else {
		size = AlignUp(size)

		if size > MaxBytesSize {
			size = MaxBytesSize
		}
	}

	return &BytesPool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				return make([]byte, size)
			},
		},
	}
}

func (pool *BytesPool) Size() int {
	return pool.size
}

// GetSlice returns a zeroed slice of exactly Size bytes.
func (pool *BytesPool) GetSlice() []byte {
	bytes := pool.pool.Get().([]byte)
	clear(bytes)

	return bytes
}

// Copy returns a pooled copy of data, or a fresh slice if data does not fit.
func (pool *BytesPool) Copy(data []byte) []byte {
	if len(data) > pool.size {
		return append([]byte(nil), data...)
	}

	bytes := pool.GetSlice()
	copy(bytes, data)

	return bytes[:len(data)]
}

func (pool *BytesPool) PutSlice(data []byte) {
	if cap(data) < pool.size {
		return
	}

	pool.pool.Put(data[:pool.size])
}
