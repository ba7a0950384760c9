package pool

import "sync"

// BufferPool reuses fixed-size byte slices across yt-dlp invocations.
// Every run hands two initial buffers to bufio.Scanner; pooling them
// keeps steady download traffic from churning the allocator.
type BufferPool struct {
	pool sync.Pool
	size int
}

// NewBufferPool creates a pool of size-byte slices
func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		size: size,
		pool: sync.Pool{
			New: func() interface{} {
				slice := make([]byte, size)
				return &slice
			},
		},
	}
}

// Get retrieves a slice from the pool
func (p *BufferPool) Get() []byte {
	slicePtr := p.pool.Get().(*[]byte)
	return (*slicePtr)[:p.size]
}

// Put returns a slice to the pool. Slices the scanner outgrew and
// replaced internally still come back at their original size; anything
// else is left to the GC.
func (p *BufferPool) Put(slice []byte) {
	if cap(slice) != p.size {
		return
	}
	slice = slice[:p.size]
	p.pool.Put(&slice)
}

// ScanBuffers holds the initial 64KB buffers for process pipe scanners
var ScanBuffers = NewBufferPool(64 * 1024)
