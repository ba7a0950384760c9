package pool

import "testing"

func TestBufferPoolGet(t *testing.T) {
	p := NewBufferPool(1024)

	buf := p.Get()
	if len(buf) != 1024 {
		t.Errorf("len = %d, want 1024", len(buf))
	}
	if cap(buf) != 1024 {
		t.Errorf("cap = %d, want 1024", cap(buf))
	}
}

func TestBufferPoolRoundTrip(t *testing.T) {
	p := NewBufferPool(64)

	buf := p.Get()
	buf[0] = 0xFF
	p.Put(buf)

	again := p.Get()
	if len(again) != 64 {
		t.Errorf("len after reuse = %d, want 64", len(again))
	}
}

func TestBufferPoolRejectsForeignSizes(t *testing.T) {
	p := NewBufferPool(64)

	// A scanner that outgrew the buffer returns something bigger;
	// Put must drop it rather than poison the pool.
	p.Put(make([]byte, 4096))
	p.Put(make([]byte, 8))

	buf := p.Get()
	if len(buf) != 64 || cap(buf) != 64 {
		t.Errorf("got len=%d cap=%d, want 64/64", len(buf), cap(buf))
	}
}

func TestBufferPoolPutResetsLength(t *testing.T) {
	p := NewBufferPool(64)

	buf := p.Get()
	p.Put(buf[:10])

	again := p.Get()
	if len(again) != 64 {
		t.Errorf("len = %d, want the full size back", len(again))
	}
}

func TestScanBuffersDefaultSize(t *testing.T) {
	buf := ScanBuffers.Get()
	defer ScanBuffers.Put(buf)
	if len(buf) != 64*1024 {
		t.Errorf("len = %d, want 64KB", len(buf))
	}
}
