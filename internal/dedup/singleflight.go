package dedup

import (
	"context"
	"sync"

	"medfetch/internal/types"
)

// Flight coalesces concurrent metadata fetches for the same URL. A
// burst of identical extract requests costs one extractor invocation;
// every waiter gets the same result.
type Flight struct {
	mu    sync.Mutex
	calls map[string]*call
}

// call is an in-flight metadata fetch
type call struct {
	wg       sync.WaitGroup
	metadata *types.MediaMetadata
	err      error
}

// NewFlight creates a coalescing group
func NewFlight() *Flight {
	return &Flight{
		calls: make(map[string]*call),
	}
}

// Do runs fn once per key at a time. Duplicate callers wait for the
// original and share its result; shared reports whether this caller
// rode along. A cancelled waiter returns its context error without
// cancelling the underlying fetch, other waiters may still want it.
func (f *Flight) Do(ctx context.Context, key string, fn func() (*types.MediaMetadata, error)) (metadata *types.MediaMetadata, shared bool, err error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	f.mu.Lock()

	if c, ok := f.calls[key]; ok {
		f.mu.Unlock()

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			return c.metadata, true, c.err
		case <-ctx.Done():
			return nil, true, ctx.Err()
		}
	}

	c := &call{}
	c.wg.Add(1)
	f.calls[key] = c
	f.mu.Unlock()

	resultCh := make(chan struct{})
	go func() {
		c.metadata, c.err = fn()
		c.wg.Done()
		close(resultCh)
	}()

	select {
	case <-resultCh:
		f.mu.Lock()
		delete(f.calls, key)
		f.mu.Unlock()
		return c.metadata, false, c.err
	case <-ctx.Done():
		// Leave the entry for whoever is still waiting; the fetch
		// goroutine clears it when it finishes.
		go func() {
			<-resultCh
			f.Forget(key)
		}()
		return nil, false, ctx.Err()
	}
}

// Forget removes a key, forcing the next caller to fetch fresh
func (f *Flight) Forget(key string) {
	f.mu.Lock()
	delete(f.calls, key)
	f.mu.Unlock()
}

// InFlight reports how many fetches are currently running
func (f *Flight) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
