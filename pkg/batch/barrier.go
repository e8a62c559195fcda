package batch

import (
	"context"
	"fmt"
	"sync/atomic"
)

// Barrier is a countdown latch. Done may be called from many goroutines; Wait blocks until
// the count reaches zero.
type Barrier struct {
	remaining atomic.Int64
	released  chan struct{}
}

// NewBarrier creates a barrier expecting n Done calls. A barrier with n <= 0 is already released.
func NewBarrier(n int) *Barrier {
	b := &Barrier{released: make(chan struct{})}
	b.remaining.Store(int64(n))

	if n <= 0 {
		close(b.released)
	}

	return b
}

// Done decrements the count. The call that reaches zero releases waiters; calls past zero
// are ignored.
func (b *Barrier) Done() {
	if b.remaining.Add(-1) == 0 {
		close(b.released)
	}
}

// Wait blocks until the count reaches zero or ctx is done.
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.released:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %d groups: %w", b.Remaining(), ctx.Err())
	}
}

// Remaining returns the number of outstanding Done calls.
func (b *Barrier) Remaining() int64 {
	return max(b.remaining.Load(), 0)
}
