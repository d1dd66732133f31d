// Package bitmap manages decoded photo buffers: a byte budget shared by all
// in-flight jobs, capped working resolution, and buffer reuse.
package bitmap

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/ivlev/photoframe/internal/errs"
	"github.com/ivlev/photoframe/internal/system"
)

// ErrTooLarge means a single request can never fit the budget.
var ErrTooLarge = fmt.Errorf("%w: request larger than the whole budget", errs.ErrOutOfMemory)

const fallbackBudget = 1 << 30

// Budget bounds the bytes of pixel memory held at once. A nil *Budget is
// unlimited.
type Budget struct {
	sem   *semaphore.Weighted
	total int64
}

func NewBudget(total int64) *Budget {
	return &Budget{sem: semaphore.NewWeighted(total), total: total}
}

// SystemBudget sizes a budget to half the currently available memory.
func SystemBudget(log zerolog.Logger) *Budget {
	avail, err := system.AvailableMemory()
	if err != nil || avail == 0 {
		log.Warn().Err(err).Int64("bytes", fallbackBudget).Msg("available memory unknown, using fallback budget")
		return NewBudget(fallbackBudget)
	}
	return NewBudget(int64(avail / 2))
}

// Acquire blocks until n bytes are free or ctx is done. Requests larger
// than the whole budget fail immediately with ErrTooLarge.
func (b *Budget) Acquire(ctx context.Context, n int64) error {
	if b == nil || n <= 0 {
		return nil
	}
	if n > b.total {
		return fmt.Errorf("%w (%d > %d bytes)", ErrTooLarge, n, b.total)
	}
	return b.sem.Acquire(ctx, n)
}

func (b *Budget) Release(n int64) {
	if b == nil || n <= 0 {
		return
	}
	b.sem.Release(n)
}

// Total is the budget size in bytes, 0 for an unlimited budget.
func (b *Budget) Total() int64 {
	if b == nil {
		return 0
	}
	return b.total
}

// Cost is the RGBA footprint of a w x h buffer.
func Cost(w, h int) int64 {
	return int64(w) * int64(h) * 4
}

// CheckOutput rejects output buffers that are empty or above maxPixels.
func CheckOutput(w, h int, maxPixels int64) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("output size %dx%d", w, h)
	}
	if maxPixels > 0 && int64(w)*int64(h) > maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, w, h, maxPixels)
	}
	return nil
}

// ErrLeaseExceeded means a call asked for more than its lease holds.
var ErrLeaseExceeded = fmt.Errorf("%w: request larger than the call's lease", errs.ErrOutOfMemory)

// Lease is one call's share of a Budget, taken in a single Acquire so a
// call never waits on the budget while it already holds part of it.
// Acquire and Release on a lease never block. A nil *Lease is unlimited.
type Lease struct {
	budget *Budget

	mu     sync.Mutex
	size   int64
	used   int64
	closed bool
}

// Lease reserves up to n bytes for one call, trimmed to the whole budget.
// The caller must Close it.
func (b *Budget) Lease(ctx context.Context, n int64) (*Lease, error) {
	if b == nil {
		return nil, nil
	}
	n = min(max(n, 0), b.total)
	if err := b.sem.Acquire(ctx, n); err != nil {
		return nil, err
	}
	return &Lease{budget: b, size: n}, nil
}

// Acquire takes n bytes from the lease, failing with ErrLeaseExceeded
// when they are not left.
func (l *Lease) Acquire(n int64) error {
	if l == nil || n <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("%w: lease closed", ErrLeaseExceeded)
	}
	if l.used+n > l.size {
		return fmt.Errorf("%w (%d bytes wanted, %d of %d free)", ErrLeaseExceeded, n, l.size-l.used, l.size)
	}
	l.used += n
	return nil
}

func (l *Lease) Release(n int64) {
	if l == nil || n <= 0 {
		return
	}
	l.mu.Lock()
	l.used = max(l.used-n, 0)
	l.mu.Unlock()
}

// Size is the number of bytes the lease holds from its budget.
func (l *Lease) Size() int64 {
	if l == nil {
		return 0
	}
	return l.size
}

// Close returns the whole lease to the budget. Later calls do nothing.
func (l *Lease) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.budget.Release(l.size)
}
