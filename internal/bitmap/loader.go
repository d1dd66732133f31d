package bitmap

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ivlev/photoframe/internal/errs"
	"github.com/ivlev/photoframe/internal/source"
)

// Bitmap is a decoded photo held at working resolution.
type Bitmap struct {
	Image    *image.RGBA
	Original image.Point // full-resolution size
	Scale    float64     // Image size / Original

	once    sync.Once
	release func()
}

// Release returns the buffer and its budget. It is safe to call more than
// once; the image must not be used afterwards.
func (b *Bitmap) Release() {
	if b == nil {
		return
	}
	b.once.Do(func() {
		if b.release != nil {
			b.release()
		}
		b.Image = nil
	})
}

// Loader decodes photos within a memory budget, downsampling anything whose
// longer side exceeds MaxSide.
type Loader struct {
	src     source.Source
	budget  *Budget
	pool    *Pool
	maxSide int
	log     zerolog.Logger
}

func NewLoader(src source.Source, budget *Budget, pool *Pool, maxSide int, log zerolog.Logger) *Loader {
	if pool == nil {
		pool = NewPool()
	}
	return &Loader{
		src:     src,
		budget:  budget,
		pool:    pool,
		maxSide: maxSide,
		log:     log.With().Str("component", "bitmap").Logger(),
	}
}

// Pool is the buffer pool shared with callers that letterbox or compose.
func (l *Loader) Pool() *Pool { return l.pool }

// Budget is the memory budget the loader draws from.
func (l *Loader) Budget() *Budget { return l.budget }

// WorkingSize is the size a w x h photo is held at.
func (l *Loader) WorkingSize(w, h int) image.Point {
	if l.maxSide <= 0 || max(w, h) <= l.maxSide {
		return image.Pt(w, h)
	}
	s := float64(l.maxSide) / float64(max(w, h))
	return image.Pt(
		max(1, int(math.Round(float64(w)*s))),
		max(1, int(math.Round(float64(h)*s))),
	)
}

// PeakCost is the most budget any single Load of refs holds at once: the
// full-resolution decode plus its working buffer. Refs whose size cannot be
// read are skipped; loading them fails anyway.
func (l *Loader) PeakCost(ctx context.Context, refs ...source.Ref) int64 {
	var peak int64
	for _, ref := range refs {
		dims, err := l.src.Dimensions(ctx, ref)
		if err != nil || dims.X <= 0 || dims.Y <= 0 {
			continue
		}
		work := l.WorkingSize(dims.X, dims.Y)
		peak = max(peak, Cost(dims.X, dims.Y)+Cost(work.X, work.Y))
	}
	return peak
}

// account is where a load takes its bytes from.
type account interface {
	take(ctx context.Context, n int64) error
	give(n int64)
}

type budgetAccount struct{ b *Budget }

func (a budgetAccount) take(ctx context.Context, n int64) error { return a.b.Acquire(ctx, n) }
func (a budgetAccount) give(n int64) { a.b.Release(n) }

type leaseAccount struct{ l *Lease }

func (a leaseAccount) take(_ context.Context, n int64) error { return a.l.Acquire(n) }
func (a leaseAccount) give(n int64) { a.l.Release(n) }

// Load decodes ref, waiting on the shared budget for its bytes. Callers
// that already hold budget must use LoadIn instead.
func (l *Loader) Load(ctx context.Context, ref source.Ref) (*Bitmap, error) {
	return l.load(ctx, budgetAccount{l.budget}, ref)
}

// LoadIn decodes ref with bytes from lease and never waits on the budget.
// A photo that does not fit what is left of the lease fails with
// ErrLeaseExceeded.
func (l *Loader) LoadIn(ctx context.Context, lease *Lease, ref source.Ref) (*Bitmap, error) {
	return l.load(ctx, leaseAccount{lease}, ref)
}

// load holds the full-resolution decode only while it is resampled into a
// pooled working buffer. Every failure is a PhotoDecodeFailure whose class
// tells I/O, codec and memory apart.
func (l *Loader) load(ctx context.Context, acct account, ref source.Ref) (*Bitmap, error) {
	op := fmt.Sprintf("load %s", ref)

	dims, err := l.src.Dimensions(ctx, ref)
	if err != nil {
		return nil, errs.New(errs.KindPhotoDecodeFailure, op, err)
	}
	if dims.X <= 0 || dims.Y <= 0 {
		return nil, errs.New(errs.KindPhotoDecodeFailure, op, fmt.Errorf("empty image %v", dims))
	}

	work := l.WorkingSize(dims.X, dims.Y)
	keep := Cost(work.X, work.Y)
	held := Cost(dims.X, dims.Y) + keep
	if err := acct.take(ctx, held); err != nil {
		return nil, errs.New(errs.KindPhotoDecodeFailure, op, err)
	}
	defer func() { acct.give(held - keep) }()

	img, err := l.src.Decode(ctx, ref)
	if err != nil {
		acct.give(keep)
		return nil, errs.New(errs.KindPhotoDecodeFailure, op, err)
	}

	orig := img.Bounds().Size()
	work = l.WorkingSize(orig.X, orig.Y)
	dst := l.pool.Get(image.Rect(0, 0, work.X, work.Y))
	if work == orig {
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
	} else {
		Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src)
		l.log.Debug().Str("ref", string(ref)).
			Str("from", orig.String()).Str("to", work.String()).
			Msg("downsampled")
	}

	return &Bitmap{
		Image:    dst,
		Original: orig,
		Scale:    float64(work.X) / float64(orig.X),
		release: func() {
			l.pool.Put(dst)
			acct.give(keep)
		},
	}, nil
}
