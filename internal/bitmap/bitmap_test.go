package bitmap

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/photoframe/internal/errs"
	"github.com/ivlev/photoframe/internal/source"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestBudget(t *testing.T) {
	b := NewBudget(100)
	ctx := context.Background()

	err := b.Acquire(ctx, 101)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.ErrorIs(t, err, errs.ErrOutOfMemory)
	assert.Equal(t, errs.ClassOutOfMemory, errs.Classify(err))

	require.NoError(t, b.Acquire(ctx, 60))

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Acquire(waitCtx, 60), context.DeadlineExceeded)

	b.Release(60)
	require.NoError(t, b.Acquire(ctx, 100))
	b.Release(100)

	var unlimited *Budget
	assert.NoError(t, unlimited.Acquire(ctx, 1<<40))
	assert.Zero(t, unlimited.Total())
}

func TestLease(t *testing.T) {
	b := NewBudget(100)
	ctx := context.Background()

	l, err := b.Lease(ctx, 500)
	require.NoError(t, err)
	assert.EqualValues(t, 100, l.Size())

	require.NoError(t, l.Acquire(70))
	err = l.Acquire(40)
	assert.ErrorIs(t, err, ErrLeaseExceeded)
	assert.Equal(t, errs.ClassOutOfMemory, errs.Classify(err))
	l.Release(70)
	require.NoError(t, l.Acquire(100))

	// The whole budget sits in the lease until it is closed.
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Acquire(waitCtx, 1), context.DeadlineExceeded)

	l.Close()
	l.Close()
	assert.ErrorIs(t, l.Acquire(1), ErrLeaseExceeded)
	require.NoError(t, b.Acquire(ctx, 100))
	b.Release(100)

	var unlimited *Budget
	nl, err := unlimited.Lease(ctx, 1<<40)
	require.NoError(t, err)
	assert.NoError(t, nl.Acquire(1<<40))
	nl.Close()
}

func TestLoadInNeverWaits(t *testing.T) {
	src := source.NewMemorySource()
	src.Put("photo", solid(50, 50, color.RGBA{R: 9, A: 255}))
	budget := NewBudget(2*Cost(50, 50) + 100)
	l := NewLoader(src, budget, nil, 0, zerolog.Nop())
	ctx := context.Background()

	peak := l.PeakCost(ctx, "photo", "missing")
	assert.Equal(t, 2*Cost(50, 50), peak)

	lease, err := budget.Lease(ctx, peak+200)
	require.NoError(t, err)
	require.NoError(t, lease.Acquire(200))

	_, err = l.LoadIn(ctx, lease, "photo")
	assert.ErrorIs(t, err, errs.ErrPhotoDecodeFailure)
	assert.ErrorIs(t, err, ErrLeaseExceeded)
	assert.Equal(t, errs.ClassOutOfMemory, errs.ClassOf(err))

	lease.Release(200)
	bm, err := l.LoadIn(ctx, lease, "photo")
	require.NoError(t, err)
	assert.Error(t, lease.Acquire(Cost(50, 50)+101))
	bm.Release()
	require.NoError(t, lease.Acquire(lease.Size()))
	lease.Close()

	require.NoError(t, budget.Acquire(ctx, budget.Total()))
}

func TestCheckOutput(t *testing.T) {
	assert.NoError(t, CheckOutput(1080, 1920, 64_000_000))
	assert.ErrorIs(t, CheckOutput(100_000, 100_000, 64_000_000), ErrTooLarge)
	assert.Error(t, CheckOutput(0, 10, 0))
}

func TestPoolClearsReusedBuffers(t *testing.T) {
	p := NewPool()
	r := image.Rect(0, 0, 4, 4)

	img := p.Get(r)
	img.Pix[0] = 0xff
	p.Put(img)

	again := p.Get(r)
	assert.Equal(t, r, again.Rect)
	assert.Zero(t, again.Pix[0])
}

func TestLoaderDownsamples(t *testing.T) {
	src := source.NewMemorySource()
	src.Put("wide", solid(100, 50, color.RGBA{R: 200, A: 255}))
	budget := NewBudget(Cost(100, 50) + Cost(40, 20))
	l := NewLoader(src, budget, nil, 40, zerolog.Nop())

	bm, err := l.Load(context.Background(), "wide")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 20), bm.Image.Bounds())
	assert.Equal(t, image.Pt(100, 50), bm.Original)
	assert.InDelta(t, 0.4, bm.Scale, 1e-12)
	assert.InDelta(t, 200, int(bm.Image.RGBAAt(20, 10).R), 2)

	bm.Release()
	bm.Release()
	assert.Nil(t, bm.Image)

	// Everything is back in the budget.
	require.NoError(t, budget.Acquire(context.Background(), budget.Total()))
}

func TestLoaderKeepsSmallPhotos(t *testing.T) {
	src := source.NewMemorySource()
	src.Put("small", solid(30, 20, color.RGBA{G: 10, A: 255}))
	l := NewLoader(src, nil, NewPool(), 4096, zerolog.Nop())

	bm, err := l.Load(context.Background(), "small")
	require.NoError(t, err)
	defer bm.Release()
	assert.Equal(t, image.Pt(30, 20), bm.Image.Bounds().Size())
	assert.InDelta(t, 1.0, bm.Scale, 0)
}

func TestLoaderFailures(t *testing.T) {
	src := source.NewMemorySource()
	src.PutBytes("corrupt", []byte("garbage"))
	src.Put("huge", solid(64, 64, color.RGBA{A: 255}))
	budget := NewBudget(1024)
	l := NewLoader(src, budget, nil, 0, zerolog.Nop())
	ctx := context.Background()

	_, err := l.Load(ctx, "corrupt")
	assert.ErrorIs(t, err, errs.ErrPhotoDecodeFailure)
	assert.Equal(t, errs.ClassCodec, errs.ClassOf(err))

	_, err = l.Load(ctx, "missing")
	assert.ErrorIs(t, err, errs.ErrPhotoDecodeFailure)
	assert.Equal(t, errs.ClassIO, errs.ClassOf(err))

	_, err = l.Load(ctx, "huge")
	assert.ErrorIs(t, err, errs.ErrPhotoDecodeFailure)
	assert.Equal(t, errs.ClassOutOfMemory, errs.ClassOf(err))

	require.NoError(t, budget.Acquire(ctx, budget.Total()))
}

func TestLetterbox(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 100, 100))
	Letterbox(dst, solid(200, 100, color.RGBA{B: 255, A: 255}), color.RGBA{R: 255, A: 255})

	assert.Equal(t, color.RGBA{R: 255, A: 255}, dst.RGBAAt(50, 10))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, dst.RGBAAt(50, 90))
	mid := dst.RGBAAt(50, 50)
	assert.InDelta(t, 255, int(mid.B), 2)
	assert.InDelta(t, 0, int(mid.R), 2)
}

func TestFitRect(t *testing.T) {
	assert.Equal(t, image.Rect(0, 25, 100, 75), FitRect(image.Pt(200, 100), image.Rect(0, 0, 100, 100)))
	assert.Equal(t, image.Rect(25, 0, 75, 100), FitRect(image.Pt(50, 100), image.Rect(0, 0, 100, 100)))
	assert.True(t, FitRect(image.Pt(0, 10), image.Rect(0, 0, 10, 10)).Empty())
}
