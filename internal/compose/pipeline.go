// Package compose renders a frame template and its assigned photos into a
// single still image.
package compose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/rs/zerolog"

	"github.com/ivlev/photoframe/internal/bitmap"
	"github.com/ivlev/photoframe/internal/crop"
	"github.com/ivlev/photoframe/internal/errs"
	"github.com/ivlev/photoframe/internal/frame"
	"github.com/ivlev/photoframe/internal/logx"
	"github.com/ivlev/photoframe/internal/source"
)

// Assignment places a photo in a slot. Crop is in the photo's full-resolution
// pixel space; nil means the default centered crop.
type Assignment struct {
	Slot int
	Ref  source.Ref
	Crop *crop.Rect
}

// Pipeline composes templates. It keeps no state between calls and may be
// used from several goroutines.
type Pipeline struct {
	loader    *bitmap.Loader
	maxPixels int64
	log       zerolog.Logger
}

func NewPipeline(loader *bitmap.Loader, maxPixels int64, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		loader:    loader,
		maxPixels: maxPixels,
		log:       logx.Component(log, "compose"),
	}
}

// Compose renders tmpl with the given assignments: background, then photos in
// slot order, then the overlay. Photos that cannot be loaded leave their slot
// showing the background and are reported as warnings. Only an output buffer
// that cannot be allocated, an invalid template, or cancellation fail the call.
func (p *Pipeline) Compose(ctx context.Context, tmpl *frame.Template, assignments []Assignment) (*Result, error) {
	tmpl, err := frame.Checked(tmpl)
	if err != nil {
		return nil, err
	}
	log := logx.FromCtx(ctx, p.log).With().Str("template", tmpl.ID).Logger()

	out, lease, err := p.allocate(ctx, tmpl, assignments)
	if err != nil {
		return nil, err
	}
	defer lease.Close()

	res := &Result{Image: out}
	res.Warnings = append(res.Warnings, p.drawBackground(ctx, lease, out, tmpl)...)

	bySlot := make(map[int]Assignment, len(assignments))
	for _, a := range assignments {
		if a.Slot < 0 || a.Slot >= len(tmpl.Slots) {
			err := errs.ForSlot(errs.KindDegenerateSlot, "assign", a.Slot,
				fmt.Errorf("template %q has %d slots", tmpl.ID, len(tmpl.Slots)))
			log.Warn().Err(err).Str("ref", string(a.Ref)).Msg("assignment ignored")
			res.Warnings = append(res.Warnings, errs.SlotWarning{Slot: a.Slot, Ref: string(a.Ref), Err: err})
			continue
		}
		if prev, ok := bySlot[a.Slot]; ok {
			log.Debug().Int("slot", a.Slot).Str("replaced", string(prev.Ref)).Str("ref", string(a.Ref)).Msg("slot reassigned")
		}
		bySlot[a.Slot] = a
	}

	for i := range tmpl.Slots {
		if err := ctx.Err(); err != nil {
			return nil, errs.New(errs.KindCancelled, "compose", err)
		}
		a, ok := bySlot[i]
		if !ok {
			continue
		}

		rect, err := tmpl.Resolve(i)
		if err == nil {
			err = p.drawPhoto(ctx, lease, out, rect, a)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, errs.New(errs.KindCancelled, "compose", ctx.Err())
			}
			var e *errs.Error
			if errors.As(err, &e) {
				e.Slot = i
			}
			log.Warn().Err(err).Int("slot", i).Str("ref", string(a.Ref)).Msg("slot left unfilled")
			res.Warnings = append(res.Warnings, errs.SlotWarning{Slot: i, Ref: string(a.Ref), Err: err})
			continue
		}
		res.Filled = append(res.Filled, i)
	}

	res.Warnings = append(res.Warnings, p.drawOverlay(ctx, lease, out, tmpl)...)
	if err := ctx.Err(); err != nil {
		return nil, errs.New(errs.KindCancelled, "compose", err)
	}

	log.Debug().Ints("filled", res.Filled).Int("warnings", len(res.Warnings)).Msg("composed")
	return res, nil
}

// allocate leases enough budget for the output buffer plus the largest
// single load of this composition, then takes the output's share. Every
// load draws on the lease, so a composition never waits on the budget
// while holding part of it. The lease is held only while composing; the
// buffer itself is handed to the caller.
func (p *Pipeline) allocate(ctx context.Context, tmpl *frame.Template, assignments []Assignment) (*image.RGBA, *bitmap.Lease, error) {
	w, h := tmpl.Width, tmpl.Height
	if err := bitmap.CheckOutput(w, h, p.maxPixels); err != nil {
		return nil, nil, errs.New(errs.KindOutputAllocationFailure, "allocate output", err)
	}

	refs := make([]source.Ref, 0, len(assignments)+2)
	for _, a := range assignments {
		refs = append(refs, a.Ref)
	}
	for _, layer := range []string{tmpl.Background.Image, tmpl.Overlay} {
		if layer != "" {
			refs = append(refs, source.Ref(layer))
		}
	}
	cost := bitmap.Cost(w, h)
	lease, err := p.loader.Budget().Lease(ctx, cost+p.loader.PeakCost(ctx, refs...))
	if err != nil {
		return nil, nil, errs.New(errs.KindCancelled, "allocate output", err)
	}
	if err := lease.Acquire(cost); err != nil {
		lease.Close()
		return nil, nil, errs.New(errs.KindOutputAllocationFailure, "allocate output", err)
	}
	return image.NewRGBA(image.Rect(0, 0, w, h)), lease, nil
}

// drawPhoto samples the crop of a photo and scales it into rect. The decoded
// buffer is released before returning.
func (p *Pipeline) drawPhoto(ctx context.Context, lease *bitmap.Lease, out *image.RGBA, rect frame.PixelRect, a Assignment) error {
	bm, err := p.loader.LoadIn(ctx, lease, a.Ref)
	if err != nil {
		return err
	}
	defer bm.Release()

	orig := crop.Size{Width: bm.Original.X, Height: bm.Original.Y}
	var c crop.Rect
	if a.Crop != nil {
		c, err = crop.Commit(orig, rect.Ratio(), *a.Crop)
	} else {
		c, err = crop.Fit(orig, rect.Ratio())
	}
	if err != nil {
		return err
	}

	sr := c.Scale(bm.Scale).Image().Intersect(bm.Image.Bounds())
	if sr.Empty() {
		return errs.New(errs.KindPhotoDecodeFailure, "crop "+string(a.Ref), fmt.Errorf("empty crop %v", c))
	}
	bitmap.Scale(out, rect.Image(), bm.Image, sr, draw.Over)
	return nil
}
