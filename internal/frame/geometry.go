package frame

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ivlev/photoframe/internal/errs"
)

// ErrZeroArea is the cause of a degenerate slot.
var ErrZeroArea = errors.New("slot resolves to zero width or height")

// PixelRect is a slot resolved against a concrete output size.
type PixelRect struct {
	X, Y, Width, Height int
}

// Image converts r to an image.Rectangle.
func (r PixelRect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Ratio is width/height.
func (r PixelRect) Ratio() float64 {
	return float64(r.Width) / float64(r.Height)
}

// AspectLabel returns the reduced ratio, e.g. "9:8" for 864x768.
func (r PixelRect) AspectLabel() string {
	g := gcd(r.Width, r.Height)
	if g == 0 {
		return "0:0"
	}
	return fmt.Sprintf("%d:%d", r.Width/g, r.Height/g)
}

// Resolve maps a normalized slot onto a w x h output. Coordinates are rounded
// half away from zero, so repeated calls are bit-identical. A rectangle with
// zero width or height is reported as a degenerate slot.
func Resolve(w, h int, s Slot) (PixelRect, error) {
	if w <= 0 || h <= 0 {
		return PixelRect{}, errs.New(errs.KindInvalidConfiguration, "resolve slot",
			fmt.Errorf("output size %dx%d", w, h))
	}

	r := PixelRect{
		X:      round(s.X * float64(w)),
		Y:      round(s.Y * float64(h)),
		Width:  round(s.Width * float64(w)),
		Height: round(s.Height * float64(h)),
	}
	// x+width <= 1 may still round one pixel past the edge.
	r.Width = min(r.Width, w-r.X)
	r.Height = min(r.Height, h-r.Y)

	if r.Width <= 0 || r.Height <= 0 {
		return r, errs.New(errs.KindDegenerateSlot, "resolve slot", ErrZeroArea)
	}
	return r, nil
}

// Resolve resolves slot i against the template's output size.
func (t *Template) Resolve(i int) (PixelRect, error) {
	if i < 0 || i >= len(t.Slots) {
		return PixelRect{}, errs.ForSlot(errs.KindDegenerateSlot, "resolve slot", i,
			fmt.Errorf("template %q has %d slots", t.ID, len(t.Slots)))
	}
	r, err := Resolve(t.Width, t.Height, t.Slots[i])
	var e *errs.Error
	if errors.As(err, &e) {
		e.Slot = i
	}
	return r, err
}

// SlotRatio is the pixel aspect ratio of slot s at w x h, the target ratio
// for cropping a photo into it.
func SlotRatio(w, h int, s Slot) (float64, error) {
	r, err := Resolve(w, h, s)
	if err != nil {
		return 0, err
	}
	return r.Ratio(), nil
}

func round(v float64) int {
	return int(math.Round(v))
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
