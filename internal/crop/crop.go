// Package crop keeps a crop rectangle locked to a target aspect ratio and
// inside the bounds of a source image. All coordinates are image pixels.
package crop

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ivlev/photoframe/internal/errs"
)

// Tolerance is the relative aspect-ratio error a committed crop may carry.
const Tolerance = 0.005

// ErrTooSmall means no whole-pixel crop of the image is within Tolerance of
// the requested ratio.
var ErrTooSmall = errors.New("image too small for aspect ratio")

// Size is a source image's pixel dimensions.
type Size struct {
	Width, Height int
}

// SizeOf returns the size of an image.Rectangle.
func SizeOf(r image.Rectangle) Size {
	return Size{Width: r.Dx(), Height: r.Dy()}
}

// Rect is a crop rectangle in source-image pixel space.
type Rect struct {
	Left   int `json:"left" yaml:"left"`
	Top    int `json:"top" yaml:"top"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Image converts r to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Left+r.Width, r.Top+r.Height)
}

// Ratio is width/height.
func (r Rect) Ratio() float64 {
	if r.Height == 0 {
		return 0
	}
	return float64(r.Width) / float64(r.Height)
}

// Scale maps r into a buffer scaled by f, e.g. a downsampled decode.
func (r Rect) Scale(f float64) Rect {
	if f == 1 {
		return r
	}
	return Rect{
		Left:   int(math.Round(float64(r.Left) * f)),
		Top:    int(math.Round(float64(r.Top) * f)),
		Width:  max(1, int(math.Round(float64(r.Width)*f))),
		Height: max(1, int(math.Round(float64(r.Height)*f))),
	}
}

// In reports whether r is non-empty and fully inside an image of size s.
func (r Rect) In(s Size) bool {
	return r.Width > 0 && r.Height > 0 &&
		r.Left >= 0 && r.Top >= 0 &&
		r.Left+r.Width <= s.Width && r.Top+r.Height <= s.Height
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.Left, r.Top)
}

// Fit returns the largest rectangle of the given ratio centered in img. When
// the image is at least as wide as the ratio the crop is height-limited;
// otherwise it is width-limited. Images too small to hold the ratio within
// Tolerance fail with ErrTooSmall.
func Fit(img Size, ratio float64) (Rect, error) {
	if err := check(img, ratio); err != nil {
		return Rect{}, err
	}

	var w, h int
	if float64(img.Width)/float64(img.Height) >= ratio {
		h = img.Height
		w = clamp(int(math.Round(float64(img.Height)*ratio)), 1, img.Width)
	} else {
		w = img.Width
		h = clamp(int(math.Round(float64(img.Width)/ratio)), 1, img.Height)
	}

	if r := centered(img, w, h); Valid(img, ratio, r) {
		return r, nil
	}
	// Rounding missed the ratio; shrink until a whole-pixel size holds it.
	for ; h >= 1; h-- {
		w = int(math.Round(float64(h) * ratio))
		if w < 1 || w > img.Width {
			continue
		}
		if r := centered(img, w, h); Valid(img, ratio, r) {
			return r, nil
		}
	}
	return Rect{}, errs.New(errs.KindDegenerateSlot, "crop",
		fmt.Errorf("%w: %dx%d at ratio %.4g", ErrTooSmall, img.Width, img.Height, ratio))
}

func centered(img Size, w, h int) Rect {
	return Rect{
		Left:   (img.Width - w) / 2,
		Top:    (img.Height - h) / 2,
		Width:  w,
		Height: h,
	}
}

// Translate moves r by (dx, dy), clamped so it never leaves img. The size of
// r is never changed.
func Translate(img Size, r Rect, dx, dy int) Rect {
	r.Left = shift(r.Left, dx, img.Width-r.Width)
	r.Top = shift(r.Top, dy, img.Height-r.Height)
	return r
}

// Valid reports whether r is inside img and within Tolerance of ratio.
func Valid(img Size, ratio float64, r Rect) bool {
	if !r.In(img) || ratio <= 0 {
		return false
	}
	return math.Abs(r.Ratio()-ratio)/ratio <= Tolerance
}

// Commit returns r unchanged when it is valid, otherwise the default Fit.
func Commit(img Size, ratio float64, r Rect) (Rect, error) {
	if err := check(img, ratio); err != nil {
		return Rect{}, err
	}
	if Valid(img, ratio, r) {
		return r, nil
	}
	return Fit(img, ratio)
}

func check(img Size, ratio float64) error {
	if img.Width <= 0 || img.Height <= 0 {
		return errs.New(errs.KindInvalidConfiguration, "crop",
			fmt.Errorf("empty image %dx%d", img.Width, img.Height))
	}
	if ratio <= 0 || math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		return errs.New(errs.KindInvalidConfiguration, "crop",
			fmt.Errorf("aspect ratio %v", ratio))
	}
	return nil
}

// shift adds d to v within [0, hi] without overflowing on extreme deltas.
func shift(v, d, hi int) int {
	if hi < 0 {
		hi = 0
	}
	v = clamp(v, 0, hi)
	switch {
	case d > hi-v:
		return hi
	case d < -v:
		return 0
	default:
		return v + d
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
