package compose

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/ivlev/photoframe/internal/errs"
)

// Result is a finished composition. The caller owns Image.
type Result struct {
	Image    *image.RGBA
	Filled   []int
	Warnings []errs.SlotWarning
}

// EncodePNG writes the image losslessly.
func (r *Result) EncodePNG(w io.Writer) error {
	return png.Encode(w, r.Image)
}

// EncodeJPEG writes the image at the given quality (1..100).
func (r *Result) EncodeJPEG(w io.Writer, quality int) error {
	return jpeg.Encode(w, r.Image, &jpeg.Options{Quality: quality})
}

// Summary is a one-line, user-facing description of the warnings, empty when
// there are none.
func (r *Result) Summary() string {
	photos, layers := 0, 0
	for _, w := range r.Warnings {
		if w.Slot == errs.NoSlot {
			layers++
		} else {
			photos++
		}
	}
	switch {
	case photos == 0 && layers == 0:
		return ""
	case layers == 0:
		return fmt.Sprintf("%d %s could not be loaded", photos, plural(photos, "photo", "photos"))
	case photos == 0:
		return fmt.Sprintf("%d frame %s could not be drawn", layers, plural(layers, "layer", "layers"))
	default:
		return fmt.Sprintf("%d %s could not be loaded, %d frame %s could not be drawn",
			photos, plural(photos, "photo", "photos"), layers, plural(layers, "layer", "layers"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
