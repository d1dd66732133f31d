package crop

import (
	"image"
	"math"
)

// Viewport is the on-screen area a source image is displayed in, scaled to
// fit and centered.
type Viewport struct {
	Width, Height int
}

// Scale is the display-pixels-per-image-pixel factor for img.
func (v Viewport) Scale(img Size) float64 {
	if img.Width <= 0 || img.Height <= 0 {
		return 0
	}
	return math.Min(float64(v.Width)/float64(img.Width), float64(v.Height)/float64(img.Height))
}

// ToImage converts a drag in display pixels into image pixels.
func (v Viewport) ToImage(img Size, dx, dy float64) (int, int) {
	s := v.Scale(img)
	if s == 0 {
		return 0, 0
	}
	return int(math.Round(dx / s)), int(math.Round(dy / s))
}

// Offset is the letterbox offset of the displayed image inside the view.
func (v Viewport) Offset(img Size) image.Point {
	s := v.Scale(img)
	return image.Pt(
		int(math.Round((float64(v.Width)-float64(img.Width)*s)/2)),
		int(math.Round((float64(v.Height)-float64(img.Height)*s)/2)),
	)
}

// ToDisplay maps a crop onto view coordinates for drawing its outline.
func (v Viewport) ToDisplay(img Size, r Rect) image.Rectangle {
	s := v.Scale(img)
	off := v.Offset(img)
	return image.Rect(
		off.X+int(math.Round(float64(r.Left)*s)),
		off.Y+int(math.Round(float64(r.Top)*s)),
		off.X+int(math.Round(float64(r.Left+r.Width)*s)),
		off.Y+int(math.Round(float64(r.Top+r.Height)*s)),
	)
}
