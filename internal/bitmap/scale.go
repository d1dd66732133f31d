package bitmap

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// FitRect returns the largest rectangle with the aspect ratio of size that
// fits centered inside box.
func FitRect(size image.Point, box image.Rectangle) image.Rectangle {
	if size.X <= 0 || size.Y <= 0 || box.Empty() {
		return image.Rectangle{}
	}
	s := math.Min(float64(box.Dx())/float64(size.X), float64(box.Dy())/float64(size.Y))
	w := max(1, min(box.Dx(), int(math.Round(float64(size.X)*s))))
	h := max(1, min(box.Dy(), int(math.Round(float64(size.Y)*s))))
	x := box.Min.X + (box.Dx()-w)/2
	y := box.Min.Y + (box.Dy()-h)/2
	return image.Rect(x, y, x+w, y+h)
}

// Scale resamples sr of src into r of dst with Catmull-Rom, compositing
// with op.
func Scale(dst draw.Image, r image.Rectangle, src image.Image, sr image.Rectangle, op draw.Op) {
	xdraw.CatmullRom.Scale(dst, r, src, sr, op, nil)
}

// Letterbox fills dst with bg and draws src aspect-preserving and centered on
// top, never cropping or stretching it.
func Letterbox(dst *image.RGBA, src image.Image, bg color.Color) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	fit := FitRect(src.Bounds().Size(), dst.Bounds())
	if fit.Empty() {
		return
	}
	if fit.Size() == src.Bounds().Size() {
		draw.Draw(dst, fit, src, src.Bounds().Min, draw.Over)
		return
	}
	Scale(dst, fit, src, src.Bounds(), draw.Over)
}
