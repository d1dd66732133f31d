package compose

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/photoframe/internal/bitmap"
	"github.com/ivlev/photoframe/internal/errs"
	"github.com/ivlev/photoframe/internal/frame"
	"github.com/ivlev/photoframe/internal/source"
)

var (
	fontOnce   sync.Once
	regular    *opentype.Font
	regularErr error
)

func captionFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		regular, regularErr = opentype.Parse(goregular.TTF)
	})
	return regular, regularErr
}

// drawBackground paints the colour, the artwork stretched over the whole
// output, and the decorations.
func (p *Pipeline) drawBackground(ctx context.Context, lease *bitmap.Lease, out *image.RGBA, tmpl *frame.Template) []errs.SlotWarning {
	draw.Draw(out, out.Bounds(), image.NewUniform(tmpl.BackgroundColor()), image.Point{}, draw.Src)

	var warnings []errs.SlotWarning
	if tmpl.Background.Image != "" {
		if err := p.drawArtwork(ctx, lease, out, tmpl.Background.Image); err != nil {
			warnings = append(warnings, p.layerWarning(tmpl.Background.Image, err))
		}
	}

	for i, d := range tmpl.Decorations {
		box, err := frame.Resolve(tmpl.Width, tmpl.Height, d.Box)
		if err == nil {
			err = drawDecoration(out, box.Image(), d)
		}
		if err != nil {
			warnings = append(warnings, p.layerWarning(fmt.Sprintf("decoration %d (%s)", i, d.Kind), err))
		}
	}
	return warnings
}

// drawArtwork stretches an image over the full output, compositing over
// what is already there.
func (p *Pipeline) drawArtwork(ctx context.Context, lease *bitmap.Lease, out *image.RGBA, path string) error {
	bm, err := p.loader.LoadIn(ctx, lease, source.Ref(path))
	if err != nil {
		return err
	}
	defer bm.Release()

	bitmap.Scale(out, out.Bounds(), bm.Image, bm.Image.Bounds(), draw.Over)
	return nil
}

func (p *Pipeline) layerWarning(ref string, err error) errs.SlotWarning {
	p.log.Warn().Err(err).Str("layer", ref).Msg("layer skipped")
	return errs.SlotWarning{Slot: errs.NoSlot, Ref: ref, Err: err}
}

func drawDecoration(out *image.RGBA, box image.Rectangle, d frame.Decoration) error {
	switch d.Kind {
	case frame.DecorationCaption:
		c := color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
		if d.Color != "" {
			var err error
			if c, err = frame.ParseColor(d.Color); err != nil {
				return err
			}
		}
		return drawCaption(out, box, d.Text, c, d.Size)
	case frame.DecorationQRCode:
		return drawQRCode(out, box, d.Text, d.Color)
	default:
		return fmt.Errorf("unknown decoration kind %q", d.Kind)
	}
}

// drawCaption centers a single line of text in box, clipped to it. A zero
// size picks 60% of the box height.
func drawCaption(out *image.RGBA, box image.Rectangle, text string, c color.Color, size float64) error {
	f, err := captionFont()
	if err != nil {
		return err
	}
	if size <= 0 {
		size = float64(box.Dy()) * 0.6
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("caption face: %w", err)
	}
	defer face.Close()

	m := face.Metrics()
	width := font.MeasureString(face, text).Ceil()
	x := box.Min.X + (box.Dx()-width)/2
	y := box.Min.Y + (box.Dy()+m.Ascent.Ceil()-m.Descent.Ceil())/2

	clip, ok := out.SubImage(box).(*image.RGBA)
	if !ok {
		return nil
	}
	d := &font.Drawer{
		Dst:  clip,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
	return nil
}

// drawQRCode draws a square QR code centered in box.
func drawQRCode(out *image.RGBA, box image.Rectangle, text, fg string) error {
	q, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("qrcode: %w", err)
	}
	if fg != "" {
		c, err := frame.ParseColor(fg)
		if err != nil {
			return err
		}
		q.ForegroundColor = c
	}

	side := int(math.Min(float64(box.Dx()), float64(box.Dy())))
	img := q.Image(side)
	at := bitmap.FitRect(image.Pt(side, side), box)
	draw.Draw(out, at, img, img.Bounds().Min, draw.Src)
	return nil
}

// drawOverlay composites the overlay artwork over the photos.
func (p *Pipeline) drawOverlay(ctx context.Context, lease *bitmap.Lease, out *image.RGBA, tmpl *frame.Template) []errs.SlotWarning {
	if tmpl.Overlay == "" {
		return nil
	}
	if err := p.drawArtwork(ctx, lease, out, tmpl.Overlay); err != nil {
		return []errs.SlotWarning{p.layerWarning(tmpl.Overlay, err)}
	}
	return nil
}
