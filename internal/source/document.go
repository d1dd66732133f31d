package source

import (
	"context"
	"fmt"
	"image"
	"math"
	"strconv"

	"github.com/gen2brain/go-fitz"
)

// DocumentSource renders pages of PDF (and other MuPDF-readable) documents as
// photos. A reference "scan.pdf#2" addresses the second page; without a page
// suffix the first page is used.
type DocumentSource struct {
	Root string
	DPI  float64 // defaults to 150
}

func (s *DocumentSource) dpi() float64 {
	if s.DPI > 0 {
		return s.DPI
	}
	return 150
}

func (s *DocumentSource) open(ref Ref) (*fitz.Document, int, error) {
	path, page := splitPage(ref)
	files := FileSource{Root: s.Root}
	path = files.path(Ref(path))

	index := 0
	if page != "" {
		n, err := strconv.Atoi(page)
		if err != nil || n < 1 {
			return nil, 0, fmt.Errorf("invalid page %q in %s", page, ref)
		}
		index = n - 1
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, 0, err
	}
	if index >= doc.NumPage() {
		doc.Close()
		return nil, 0, fmt.Errorf("%s has %d pages", path, doc.NumPage())
	}
	return doc, index, nil
}

// Dimensions reports the page size at the configured DPI.
func (s *DocumentSource) Dimensions(ctx context.Context, ref Ref) (image.Point, error) {
	if err := ctx.Err(); err != nil {
		return image.Point{}, err
	}
	doc, index, err := s.open(ref)
	if err != nil {
		return image.Point{}, err
	}
	defer doc.Close()

	// Bound is in points (1/72 in).
	rect, err := doc.Bound(index)
	if err != nil {
		return image.Point{}, err
	}
	scale := s.dpi() / 72
	return image.Pt(
		int(math.Round(float64(rect.Dx())*scale)),
		int(math.Round(float64(rect.Dy())*scale)),
	), nil
}

// Decode renders the page. Each call opens its own document handle, since a
// fitz.Document must not be shared between goroutines.
func (s *DocumentSource) Decode(ctx context.Context, ref Ref) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, index, err := s.open(ref)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	return doc.ImageDPI(index, s.dpi())
}
