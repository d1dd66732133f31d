package source

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Extensions lists the photo file types FileSource decodes.
var Extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"}

// FileSource decodes photos from the filesystem. Relative references are
// resolved against Root.
type FileSource struct {
	Root string
}

func (s *FileSource) path(ref Ref) string {
	p := string(ref)
	if s.Root != "" && !filepath.IsAbs(p) {
		p = filepath.Join(s.Root, p)
	}
	return p
}

func (s *FileSource) Dimensions(ctx context.Context, ref Ref) (image.Point, error) {
	if err := ctx.Err(); err != nil {
		return image.Point{}, err
	}
	f, err := os.Open(s.path(ref))
	if err != nil {
		return image.Point{}, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Point{}, err
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}

func (s *FileSource) Decode(ctx context.Context, ref Ref) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(ref))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return img, nil
}
