package source

import (
	"bytes"
	"context"
	"image"
	"io/fs"
	"sync"
)

// MemorySource serves photos held in memory, either already decoded or as
// encoded bytes.
type MemorySource struct {
	mu     sync.RWMutex
	images map[Ref]image.Image
	blobs  map[Ref][]byte
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		images: make(map[Ref]image.Image),
		blobs:  make(map[Ref][]byte),
	}
}

// Put stores a decoded image.
func (s *MemorySource) Put(ref Ref, img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[ref] = img
	delete(s.blobs, ref)
}

// PutBytes stores an encoded image, decoded on every Decode call.
func (s *MemorySource) PutBytes(ref Ref, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[ref] = data
	delete(s.images, ref)
}

func (s *MemorySource) lookup(ref Ref) (image.Image, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if img, ok := s.images[ref]; ok {
		return img, nil, nil
	}
	if b, ok := s.blobs[ref]; ok {
		return nil, b, nil
	}
	return nil, nil, &fs.PathError{Op: "open", Path: string(ref), Err: fs.ErrNotExist}
}

func (s *MemorySource) Dimensions(ctx context.Context, ref Ref) (image.Point, error) {
	if err := ctx.Err(); err != nil {
		return image.Point{}, err
	}
	img, blob, err := s.lookup(ref)
	if err != nil {
		return image.Point{}, err
	}
	if img != nil {
		return img.Bounds().Size(), nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(blob))
	if err != nil {
		return image.Point{}, err
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}

func (s *MemorySource) Decode(ctx context.Context, ref Ref) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, blob, err := s.lookup(ref)
	if err != nil {
		return nil, err
	}
	if img != nil {
		return img, nil
	}
	img, _, err = image.Decode(bytes.NewReader(blob))
	return img, err
}
