// Package source resolves photo references to decodable images.
package source

import (
	"context"
	"image"
	"io/fs"
	"path/filepath"
	"strings"
)

// Ref is an opaque photo handle. File-backed sources treat it as a path;
// document pages use "file.pdf#N".
type Ref string

// Source resolves references. Implementations must be safe for concurrent use.
type Source interface {
	// Dimensions reports the full-resolution size without decoding pixels.
	Dimensions(ctx context.Context, ref Ref) (image.Point, error)
	// Decode returns the full-resolution image. The result is read-only.
	Decode(ctx context.Context, ref Ref) (image.Image, error)
}

// Mux routes references to a Source by file extension.
type Mux struct {
	Routes  map[string]Source
	Default Source
}

// NewMux routes .pdf references to doc and everything else to files.
func NewMux(files, doc Source) *Mux {
	return &Mux{Routes: map[string]Source{".pdf": doc}, Default: files}
}

func (m *Mux) pick(ref Ref) (Source, error) {
	if s, ok := m.Routes[Ext(ref)]; ok && s != nil {
		return s, nil
	}
	if m.Default == nil {
		return nil, &fs.PathError{Op: "route", Path: string(ref), Err: fs.ErrNotExist}
	}
	return m.Default, nil
}

func (m *Mux) Dimensions(ctx context.Context, ref Ref) (image.Point, error) {
	s, err := m.pick(ref)
	if err != nil {
		return image.Point{}, err
	}
	return s.Dimensions(ctx, ref)
}

func (m *Mux) Decode(ctx context.Context, ref Ref) (image.Image, error) {
	s, err := m.pick(ref)
	if err != nil {
		return nil, err
	}
	return s.Decode(ctx, ref)
}

// Ext returns the lower-cased extension of ref, ignoring any "#page" suffix.
func Ext(ref Ref) string {
	path, _ := splitPage(ref)
	return strings.ToLower(filepath.Ext(path))
}

func splitPage(ref Ref) (string, string) {
	s := string(ref)
	i := strings.LastIndexByte(s, '#')
	if i < 0 || i == len(s)-1 || strings.Trim(s[i+1:], "0123456789") != "" {
		return s, ""
	}
	return s[:i], s[i+1:]
}
