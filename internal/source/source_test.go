package source

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/photoframe/internal/errs"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 40, 30)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.jpg"), []byte("not a jpeg"), 0644))

	src := &FileSource{Root: dir}
	ctx := context.Background()

	dims, err := src.Dimensions(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(40, 30), dims)

	img, err := src.Decode(ctx, "a.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())

	_, err = src.Decode(ctx, "broken.jpg")
	require.Error(t, err)
	assert.Equal(t, errs.ClassCodec, errs.Classify(err))

	_, err = src.Decode(ctx, "missing.png")
	require.Error(t, err)
	assert.Equal(t, errs.ClassIO, errs.Classify(err))
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource()
	src.Put("red", image.NewRGBA(image.Rect(0, 0, 8, 4)))
	src.PutBytes("junk", []byte{0x00, 0x01})

	ctx := context.Background()
	dims, err := src.Dimensions(ctx, "red")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 4), dims)

	_, err = src.Decode(ctx, "junk")
	assert.ErrorIs(t, err, image.ErrFormat)

	_, err = src.Decode(ctx, "nope")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = src.Decode(cancelled, "red")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMuxRoutesByExtension(t *testing.T) {
	files := NewMemorySource()
	files.Put("a.jpg", image.NewRGBA(image.Rect(0, 0, 1, 1)))
	docs := NewMemorySource()
	docs.Put("scan.pdf#2", image.NewRGBA(image.Rect(0, 0, 2, 2)))

	m := NewMux(files, docs)
	ctx := context.Background()

	dims, err := m.Dimensions(ctx, "scan.pdf#2")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(2, 2), dims)

	dims, err = m.Dimensions(ctx, "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, image.Pt(1, 1), dims)
}

func TestExt(t *testing.T) {
	assert.Equal(t, ".pdf", Ext("Scan.PDF#3"))
	assert.Equal(t, ".jpg", Ext("holiday#1.jpg"))
	assert.Equal(t, ".png", Ext("dir/a.png"))
}

func TestDocumentSourceRejectsBadPage(t *testing.T) {
	src := &DocumentSource{}
	_, _, err := src.open("scan.pdf#0")
	assert.Error(t, err)
}
