package video

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"

	"github.com/icza/mjpeg"
)

// MJPEG writes Motion-JPEG AVI files in pure Go. Each photo is JPEG-encoded
// once and the same payload is repeated for every frame it is held.
type MJPEG struct {
	Quality int // JPEG quality, defaults to 90
}

func (MJPEG) Ext() string { return "avi" }

func (f MJPEG) Open(_ context.Context, path string, width, height, fps int) (Container, error) {
	aw, err := mjpeg.New(path, int32(width), int32(height), int32(fps))
	if err != nil {
		return nil, err
	}
	q := f.Quality
	if q <= 0 || q > 100 {
		q = 90
	}
	return &mjpegContainer{aw: aw, quality: q}, nil
}

type mjpegContainer struct {
	aw      mjpeg.AviWriter
	quality int
	buf     bytes.Buffer
}

func (c *mjpegContainer) Prepare(img *image.RGBA) ([]byte, error) {
	c.buf.Reset()
	if err := jpeg.Encode(&c.buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, err
	}
	return c.buf.Bytes(), nil
}

func (c *mjpegContainer) WriteFrame(payload []byte) error {
	return c.aw.AddFrame(payload)
}

func (c *mjpegContainer) Close() error {
	return c.aw.Close()
}

func (c *mjpegContainer) Abort() {
	_ = c.aw.Close()
}
