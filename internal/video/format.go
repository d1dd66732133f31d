package video

import (
	"context"
	"image"
)

// Format creates video containers of one kind.
type Format interface {
	// Ext is the file extension without the dot.
	Ext() string
	// Open creates the container at path. The file may exist on failure; the
	// caller removes it.
	Open(ctx context.Context, path string, width, height, fps int) (Container, error)
}

// Container is a single-pass, sequential frame sink. Frames must not be
// submitted concurrently.
type Container interface {
	// Prepare converts a frame into the payload WriteFrame accepts. The
	// payload stays valid until the next Prepare call.
	Prepare(img *image.RGBA) ([]byte, error)
	WriteFrame(payload []byte) error
	// Close finalizes the container into a playable file.
	Close() error
	// Abort releases the container without finalizing it.
	Abort()
}
