package errs

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("encode: %w", New(KindFrameWriteFailure, "write frame", os.ErrClosed))

	assert.ErrorIs(t, err, ErrFrameWriteFailure)
	assert.NotErrorIs(t, err, ErrFinalizeFailure)
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.Equal(t, KindFrameWriteFailure, KindOf(err))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassUnknown},
		{"cancelled", context.Canceled, ClassCancelled},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), ClassCancelled},
		{"memory", fmt.Errorf("bitmap: %w", ErrOutOfMemory), ClassOutOfMemory},
		{"format", image.ErrFormat, ClassCodec},
		{"path", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, ClassIO},
		{"plain", errors.New("boom"), ClassUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassOfPrefersRecordedClass(t *testing.T) {
	inner := New(KindPhotoDecodeFailure, "decode", image.ErrFormat)
	outer := New(KindFrameWriteFailure, "encode", inner)

	require.Equal(t, ClassCodec, outer.Class)
	assert.Equal(t, ClassCodec, ClassOf(fmt.Errorf("wrapped: %w", outer)))
}

func TestErrorMessage(t *testing.T) {
	err := ForSlot(KindDegenerateSlot, "resolve", 2, errors.New("zero width"))
	assert.Equal(t, "resolve: degenerate slot (slot 2): zero width", err.Error())

	w := SlotWarning{Slot: 3, Ref: "beach.jpg", Err: errors.New("bad")}
	assert.Equal(t, "slot 3 (beach.jpg): bad", w.String())
}
