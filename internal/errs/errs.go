// Package errs defines the failure kinds shared by the compositing and
// encoding core, and the classification of their underlying causes.
package errs

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"syscall"
)

// Kind identifies where in the core a failure happened.
type Kind int

const (
	KindUnknown Kind = iota
	KindDegenerateSlot
	KindPhotoDecodeFailure
	KindOutputAllocationFailure
	KindEncoderOpenFailure
	KindFrameWriteFailure
	KindFinalizeFailure
	KindInvalidConfiguration
	KindCancelled
)

var kindNames = map[Kind]string{
	KindUnknown:                 "unknown",
	KindDegenerateSlot:          "degenerate slot",
	KindPhotoDecodeFailure:      "photo decode failure",
	KindOutputAllocationFailure: "output allocation failure",
	KindEncoderOpenFailure:      "encoder open failure",
	KindFrameWriteFailure:       "frame write failure",
	KindFinalizeFailure:         "finalize failure",
	KindInvalidConfiguration:    "invalid configuration",
	KindCancelled:               "cancelled",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Class describes the nature of the underlying cause.
type Class int

const (
	ClassUnknown Class = iota
	ClassIO
	ClassCodec
	ClassOutOfMemory
	ClassCancelled
)

func (c Class) String() string {
	switch c {
	case ClassIO:
		return "io"
	case ClassCodec:
		return "codec"
	case ClassOutOfMemory:
		return "out-of-memory"
	case ClassCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against a Kind.
var (
	ErrDegenerateSlot          = &Error{Kind: KindDegenerateSlot}
	ErrPhotoDecodeFailure      = &Error{Kind: KindPhotoDecodeFailure}
	ErrOutputAllocationFailure = &Error{Kind: KindOutputAllocationFailure}
	ErrEncoderOpenFailure      = &Error{Kind: KindEncoderOpenFailure}
	ErrFrameWriteFailure       = &Error{Kind: KindFrameWriteFailure}
	ErrFinalizeFailure         = &Error{Kind: KindFinalizeFailure}
	ErrInvalidConfiguration    = &Error{Kind: KindInvalidConfiguration}
	ErrCancelled               = &Error{Kind: KindCancelled}
)

// ErrOutOfMemory is wrapped by every error caused by an exhausted or
// insufficient memory budget.
var ErrOutOfMemory = errors.New("memory budget exceeded")

// NoSlot marks errors that are not bound to a template slot.
const NoSlot = -1

// Error is the error type returned by the core.
type Error struct {
	Kind  Kind
	Class Class
	Op    string
	Slot  int
	Err   error
}

// New wraps err with a kind, deriving its class from the cause.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Class: Classify(err), Op: op, Slot: NoSlot, Err: err}
}

// ForSlot is New bound to a template slot index.
func ForSlot(kind Kind, op string, slot int, err error) *Error {
	e := New(kind, op, err)
	e.Slot = slot
	return e
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Slot >= 0 {
		msg += fmt.Sprintf(" (slot %d)", e.Slot)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so callers can write
// errors.Is(err, errs.ErrFrameWriteFailure).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ClassOf returns the Class of the first *Error in err's chain, or
// classifies err directly when it carries none.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) && e.Class != ClassUnknown {
		return e.Class
	}
	return Classify(err)
}

// Classify inspects a cause and reports its nature.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassCancelled
	}
	if errors.Is(err, ErrOutOfMemory) || errors.Is(err, syscall.ENOMEM) {
		return ClassOutOfMemory
	}

	var (
		jpegFormat jpeg.FormatError
		jpegUnsupp jpeg.UnsupportedError
		pngFormat  png.FormatError
		pngUnsupp  png.UnsupportedError
		pathErr    *fs.PathError
		errno      syscall.Errno
	)
	switch {
	case errors.Is(err, image.ErrFormat),
		errors.As(err, &jpegFormat),
		errors.As(err, &jpegUnsupp),
		errors.As(err, &pngFormat),
		errors.As(err, &pngUnsupp):
		return ClassCodec
	case errors.As(err, &pathErr),
		errors.As(err, &errno),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrShortWrite),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, fs.ErrClosed):
		return ClassIO
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ClassUnknown
}

// SlotWarning is a non-fatal, per-slot failure reported alongside a
// successful composition. Slot is zero-based; NoSlot marks the
// background or overlay layer.
type SlotWarning struct {
	Slot int
	Ref  string
	Err  error
}

func (w SlotWarning) String() string {
	if w.Slot == NoSlot {
		return fmt.Sprintf("layer %q: %v", w.Ref, w.Err)
	}
	return fmt.Sprintf("slot %d (%s): %v", w.Slot, w.Ref, w.Err)
}
