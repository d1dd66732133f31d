// Package video turns an ordered list of photos into a fixed-rate slideshow
// file. Every photo is letterboxed into the frame and held for the same
// number of frames.
package video

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/ivlev/photoframe/internal/bitmap"
	"github.com/ivlev/photoframe/internal/errs"
	"github.com/ivlev/photoframe/internal/logx"
	"github.com/ivlev/photoframe/internal/source"
)

// State is the lifecycle of one encoding session.
type State int

const (
	StateIdle State = iota
	StateOpened
	StateResized
	StateFramesWritten
	StateFinalized
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpened:
		return "opened"
	case StateResized:
		return "resized"
	case StateFramesWritten:
		return "frames-written"
	case StateFinalized:
		return "finalized"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// SlideshowSpec describes one slideshow.
type SlideshowSpec struct {
	Photos          []source.Ref
	PerPhotoSeconds float64
	FPS             int
	Width           int
	Height          int
	Background      color.Color // letterbox color, nil is black
	OutputDir       string

	// Progress, if set, is called after each photo's frames are written.
	Progress func(done, total int)
}

// FramesPerPhoto is round(FPS * PerPhotoSeconds).
func (s SlideshowSpec) FramesPerPhoto() int {
	return int(math.Round(float64(s.FPS) * s.PerPhotoSeconds))
}

func (s SlideshowSpec) validate() error {
	switch {
	case len(s.Photos) == 0:
		return fmt.Errorf("no photos")
	case s.FPS <= 0:
		return fmt.Errorf("frame rate %d", s.FPS)
	case !(s.PerPhotoSeconds > 0) || math.IsInf(s.PerPhotoSeconds, 0):
		return fmt.Errorf("per-photo duration %v", s.PerPhotoSeconds)
	case s.Width <= 0 || s.Height <= 0:
		return fmt.Errorf("frame size %dx%d", s.Width, s.Height)
	case s.FramesPerPhoto() < 1:
		return fmt.Errorf("%vs at %d fps is less than one frame", s.PerPhotoSeconds, s.FPS)
	case s.OutputDir == "":
		return fmt.Errorf("no output directory")
	}
	return nil
}

// Result describes a finished slideshow file.
type Result struct {
	Path           string
	Frames         int
	FramesPerPhoto int
	Photos         int
	Duration       time.Duration
}

// Encoder writes slideshows in one container format. Sessions share
// nothing but the loader, so Encode may run concurrently.
type Encoder struct {
	format    Format
	loader    *bitmap.Loader
	maxPixels int64
	log       zerolog.Logger
}

func NewEncoder(format Format, loader *bitmap.Loader, maxPixels int64, log zerolog.Logger) *Encoder {
	return &Encoder{
		format:    format,
		loader:    loader,
		maxPixels: maxPixels,
		log:       logx.Component(log, "video"),
	}
}

// Format is the container format the encoder writes.
func (e *Encoder) Format() Format { return e.format }

// Encode writes spec to a fresh file in spec.OutputDir. On any failure no
// file is left behind. A photo that cannot be loaded aborts the whole
// slideshow.
func (e *Encoder) Encode(ctx context.Context, spec SlideshowSpec) (*Result, error) {
	if err := spec.validate(); err != nil {
		return nil, errs.New(errs.KindInvalidConfiguration, "slideshow", err)
	}
	if err := bitmap.CheckOutput(spec.Width, spec.Height, e.maxPixels); err != nil {
		return nil, errs.New(errs.KindOutputAllocationFailure, "slideshow", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.New(errs.KindCancelled, "slideshow", err)
	}

	s := &session{
		Encoder: e,
		spec:    spec,
		perPic:  spec.FramesPerPhoto(),
		path:    filepath.Join(spec.OutputDir, fmt.Sprintf("slideshow_%s.%s", ulid.Make(), e.format.Ext())),
	}
	s.log = logx.FromCtx(ctx, e.log).With().Str("path", s.path).Logger()
	return s.run(ctx)
}

type session struct {
	*Encoder
	spec   SlideshowSpec
	perPic int
	path   string
	log    zerolog.Logger

	state     State
	container Container
	frames    int
}

func (s *session) to(st State) {
	s.log.Debug().Stringer("from", s.state).Stringer("to", st).Msg("state")
	s.state = st
}

func (s *session) run(ctx context.Context) (res *Result, err error) {
	defer func() {
		if err != nil {
			s.abort(err)
		}
	}()

	if err := os.MkdirAll(s.spec.OutputDir, 0o755); err != nil {
		return nil, errs.New(errs.KindEncoderOpenFailure, "create output dir", err)
	}

	s.container, err = s.format.Open(ctx, s.path, s.spec.Width, s.spec.Height, s.spec.FPS)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.New(errs.KindCancelled, "open "+s.format.Ext(), ctx.Err())
		}
		return nil, errs.New(errs.KindEncoderOpenFailure, "open "+s.format.Ext(), err)
	}
	s.to(StateOpened)

	frameBuf, lease, err := s.allocate(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		s.loader.Pool().Put(frameBuf)
		lease.Close()
	}()

	total := len(s.spec.Photos)
	for i, ref := range s.spec.Photos {
		if err := s.photo(ctx, lease, frameBuf, ref); err != nil {
			return nil, err
		}
		if s.spec.Progress != nil {
			s.spec.Progress(i+1, total)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, errs.New(errs.KindCancelled, "finalize", err)
	}
	c := s.container
	s.container = nil
	if err := c.Close(); err != nil {
		return nil, codec(errs.New(errs.KindFinalizeFailure, "finalize", err))
	}
	s.to(StateFinalized)

	res = &Result{
		Path:           s.path,
		Frames:         s.frames,
		FramesPerPhoto: s.perPic,
		Photos:         total,
		Duration:       time.Duration(float64(s.frames) / float64(s.spec.FPS) * float64(time.Second)),
	}
	s.log.Info().Int("photos", total).Int("frames", s.frames).Dur("duration", res.Duration).Msg("slideshow written")
	return res, nil
}

// allocate leases the frame buffer plus the largest single photo load, so
// the session never waits on the budget while holding its frame, and takes
// the reusable frame buffer from the pool.
func (s *session) allocate(ctx context.Context) (*image.RGBA, *bitmap.Lease, error) {
	cost := bitmap.Cost(s.spec.Width, s.spec.Height)
	lease, err := s.loader.Budget().Lease(ctx, cost+s.loader.PeakCost(ctx, s.spec.Photos...))
	if err != nil {
		return nil, nil, errs.New(errs.KindCancelled, "allocate frame", err)
	}
	if err := lease.Acquire(cost); err != nil {
		lease.Close()
		return nil, nil, errs.New(errs.KindOutputAllocationFailure, "allocate frame", err)
	}
	return s.loader.Pool().Get(image.Rect(0, 0, s.spec.Width, s.spec.Height)), lease, nil
}

// photo letterboxes one photo and writes its frames. The decoded photo is
// released before any frame is written.
func (s *session) photo(ctx context.Context, lease *bitmap.Lease, frameBuf *image.RGBA, ref source.Ref) error {
	if err := ctx.Err(); err != nil {
		return errs.New(errs.KindCancelled, "load "+string(ref), err)
	}
	bm, err := s.loader.LoadIn(ctx, lease, ref)
	if err != nil {
		if ctx.Err() != nil {
			return errs.New(errs.KindCancelled, "load "+string(ref), ctx.Err())
		}
		return err
	}
	bg := s.spec.Background
	if bg == nil {
		bg = color.Black
	}
	bitmap.Letterbox(frameBuf, bm.Image, bg)
	bm.Release()
	s.to(StateResized)

	payload, err := s.container.Prepare(frameBuf)
	if err != nil {
		return codec(errs.New(errs.KindFrameWriteFailure, "prepare "+string(ref), err))
	}
	for f := 0; f < s.perPic; f++ {
		if err := ctx.Err(); err != nil {
			return errs.New(errs.KindCancelled, "write frame", err)
		}
		if err := s.container.WriteFrame(payload); err != nil {
			return errs.New(errs.KindFrameWriteFailure, fmt.Sprintf("write frame %d", s.frames), err)
		}
		s.frames++
	}
	s.to(StateFramesWritten)
	return nil
}

// codec marks an otherwise unclassified container failure as a codec error.
func codec(e *errs.Error) *errs.Error {
	if e.Class == errs.ClassUnknown {
		e.Class = errs.ClassCodec
	}
	return e
}

// abort drops the container and removes the partial file.
func (s *session) abort(cause error) {
	s.log.Error().Err(cause).Stringer("state", s.state).Int("frames", s.frames).Msg("slideshow aborted")
	if s.container != nil {
		s.container.Abort()
		s.container = nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.log.Warn().Err(err).Msg("partial output not removed")
	}
	s.to(StateAborted)
}
