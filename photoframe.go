// Package photoframe composes photos into frame templates and turns photo
// sequences into slideshow videos.
//
// A Studio is the entry point:
//
//	cfg, err := photoframe.LoadConfig(ctx, ".env")
//	studio, err := photoframe.New(ctx, cfg, photoframe.Files(dir), logger)
//	defer studio.Close()
//	res, err := studio.Compose(ctx, tmpl, assignments)
package photoframe

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ivlev/photoframe/internal/compose"
	"github.com/ivlev/photoframe/internal/config"
	"github.com/ivlev/photoframe/internal/crop"
	"github.com/ivlev/photoframe/internal/engine"
	"github.com/ivlev/photoframe/internal/errs"
	"github.com/ivlev/photoframe/internal/frame"
	"github.com/ivlev/photoframe/internal/source"
	"github.com/ivlev/photoframe/internal/video"
)

type (
	Studio        = engine.Studio
	Config        = config.Config
	Template      = frame.Template
	Slot          = frame.Slot
	PixelRect     = frame.PixelRect
	Assignment    = compose.Assignment
	ComposeResult = compose.Result
	SlideshowSpec = video.SlideshowSpec
	VideoResult   = video.Result
	CropRect      = crop.Rect
	CropEngine    = crop.Engine
	Ref           = source.Ref
	Source        = source.Source
	Error         = errs.Error
	Kind          = errs.Kind
	SlotWarning   = errs.SlotWarning
)

// Error kinds for errors.Is.
var (
	ErrDegenerateSlot          = errs.ErrDegenerateSlot
	ErrPhotoDecodeFailure      = errs.ErrPhotoDecodeFailure
	ErrOutputAllocationFailure = errs.ErrOutputAllocationFailure
	ErrEncoderOpenFailure      = errs.ErrEncoderOpenFailure
	ErrFrameWriteFailure       = errs.ErrFrameWriteFailure
	ErrFinalizeFailure         = errs.ErrFinalizeFailure
	ErrInvalidConfiguration    = errs.ErrInvalidConfiguration
	ErrCancelled               = errs.ErrCancelled
)

// New builds a Studio over src.
func New(ctx context.Context, cfg *Config, src Source, log zerolog.Logger) (*Studio, error) {
	return engine.New(ctx, cfg, src, log)
}

// LoadConfig reads the PHOTOFRAME_* environment after the given .env files.
func LoadConfig(ctx context.Context, envFiles ...string) (*Config, error) {
	return config.Load(ctx, envFiles...)
}

// LoadTemplate reads a template from a YAML file.
func LoadTemplate(path string) (*Template, error) {
	return frame.LoadTemplate(path)
}

// Files reads photos and document pages ("file.pdf#2") below root.
func Files(root string) Source {
	return source.NewMux(&source.FileSource{Root: root}, &source.DocumentSource{Root: root})
}

// ResolveSlot maps a normalized slot onto a w x h canvas.
func ResolveSlot(w, h int, s Slot) (PixelRect, error) {
	return frame.Resolve(w, h, s)
}

// FitCrop returns the largest centered crop of a w x h photo with the given
// aspect ratio.
func FitCrop(w, h int, ratio float64) (CropRect, error) {
	return crop.Fit(crop.Size{Width: w, Height: h}, ratio)
}
