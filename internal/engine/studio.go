// Package engine wires the compositing and encoding core behind one entry
// point. Every call runs on the worker queue under its own job id.
package engine

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/ivlev/photoframe/internal/bitmap"
	"github.com/ivlev/photoframe/internal/compose"
	"github.com/ivlev/photoframe/internal/config"
	"github.com/ivlev/photoframe/internal/crop"
	"github.com/ivlev/photoframe/internal/errs"
	"github.com/ivlev/photoframe/internal/frame"
	"github.com/ivlev/photoframe/internal/logx"
	"github.com/ivlev/photoframe/internal/source"
	"github.com/ivlev/photoframe/internal/system"
	"github.com/ivlev/photoframe/internal/video"
	"github.com/ivlev/photoframe/internal/worker"
)

type Studio struct {
	cfg      *config.Config
	src      source.Source
	loader   *bitmap.Loader
	pipeline *compose.Pipeline
	encoder  *video.Encoder
	queue    *worker.Queue
	catalog  frame.Catalog
	log      zerolog.Logger
}

// New validates cfg and builds the studio. For mp4 output the ffmpeg encoder
// is probed once here.
func New(ctx context.Context, cfg *config.Config, src source.Source, log zerolog.Logger) (*Studio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var budget *bitmap.Budget
	if b := cfg.MemoryBudget(); b > 0 {
		budget = bitmap.NewBudget(b)
	} else {
		budget = bitmap.SystemBudget(log)
	}
	loader := bitmap.NewLoader(src, budget, bitmap.NewPool(), cfg.WorkingMaxSide, log)

	format, err := newFormat(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	maxPixels := int64(cfg.MaxOutputPixels)
	s := &Studio{
		cfg:      cfg,
		src:      src,
		loader:   loader,
		pipeline: compose.NewPipeline(loader, maxPixels, log),
		encoder:  video.NewEncoder(format, loader, maxPixels, log),
		queue:    worker.New(cfg.Workers, log),
		catalog:  frame.Catalog{Dir: cfg.TemplateDir},
		log:      logx.Component(log, "studio"),
	}
	s.log.Info().
		Int("workers", cfg.Workers).
		Int64("budget_mb", budget.Total()>>20).
		Str("format", format.Ext()).
		Msg("studio ready")
	return s, nil
}

func newFormat(ctx context.Context, cfg *config.Config, log zerolog.Logger) (video.Format, error) {
	if cfg.VideoFormat != config.FormatMP4 {
		return video.MJPEG{Quality: cfg.JPEGQuality}, nil
	}
	if !system.HasFFmpeg(cfg.FFmpegPath) {
		return nil, errs.New(errs.KindInvalidConfiguration, "video format",
			fmt.Errorf("mp4 output needs ffmpeg, %q not found", cfg.FFmpegPath))
	}
	enc := cfg.VideoEncoder
	if enc == "" {
		enc = system.GetBestH264Encoder(ctx, cfg.FFmpegPath)
	}
	quality := cfg.Quality
	if quality == 0 {
		quality = system.DefaultQuality(enc)
	}
	log.Debug().Str("encoder", enc).Int("quality", quality).Msg("ffmpeg encoder selected")
	return video.FFmpeg{Path: cfg.FFmpegPath, Encoder: enc, Quality: quality}, nil
}

// job runs fn on the queue with a fresh job id in its context.
func (s *Studio) job(ctx context.Context, kind string, fn worker.Job) error {
	id := ulid.Make().String()
	ctx = logx.WithJob(ctx, id)
	log := logx.FromCtx(ctx, s.log)
	log.Debug().Str("kind", kind).Msg("job queued")

	err := s.queue.Do(ctx, fn)
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Stringer("error_kind", errs.KindOf(err)).Msg("job failed")
		return err
	}
	log.Debug().Str("kind", kind).Msg("job done")
	return nil
}

// Compose renders a template with its assigned photos.
func (s *Studio) Compose(ctx context.Context, tmpl *frame.Template, assignments []compose.Assignment) (*compose.Result, error) {
	var res *compose.Result
	err := s.job(ctx, "compose", func(ctx context.Context) error {
		var err error
		res, err = s.pipeline.Compose(ctx, tmpl, assignments)
		return err
	})
	return res, err
}

// SlideshowSpec returns a slideshow of photos using the configured frame
// size, rate, duration, letterbox color and output directory.
func (s *Studio) SlideshowSpec(photos []source.Ref) video.SlideshowSpec {
	p := s.cfg.SlideParams()
	return video.SlideshowSpec{
		Photos:          photos,
		PerPhotoSeconds: p.Duration,
		FPS:             p.FPS,
		Width:           p.Width,
		Height:          p.Height,
		Background:      p.Background,
		OutputDir:       p.OutputDir,
	}
}

// Encode writes a slideshow file.
func (s *Studio) Encode(ctx context.Context, spec video.SlideshowSpec) (*video.Result, error) {
	var res *video.Result
	err := s.job(ctx, "slideshow", func(ctx context.Context) error {
		var err error
		res, err = s.encoder.Encode(ctx, spec)
		return err
	})
	return res, err
}

// BeginCrop opens a crop editor for ref in slot i of tmpl. A previous crop is
// restored when it still fits, otherwise the centered default is used.
func (s *Studio) BeginCrop(ctx context.Context, tmpl *frame.Template, i int, ref source.Ref, prev *crop.Rect) (*crop.Engine, error) {
	tmpl, err := frame.Checked(tmpl)
	if err != nil {
		return nil, err
	}
	rect, err := tmpl.Resolve(i)
	if err != nil {
		return nil, err
	}
	dims, err := s.src.Dimensions(ctx, ref)
	if err != nil {
		return nil, errs.ForSlot(errs.KindPhotoDecodeFailure, "crop "+string(ref), i, err)
	}

	e := &crop.Engine{}
	size := crop.Size{Width: dims.X, Height: dims.Y}
	if prev != nil {
		_, err = e.BeginAt(size, rect.Ratio(), *prev)
	} else {
		_, err = e.Begin(size, rect.Ratio())
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Templates lists the template catalog.
func (s *Studio) Templates() ([]*frame.Template, error) {
	return s.catalog.List()
}

// Template loads one catalog template by id.
func (s *Studio) Template(id string) (*frame.Template, error) {
	return s.catalog.Get(id)
}

// Close waits for running jobs and rejects new ones.
func (s *Studio) Close() error {
	return s.queue.Close()
}
