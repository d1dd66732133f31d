// Package config loads photoframe settings from the environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/ivlev/photoframe/internal/errs"
	"github.com/ivlev/photoframe/internal/frame"
	"github.com/ivlev/photoframe/internal/logx"
)

// Prefix is prepended to every environment variable name.
const Prefix = "PHOTOFRAME_"

// Video formats.
const (
	FormatAVI = "avi"
	FormatMP4 = "mp4"
)

var (
	ErrWorkers       = errors.New("config: WORKERS must be positive")
	ErrQuality       = errors.New("config: QUALITY must be 0 (auto) or 1..100")
	ErrJPEGQuality   = errors.New("config: JPEG_QUALITY must be 1..100")
	ErrVideoFormat   = errors.New("config: VIDEO_FORMAT must be avi or mp4")
	ErrWorkingSide   = errors.New("config: WORKING_MAX_SIDE must be positive")
	ErrOutputPixels  = errors.New("config: MAX_OUTPUT_PIXELS must be positive")
	ErrSlideSettings = errors.New("config: FPS, PHOTO_DURATION and slide size must be positive")
)

type Config struct {
	// Worker queue
	Workers int `env:"WORKERS, default=1"`

	// Memory manager
	WorkingMaxSide  int `env:"WORKING_MAX_SIDE, default=4096"`
	MemoryBudgetMB  int `env:"MEMORY_BUDGET_MB, default=0"` // 0 derives from available memory
	MaxOutputPixels int `env:"MAX_OUTPUT_PIXELS, default=64000000"`

	// Slideshow
	OutputDir      string  `env:"OUTPUT_DIR"`
	VideoFormat    string  `env:"VIDEO_FORMAT, default=avi"`
	FFmpegPath     string  `env:"FFMPEG_PATH, default=ffmpeg"`
	VideoEncoder   string  `env:"VIDEO_ENCODER"` // "" probes the best H.264 encoder
	Quality        int     `env:"QUALITY, default=0"`
	JPEGQuality    int     `env:"JPEG_QUALITY, default=90"`
	FPS            int     `env:"FPS, default=30"`
	PhotoDuration  float64 `env:"PHOTO_DURATION, default=2"`
	SlideWidth     int     `env:"SLIDE_WIDTH, default=1080"`
	SlideHeight    int     `env:"SLIDE_HEIGHT, default=1920"`
	LetterboxColor string  `env:"LETTERBOX_COLOR, default=#000000"`

	// Templates
	TemplateDir string `env:"TEMPLATE_DIR, default=templates"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LogFormat string `env:"LOG_FORMAT, default=json"`
	LogFile   string `env:"LOG_FILE"`
}

// SlideParams are the encoder defaults derived from Config.
type SlideParams struct {
	Width, Height int
	FPS           int
	Duration      float64
	Background    color.RGBA
	OutputDir     string
}

// Load reads optional .env files (missing ones are skipped) and then the
// PHOTOFRAME_* environment. Variables already set win over .env entries.
func Load(ctx context.Context, envFiles ...string) (*Config, error) {
	var present []string
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) > 0 {
		if err := godotenv.Load(present...); err != nil {
			return nil, fmt.Errorf("config: load env files: %w", err)
		}
	}

	cfg := &Config{}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   cfg,
		Lookuper: envconfig.PrefixLookuper(Prefix, envconfig.OsLookuper()),
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(os.TempDir(), "photoframe")
	}
	cfg.VideoFormat = strings.ToLower(cfg.VideoFormat)

	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	var err error
	switch {
	case c.Workers <= 0:
		err = ErrWorkers
	case c.Quality < 0 || c.Quality > 100:
		err = ErrQuality
	case c.JPEGQuality < 1 || c.JPEGQuality > 100:
		err = ErrJPEGQuality
	case c.VideoFormat != FormatAVI && c.VideoFormat != FormatMP4:
		err = ErrVideoFormat
	case c.WorkingMaxSide <= 0:
		err = ErrWorkingSide
	case c.MaxOutputPixels <= 0:
		err = ErrOutputPixels
	case c.FPS <= 0 || c.PhotoDuration <= 0 || c.SlideWidth <= 0 || c.SlideHeight <= 0:
		err = ErrSlideSettings
	}
	if err == nil {
		if _, cerr := frame.ParseColor(c.LetterboxColor); cerr != nil {
			err = fmt.Errorf("config: LETTERBOX_COLOR: %w", cerr)
		}
	}
	if err != nil {
		return errs.New(errs.KindInvalidConfiguration, "validate config", err)
	}
	return nil
}

// SlideParams returns the slideshow defaults.
func (c *Config) SlideParams() SlideParams {
	bg, err := frame.ParseColor(c.LetterboxColor)
	if err != nil {
		bg = color.RGBA{A: 0xff}
	}
	return SlideParams{
		Width:      c.SlideWidth,
		Height:     c.SlideHeight,
		FPS:        c.FPS,
		Duration:   c.PhotoDuration,
		Background: bg,
		OutputDir:  c.OutputDir,
	}
}

// MemoryBudget returns the configured budget in bytes, 0 meaning "derive".
func (c *Config) MemoryBudget() int64 {
	return int64(c.MemoryBudgetMB) << 20
}

// Log returns the logger configuration.
func (c *Config) Log(service string) logx.Config {
	return logx.Config{
		Service:      service,
		Level:        c.LogLevel,
		Format:       c.LogFormat,
		FilePath:     c.LogFile,
		FileCompress: true,
	}
}
