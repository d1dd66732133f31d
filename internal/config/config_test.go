package config

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/photoframe/internal/errs"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 4096, cfg.WorkingMaxSide)
	assert.Equal(t, FormatAVI, cfg.VideoFormat)
	assert.Equal(t, 30, cfg.FPS)
	assert.InDelta(t, 2.0, cfg.PhotoDuration, 1e-9)
	assert.Equal(t, filepath.Join(os.TempDir(), "photoframe"), cfg.OutputDir)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("PHOTOFRAME_WORKERS", "2")
	t.Setenv("PHOTOFRAME_VIDEO_FORMAT", "MP4")
	t.Setenv("PHOTOFRAME_PHOTO_DURATION", "1.5")
	t.Setenv("PHOTOFRAME_LETTERBOX_COLOR", "#ffffff")
	t.Setenv("PHOTOFRAME_OUTPUT_DIR", "/srv/out")

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, FormatMP4, cfg.VideoFormat)

	p := cfg.SlideParams()
	assert.InDelta(t, 1.5, p.Duration, 1e-9)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, p.Background)
	assert.Equal(t, "/srv/out", p.OutputDir)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PHOTOFRAME_FPS=24\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("PHOTOFRAME_FPS") })

	cfg, err := Load(context.Background(), envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.FPS)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(context.Background())
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"workers", func(c *Config) { c.Workers = 0 }, ErrWorkers},
		{"quality", func(c *Config) { c.Quality = 101 }, ErrQuality},
		{"jpeg quality", func(c *Config) { c.JPEGQuality = 0 }, ErrJPEGQuality},
		{"format", func(c *Config) { c.VideoFormat = "gif" }, ErrVideoFormat},
		{"fps", func(c *Config) { c.FPS = 0 }, ErrSlideSettings},
		{"duration", func(c *Config) { c.PhotoDuration = -1 }, ErrSlideSettings},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
		})
	}
}
