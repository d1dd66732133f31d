// Package logx configures the process-wide zerolog logger.
package logx

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey int

const ctxKeyJob ctxKey = iota

// Config describes where and how verbosely to log.
type Config struct {
	Service        string
	Level          string // debug|info|warn|error
	Format         string // json|console
	FilePath       string // "" disables the rotating file
	FileMaxSizeMB  int
	FileMaxBackups int
	FileMaxAgeDays int
	FileCompress   bool
	Out            io.Writer // defaults to os.Stdout
}

// Setup configures the global zerolog logger and returns it.
func Setup(c Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil || c.Level == "" {
		lvl = zerolog.InfoLevel
	}

	out := c.Out
	if out == nil {
		out = os.Stdout
	}

	var writers []io.Writer
	if strings.EqualFold(c.Format, "console") {
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	} else {
		writers = append(writers, out)
	}
	if c.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   c.FilePath,
			MaxSize:    orDefault(c.FileMaxSizeMB, 50),
			MaxBackups: orDefault(c.FileMaxBackups, 3),
			MaxAge:     orDefault(c.FileMaxAgeDays, 7),
			Compress:   c.FileCompress,
		})
	}

	service := c.Service
	if service == "" {
		service = "photoframe"
	}

	logger := zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().
		Timestamp().
		Str("svc", service).
		Logger()

	log.Logger = logger
	return logger
}

// WithJob stores a job id in ctx for FromCtx.
func WithJob(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyJob, id)
}

// JobID returns the job id stored by WithJob.
func JobID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKeyJob).(string)
	return id
}

// FromCtx decorates l with the job id carried by ctx, if any.
func FromCtx(ctx context.Context, l zerolog.Logger) zerolog.Logger {
	if id := JobID(ctx); id != "" {
		return l.With().Str("job", id).Logger()
	}
	return l
}

// Component tags l with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
