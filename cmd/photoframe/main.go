package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ivlev/photoframe/internal/compose"
	"github.com/ivlev/photoframe/internal/config"
	"github.com/ivlev/photoframe/internal/engine"
	"github.com/ivlev/photoframe/internal/frame"
	"github.com/ivlev/photoframe/internal/logx"
	"github.com/ivlev/photoframe/internal/source"
	"github.com/ivlev/photoframe/internal/system"
)

const usage = `usage: photoframe <command> [flags]

commands:
  compose    place photos into a frame template and write an image
  slideshow  turn photos into a video
  templates  list the template catalog
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, ".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logx.Setup(cfg.Log("photoframe"))
	system.InitResourceLimits(log)

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "compose":
		err = runCompose(ctx, cfg, log, args)
	case "slideshow":
		err = runSlideshow(ctx, cfg, log, args)
	case "templates":
		err = runTemplates(cfg, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Str("command", cmd).Msg("failed")
		os.Exit(1)
	}
}

func newStudio(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*engine.Studio, error) {
	src := source.NewMux(&source.FileSource{}, &source.DocumentSource{})
	return engine.New(ctx, cfg, src, log)
}

func refs(paths []string) []source.Ref {
	out := make([]source.Ref, len(paths))
	for i, p := range paths {
		out[i] = source.Ref(p)
	}
	return out
}

func runCompose(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("compose", flag.ExitOnError)
	templatePtr := fs.String("template", "", "Template YAML file, or an id from the catalog")
	photosPtr := fs.String("photos", ".", "Photo file or directory; photos fill slots in name order")
	outputPtr := fs.String("o", "frame.png", "Output image (.png or .jpg)")
	workersPtr := fs.Int("workers", cfg.Workers, "Worker goroutines")
	fs.Parse(args)

	if *templatePtr == "" {
		return fmt.Errorf("-template is required")
	}
	cfg.Workers = *workersPtr

	studio, err := newStudio(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer studio.Close()

	var tmpl *frame.Template
	if _, statErr := os.Stat(*templatePtr); statErr == nil {
		tmpl, err = frame.LoadTemplate(*templatePtr)
	} else {
		tmpl, err = studio.Template(*templatePtr)
	}
	if err != nil {
		return err
	}

	photos, err := system.FindImages(*photosPtr)
	if err != nil {
		return err
	}
	var assignments []compose.Assignment
	for i, ref := range refs(photos) {
		if i >= len(tmpl.Slots) {
			log.Warn().Int("photos", len(photos)).Int("slots", len(tmpl.Slots)).Msg("more photos than slots, extra photos ignored")
			break
		}
		assignments = append(assignments, compose.Assignment{Slot: i, Ref: ref})
	}

	res, err := studio.Compose(ctx, tmpl, assignments)
	if err != nil {
		return err
	}
	if s := res.Summary(); s != "" {
		for _, w := range res.Warnings {
			log.Warn().Msg(w.String())
		}
		fmt.Println(s)
	}

	if err := os.MkdirAll(filepath.Dir(*outputPtr), 0755); err != nil {
		return err
	}
	f, err := os.Create(*outputPtr)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(*outputPtr)) {
	case ".jpg", ".jpeg":
		err = res.EncodeJPEG(f, cfg.JPEGQuality)
	default:
		err = res.EncodePNG(f)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d of %d slots filled\n", *outputPtr, len(res.Filled), len(tmpl.Slots))
	return f.Close()
}

func runSlideshow(ctx context.Context, cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("slideshow", flag.ExitOnError)
	photosPtr := fs.String("photos", ".", "Photo file or directory, shown in name order")
	outputPtr := fs.String("o", cfg.OutputDir, "Output directory")
	durationPtr := fs.Float64("duration", cfg.PhotoDuration, "Seconds each photo is shown")
	fpsPtr := fs.Int("fps", cfg.FPS, "FPS")
	widthPtr := fs.Int("w", cfg.SlideWidth, "Width")
	heightPtr := fs.Int("h", cfg.SlideHeight, "Height")
	formatPtr := fs.String("format", cfg.VideoFormat, "Container: avi (Motion-JPEG) or mp4 (H.264 via ffmpeg)")
	presetPtr := fs.String("preset", "", "Frame size preset: "+strings.Join(frame.PresetNames(), ", "))
	bgPtr := fs.String("bg", cfg.LetterboxColor, "Letterbox color")
	qualityPtr := fs.Int("quality", cfg.Quality, "Video quality (0 = auto; x264: CRF 1-51, VideoToolbox: bitrate = Q*100 kbit/s)")
	fs.Parse(args)

	width, height := *widthPtr, *heightPtr
	if *presetPtr != "" {
		size, ok := frame.Presets[*presetPtr]
		if !ok {
			return fmt.Errorf("unknown preset %q", *presetPtr)
		}
		width, height = size.X, size.Y
	}

	cfg.OutputDir = *outputPtr
	cfg.PhotoDuration = *durationPtr
	cfg.FPS = *fpsPtr
	cfg.SlideWidth, cfg.SlideHeight = width, height
	cfg.VideoFormat = strings.ToLower(*formatPtr)
	cfg.LetterboxColor = *bgPtr
	cfg.Quality = *qualityPtr

	photos, err := system.FindImages(*photosPtr)
	if err != nil {
		return err
	}

	studio, err := newStudio(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer studio.Close()

	spec := studio.SlideshowSpec(refs(photos))
	spec.Progress = func(done, total int) {
		fmt.Printf("\r[%d/%d] photos", done, total)
	}
	res, err := studio.Encode(ctx, spec)
	fmt.Println()
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d photos, %d frames, %s\n", res.Path, res.Photos, res.Frames, res.Duration)
	return nil
}

func runTemplates(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("templates", flag.ExitOnError)
	dirPtr := fs.String("dir", cfg.TemplateDir, "Template directory")
	fs.Parse(args)

	list, err := frame.Catalog{Dir: *dirPtr}.List()
	if err != nil {
		return err
	}
	for _, t := range list {
		labels := make([]string, 0, len(t.Slots))
		for i := range t.Slots {
			r, err := t.Resolve(i)
			if err != nil {
				labels = append(labels, "degenerate")
				continue
			}
			labels = append(labels, r.AspectLabel())
		}
		fmt.Printf("%-24s %5dx%-5d %d slots [%s]\n", t.ID, t.Width, t.Height, len(t.Slots), strings.Join(labels, " "))
	}
	return nil
}
