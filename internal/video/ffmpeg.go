package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/ivlev/photoframe/internal/system"
)

// FFmpeg pipes raw RGBA frames into an ffmpeg process producing H.264 MP4.
type FFmpeg struct {
	Path    string // binary, defaults to "ffmpeg"
	Encoder string // "" probes the best available H.264 encoder
	Quality int    // 0 picks the encoder's default
}

func (FFmpeg) Ext() string { return "mp4" }

func (f FFmpeg) binary() string {
	if f.Path == "" {
		return "ffmpeg"
	}
	return f.Path
}

func (f FFmpeg) Open(ctx context.Context, path string, width, height, fps int) (Container, error) {
	if width%2 != 0 || height%2 != 0 {
		return nil, fmt.Errorf("yuv420p needs even dimensions, got %dx%d", width, height)
	}

	encoderName := f.Encoder
	if encoderName == "" {
		encoderName = system.GetBestH264Encoder(ctx, f.binary())
	}
	quality := f.Quality
	if quality == 0 {
		quality = system.DefaultQuality(encoderName)
	}

	args := buildFFmpegArgs(width, height, fps, path, encoderName, quality)
	cmd := exec.CommandContext(ctx, f.binary(), args...)
	c := &ffmpegContainer{cmd: cmd, out: &outputBuffer{}}
	cmd.Stdout = c.out
	cmd.Stderr = c.out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	c.stdin = stdin

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return c, nil
}

func buildFFmpegArgs(width, height, fps int, videoPath, encoderName string, quality int) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
		"-r", fmt.Sprintf("%d", fps),
		"-pix_fmt", "yuv420p",
		"-c:v", encoderName,
	}

	switch encoderName {
	case "h264_videotoolbox":
		args = append(args, "-b:v", fmt.Sprintf("%dk", quality*100))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", quality))
	default: // libx264
		args = append(args, "-crf", fmt.Sprintf("%d", quality), "-preset", "medium")
	}

	return append(args, "-movflags", "+faststart", videoPath)
}

type ffmpegContainer struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *outputBuffer
	rgba  *image.RGBA
}

// outputBuffer collects ffmpeg's output. exec copies into it from its own
// goroutine until Wait, while a failed write may read it.
type outputBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *outputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Prepare returns the tightly packed RGBA bytes of img.
func (c *ffmpegContainer) Prepare(img *image.RGBA) ([]byte, error) {
	b := img.Bounds()
	if img.Stride == b.Dx()*4 && b.Min == (image.Point{}) {
		return img.Pix[:b.Dx()*b.Dy()*4], nil
	}
	if c.rgba == nil || c.rgba.Rect != image.Rect(0, 0, b.Dx(), b.Dy()) {
		c.rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	}
	draw.Draw(c.rgba, c.rgba.Bounds(), img, b.Min, draw.Src)
	return c.rgba.Pix, nil
}

func (c *ffmpegContainer) WriteFrame(payload []byte) error {
	if _, err := c.stdin.Write(payload); err != nil {
		return fmt.Errorf("write raw error: %w%s", err, c.tail())
	}
	return nil
}

func (c *ffmpegContainer) Close() error {
	if err := c.stdin.Close(); err != nil {
		return fmt.Errorf("close stdin: %w", err)
	}
	if err := c.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w%s", err, c.tail())
	}
	return nil
}

func (c *ffmpegContainer) Abort() {
	_ = c.stdin.Close()
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	_ = c.cmd.Wait()
}

func (c *ffmpegContainer) tail() string {
	s := strings.TrimSpace(c.out.String())
	if s == "" {
		return ""
	}
	if len(s) > 512 {
		s = s[len(s)-512:]
	}
	return ", output: " + s
}
