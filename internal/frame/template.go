// Package frame describes photo frame templates: a target output size and an
// ordered list of normalized slots, plus the artwork drawn around them.
package frame

import (
	"fmt"
	"image"
	"image/color"
	"sort"
	"strconv"
	"strings"
)

// Template is a resolution-independent frame layout. It is treated as
// read-only once loaded.
type Template struct {
	ID          string       `yaml:"id" validate:"required"`
	Name        string       `yaml:"name,omitempty"`
	Preset      string       `yaml:"preset,omitempty" validate:"omitempty,preset"`
	Width       int          `yaml:"width" validate:"gt=0"`
	Height      int          `yaml:"height" validate:"gt=0"`
	Background  Background   `yaml:"background,omitempty"`
	Overlay     string       `yaml:"overlay,omitempty"`
	Decorations []Decoration `yaml:"decorations,omitempty" validate:"dive"`
	Slots       []Slot       `yaml:"slots" validate:"min=1,dive"`
}

// Slot is a normalized rectangle; every field is a fraction of the output size.
type Slot struct {
	X      float64 `yaml:"x" validate:"gte=0,lte=1"`
	Y      float64 `yaml:"y" validate:"gte=0,lte=1"`
	Width  float64 `yaml:"width" validate:"gte=0,lte=1"`
	Height float64 `yaml:"height" validate:"gte=0,lte=1"`
}

// Background is painted under every slot.
type Background struct {
	Color string `yaml:"color,omitempty" validate:"omitempty,hexcolor"`
	Image string `yaml:"image,omitempty"`
}

// Decoration kinds.
const (
	DecorationCaption = "caption"
	DecorationQRCode  = "qrcode"
)

// Decoration is a caption or QR code drawn on the background layer.
type Decoration struct {
	Kind  string  `yaml:"kind" validate:"oneof=caption qrcode"`
	Text  string  `yaml:"text" validate:"required"`
	Box   Slot    `yaml:"box"`
	Color string  `yaml:"color,omitempty" validate:"omitempty,hexcolor"`
	Size  float64 `yaml:"size,omitempty" validate:"gte=0"`
}

// Presets maps preset names to output sizes.
var Presets = map[string]image.Point{
	"instagram_story":    {X: 1080, Y: 1920},
	"instagram_square":   {X: 1080, Y: 1080},
	"instagram_portrait": {X: 1080, Y: 1350},
	"1080p":              {X: 1920, Y: 1080},
	"720p":               {X: 1280, Y: 720},
	"4k":                 {X: 3840, Y: 2160},
}

// PresetNames returns the known preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for n := range Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// applyPreset overrides the explicit size when a known preset is named.
func (t *Template) applyPreset() {
	if p, ok := Presets[t.Preset]; ok {
		t.Width, t.Height = p.X, p.Y
	}
}

// Size returns the output resolution.
func (t *Template) Size() image.Point {
	return image.Pt(t.Width, t.Height)
}

// BackgroundColor returns the parsed background colour, black when unset.
func (t *Template) BackgroundColor() color.RGBA {
	c, err := ParseColor(t.Background.Color)
	if err != nil {
		return color.RGBA{A: 0xff}
	}
	return c
}

// ParseColor parses "#rgb", "#rgba", "#rrggbb" or "#rrggbbaa". An empty
// string is opaque black.
func ParseColor(s string) (color.RGBA, error) {
	if s == "" {
		return color.RGBA{A: 0xff}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 || len(hex) == 4 {
		var b strings.Builder
		for _, r := range hex {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		hex = b.String()
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: expected hex", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
