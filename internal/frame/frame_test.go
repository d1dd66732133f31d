package frame

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/photoframe/internal/errs"
)

func TestResolveStorySlot(t *testing.T) {
	r, err := Resolve(1080, 1920, Slot{X: 0.1, Y: 0.1, Width: 0.8, Height: 0.4})
	require.NoError(t, err)

	assert.Equal(t, PixelRect{X: 108, Y: 192, Width: 864, Height: 768}, r)
	assert.Equal(t, "9:8", r.AspectLabel())
}

func TestResolveIsDeterministic(t *testing.T) {
	slots := []Slot{
		{X: 0.1, Y: 0.1, Width: 0.8, Height: 0.4},
		{X: 1.0 / 3, Y: 0.05, Width: 1.0 / 3, Height: 0.9},
		{X: 0.005, Y: 0.995, Width: 0.99, Height: 0.005},
	}
	sizes := [][2]int{{1080, 1920}, {1, 1}, {3840, 2160}, {999, 333}}

	for _, s := range slots {
		for _, sz := range sizes {
			a, errA := Resolve(sz[0], sz[1], s)
			b, errB := Resolve(sz[0], sz[1], s)
			assert.Equal(t, a, b)
			assert.Equal(t, errA == nil, errB == nil)
		}
	}
}

func TestResolveClampsRoundingOverflow(t *testing.T) {
	r, err := Resolve(2, 2, Slot{X: 0.25, Y: 0, Width: 0.75, Height: 1})
	require.NoError(t, err)
	assert.Equal(t, PixelRect{X: 1, Y: 0, Width: 1, Height: 2}, r)
	assert.LessOrEqual(t, r.X+r.Width, 2)
}

func TestResolveDegenerateSlot(t *testing.T) {
	_, err := Resolve(1080, 1920, Slot{X: 0.5, Y: 0.5, Width: 0.0001, Height: 0.2})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDegenerateSlot)
	assert.ErrorIs(t, err, ErrZeroArea)

	tmpl := &Template{ID: "t", Width: 100, Height: 100, Slots: []Slot{
		{Width: 1, Height: 1},
		{Width: 0, Height: 1},
	}}
	_, err = tmpl.Resolve(1)
	require.Error(t, err)

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 1, e.Slot)

	_, err = tmpl.Resolve(5)
	assert.ErrorIs(t, err, errs.ErrDegenerateSlot)
}

func TestSlotRatio(t *testing.T) {
	r, err := SlotRatio(1080, 1920, Slot{X: 0.1, Y: 0.1, Width: 0.8, Height: 0.4})
	require.NoError(t, err)
	assert.InDelta(t, 864.0/768.0, r, 1e-12)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    Template
		wantErr bool
	}{
		{
			name: "valid",
			tmpl: Template{ID: "a", Width: 100, Height: 100, Slots: []Slot{{X: 0.7, Width: 0.3, Height: 1}}},
		},
		{
			name:    "slot past right edge",
			tmpl:    Template{ID: "a", Width: 100, Height: 100, Slots: []Slot{{X: 0.5, Width: 0.6, Height: 1}}},
			wantErr: true,
		},
		{
			name:    "slot past bottom edge",
			tmpl:    Template{ID: "a", Width: 100, Height: 100, Slots: []Slot{{Y: 0.9, Width: 1, Height: 0.2}}},
			wantErr: true,
		},
		{
			name:    "negative coordinate",
			tmpl:    Template{ID: "a", Width: 100, Height: 100, Slots: []Slot{{X: -0.1, Width: 0.5, Height: 0.5}}},
			wantErr: true,
		},
		{
			name:    "no slots",
			tmpl:    Template{ID: "a", Width: 100, Height: 100},
			wantErr: true,
		},
		{
			name:    "zero size",
			tmpl:    Template{ID: "a", Slots: []Slot{{Width: 1, Height: 1}}},
			wantErr: true,
		},
		{
			name:    "unknown preset",
			tmpl:    Template{ID: "a", Preset: "cinema", Width: 10, Height: 10, Slots: []Slot{{Width: 1, Height: 1}}},
			wantErr: true,
		},
		{
			name: "decoration outside",
			tmpl: Template{ID: "a", Width: 10, Height: 10, Slots: []Slot{{Width: 1, Height: 1}},
				Decorations: []Decoration{{Kind: DecorationCaption, Text: "hi", Box: Slot{X: 0.9, Width: 0.2, Height: 0.1}}}},
			wantErr: true,
		},
		{
			name: "bad colour",
			tmpl: Template{ID: "a", Width: 10, Height: 10, Slots: []Slot{{Width: 1, Height: 1}},
				Background: Background{Color: "red"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.tmpl)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestValidateAppliesPreset(t *testing.T) {
	tmpl := &Template{ID: "story", Preset: "instagram_story", Width: 10, Height: 10, Slots: []Slot{{Width: 1, Height: 1}}}
	require.NoError(t, Validate(tmpl))
	assert.Equal(t, 1080, tmpl.Width)
	assert.Equal(t, 1920, tmpl.Height)
}

func TestCheckedLeavesTemplateAlone(t *testing.T) {
	tmpl := &Template{ID: "story", Preset: "instagram_story", Width: 10, Height: 10, Slots: []Slot{{Width: 1, Height: 1}}}
	c, err := Checked(tmpl)
	require.NoError(t, err)
	assert.Equal(t, 1080, c.Width)
	assert.Equal(t, 1920, c.Height)
	assert.Equal(t, 10, tmpl.Width)
	assert.Equal(t, 10, tmpl.Height)

	_, err = Checked(nil)
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
	_, err = Checked(&Template{ID: "empty", Width: 10, Height: 10})
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0x80, A: 0xff}, c)

	c, err = ParseColor("#fff")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, c)

	c, err = ParseColor("#00000080")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x80), c.A)

	_, err = ParseColor("#12")
	assert.Error(t, err)
}

func TestCatalogRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tmpl := &Template{
		ID:         "duo",
		Name:       "Two up",
		Width:      1080,
		Height:     1080,
		Background: Background{Color: "#202020", Image: "paper.png"},
		Slots: []Slot{
			{X: 0.05, Y: 0.05, Width: 0.425, Height: 0.9},
			{X: 0.525, Y: 0.05, Width: 0.425, Height: 0.9},
		},
	}
	require.NoError(t, WriteTemplate(tmpl, filepath.Join(dir, "duo.yaml")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))

	cat := Catalog{Dir: dir}
	all, err := cat.List()
	require.NoError(t, err)
	require.Len(t, all, 1)

	got, err := cat.Get("duo")
	require.NoError(t, err)
	assert.Equal(t, tmpl.Slots, got.Slots)
	assert.Equal(t, filepath.Join(dir, "paper.png"), got.Background.Image)

	_, err = cat.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadTemplateDefaultsIDAndRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "square.yml")
	require.NoError(t, os.WriteFile(good, []byte("preset: instagram_square\nslots:\n  - {x: 0, y: 0, width: 1, height: 1}\n"), 0644))
	tmpl, err := LoadTemplate(good)
	require.NoError(t, err)
	assert.Equal(t, "square", tmpl.ID)
	assert.Equal(t, 1080, tmpl.Width)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("id: bad\nwidth: 10\nheight: 10\nslots:\n  - {x: 0.6, y: 0, width: 0.6, height: 1}\n"), 0644))
	_, err = LoadTemplate(bad)
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
}
