package photoframe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSlot(t *testing.T) {
	r, err := ResolveSlot(1080, 1920, Slot{X: 0.1, Y: 0.1, Width: 0.8, Height: 0.4})
	require.NoError(t, err)
	assert.Equal(t, PixelRect{X: 108, Y: 192, Width: 864, Height: 768}, r)
	assert.Equal(t, "9:8", r.AspectLabel())
}

func TestFitCrop(t *testing.T) {
	r, err := FitCrop(4000, 3000, 1)
	require.NoError(t, err)
	assert.Equal(t, CropRect{Left: 500, Top: 0, Width: 3000, Height: 3000}, r)
}

func TestBundledTemplatesLoad(t *testing.T) {
	for _, name := range []string{"story_duo", "square_grid", "landscape_qr"} {
		tmpl, err := LoadTemplate("templates/" + name + ".yaml")
		require.NoError(t, err, name)
		assert.Equal(t, name, tmpl.ID)
		assert.Positive(t, tmpl.Width)
		for i := range tmpl.Slots {
			_, err := tmpl.Resolve(i)
			assert.NoError(t, err, "%s slot %d", name, i)
		}
	}
}
