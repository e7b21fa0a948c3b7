package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextureDefaults(t *testing.T) {
	tex := NewTexture()
	assert.False(t, tex.Ready())
	assert.False(t, tex.NeedsUpload())
	assert.NotZero(t, tex.ResourceID())
	assert.Equal(t, DefaultSampler(), tex.Sampler())
}

func TestWithPixelsMarksReady(t *testing.T) {
	pix := make([]byte, 4*2*2)
	tex := NewTexture(WithPixels(pix, 2, 2))
	require.True(t, tex.Ready())
	assert.True(t, tex.NeedsUpload())

	got, w, h := tex.Pixels()
	assert.Equal(t, uint32(2), w)
	assert.Equal(t, uint32(2), h)
	assert.Len(t, got, 16)
}

func TestMarkUploadedClearsDirty(t *testing.T) {
	tex := NewTexture(WithPixels(make([]byte, 4), 1, 1))
	tex.MarkUploaded()
	assert.False(t, tex.NeedsUpload())
	assert.True(t, tex.Ready())
}

func TestSetPixelsSameSizeKeepsIdentity(t *testing.T) {
	tex := NewTexture(WithPixels(make([]byte, 4), 1, 1))
	id := tex.ResourceID()

	tex.SetPixels(make([]byte, 4), 1, 1)
	assert.Equal(t, id, tex.ResourceID(), "in-place rewrite must not change identity")
	assert.True(t, tex.NeedsUpload())
}

func TestSetPixelsResizeBumpsIdentity(t *testing.T) {
	tex := NewTexture(WithPixels(make([]byte, 4), 1, 1))
	id := tex.ResourceID()

	tex.SetPixels(make([]byte, 16), 2, 2)
	assert.NotEqual(t, id, tex.ResourceID(), "resize must force reallocation via a fresh identity")
}

func TestLoaderDeliversPixels(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	tex := NewTexture()
	l := NewLoader(WithWorkers(1))
	l.LoadBytes(buf.Bytes(), tex)
	l.Wait()

	require.True(t, tex.Ready())
	pix, w, h := tex.Pixels()
	assert.Equal(t, uint32(4), w)
	assert.Equal(t, uint32(4), h)
	assert.Len(t, pix, 4*4*4)
}

func TestLoaderDownscalesLargeImages(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	tex := NewTexture()
	l := NewLoader(WithWorkers(1), WithMaxDimension(4))
	l.LoadBytes(buf.Bytes(), tex)
	l.Wait()

	require.True(t, tex.Ready())
	_, w, h := tex.Pixels()
	assert.Equal(t, uint32(4), w)
	assert.Equal(t, uint32(2), h)
}

func TestLoaderAbsorbsBadSource(t *testing.T) {
	tex := NewTexture()
	l := NewLoader(WithWorkers(1))
	l.LoadBytes([]byte("not an image"), tex)
	l.Wait()

	assert.False(t, tex.Ready(), "failed decode leaves the texture unready")
}
