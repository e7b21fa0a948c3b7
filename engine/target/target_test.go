package target

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrel3d/kestrel/engine/texture"
)

func TestNewRenderTargetDefaults(t *testing.T) {
	rt := NewRenderTarget()
	w, h := rt.Size()
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
	assert.Len(t, rt.Attachments(), 1)
	assert.True(t, rt.NeedsRebuild(), "a fresh target needs its initial allocation")
}

func TestSetSizeMarksDirty(t *testing.T) {
	rt := NewRenderTarget(WithSize(256, 128))
	rt.MarkRebuilt()
	assert.False(t, rt.NeedsRebuild())

	rt.SetSize(512, 256)
	assert.True(t, rt.NeedsRebuild())

	rt.MarkRebuilt()
	rt.SetSize(512, 256)
	assert.False(t, rt.NeedsRebuild(), "a no-op resize must not dirty the target")
}

func TestMultipleAttachments(t *testing.T) {
	s := texture.SamplerConfig{
		MagFilter: texture.FilterNearest,
		MinFilter: texture.FilterNearest,
		WrapS:     texture.WrapRepeat,
		WrapT:     texture.WrapRepeat,
	}
	rt := NewRenderTarget(WithAttachments(texture.DefaultSampler(), s))

	attachments := rt.Attachments()
	assert.Len(t, attachments, 2)
	assert.Equal(t, texture.FilterNearest, attachments[1].MagFilter)
}

func TestDisposeRunsOnce(t *testing.T) {
	rt := NewRenderTarget()
	calls := 0
	rt.OnDispose(func() { calls++ })
	rt.Dispose()
	rt.Dispose()
	assert.Equal(t, 1, calls)
}
