package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResource is a minimal Resource for exercising the cache.
type fakeResource struct {
	Disposable
	id uint64
}

func newFakeResource() *fakeResource {
	return &fakeResource{Disposable: NewDisposable(), id: NewID()}
}

func (r *fakeResource) ResourceID() uint64 { return r.id }

func TestNewIDNeverZero(t *testing.T) {
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		require.NotZero(t, id)
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}

func TestGetAfterSetReturnsSameHandle(t *testing.T) {
	c := New[string]()
	r := newFakeResource()

	_, ok := c.Get(r)
	require.False(t, ok)

	c.Set(r, "handle-a", nil)
	got, ok := c.Get(r)
	require.True(t, ok)
	assert.Equal(t, "handle-a", got)
}

func TestIdentityBumpForcesMiss(t *testing.T) {
	c := New[int]()
	r := newFakeResource()
	c.Set(r, 7, nil)

	// A structural change is expressed as a fresh identity.
	r.id = NewID()
	_, ok := c.Get(r)
	assert.False(t, ok)
}

func TestDisposeRunsDisposerOnceAndRemovesEntry(t *testing.T) {
	c := New[int]()
	r := newFakeResource()

	calls := 0
	c.Set(r, 42, func(h int) {
		calls++
		assert.Equal(t, 42, h)
	})
	require.Equal(t, 1, c.Len())

	r.Dispose()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, c.Len())

	r.Dispose()
	assert.Equal(t, 1, calls, "second dispose must be a no-op")
}

func TestMultipleCachesTrackOneResource(t *testing.T) {
	buffers := New[int]()
	layouts := New[string]()
	r := newFakeResource()

	var order []string
	buffers.Set(r, 1, func(int) { order = append(order, "buffer") })
	layouts.Set(r, "vao", func(string) { order = append(order, "layout") })

	r.Dispose()
	assert.Equal(t, []string{"layout", "buffer"}, order, "releases run in reverse registration order")
	assert.Equal(t, 0, buffers.Len())
	assert.Equal(t, 0, layouts.Len())
}

func TestOnDisposeAfterDisposalRunsImmediately(t *testing.T) {
	d := NewDisposable()
	d.Dispose()

	ran := false
	d.OnDispose(func() { ran = true })
	assert.True(t, ran)
}

func TestDeleteDoesNotRunDisposer(t *testing.T) {
	c := New[int]()
	r := newFakeResource()

	calls := 0
	c.Set(r, 9, func(int) { calls++ })
	c.Delete(r)
	require.Equal(t, 0, c.Len())

	r.Dispose()
	// The chained release still runs; only the entry removal became a no-op.
	assert.Equal(t, 1, calls)
}
