package winsys

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/winsys/gem"
)

func TestCanSubmitFitsWithinAperture(t *testing.T) {
	_, session := newTestSession(t, gem.Options{
		ApertureMappable: 64 * 1024,
		ApertureTotal:    64 * 1024,
	})
	defer session.Close()

	batch := newTestBatch(t, session)
	defer batch.Unref()
	target, err := session.AllocObject("target", 16*1024, false)
	require.NoError(t, err)
	defer target.Unref()

	require.True(t, session.CanSubmit([]*MemoryObject{batch, target}))
}

func TestCanSubmitRejectsOversizedWorkingSet(t *testing.T) {
	_, session := newTestSession(t, gem.Options{
		ApertureMappable: 64 * 1024,
		ApertureTotal:    64 * 1024,
	})
	defer session.Close()

	// Creation is not admission: an object larger than the aperture can
	// exist, it just cannot be part of a submittable working set.
	huge, err := session.AllocObject("huge", 128*1024, false)
	require.NoError(t, err)
	defer huge.Unref()

	require.False(t, session.CanSubmit([]*MemoryObject{huge}))
}

func TestCanSubmitDeduplicatesHandles(t *testing.T) {
	_, session := newTestSession(t, gem.Options{
		ApertureMappable: 64 * 1024,
		ApertureTotal:    64 * 1024,
	})
	defer session.Close()

	// 40KiB fits once but not twice; a duplicated entry must count once.
	obj, err := session.AllocObject("counted-once", 40*1024, false)
	require.NoError(t, err)
	defer obj.Unref()

	require.True(t, session.CanSubmit([]*MemoryObject{obj, obj, obj}))
}

func TestCanSubmitAccountsForResidentObjects(t *testing.T) {
	_, session := newTestSession(t, gem.Options{
		ApertureMappable: 64 * 1024,
		ApertureTotal:    64 * 1024,
	})
	defer session.Close()

	batch := newTestBatch(t, session)
	defer batch.Unref()
	writeDwords(t, batch, miBatchBufferEnd)

	resident, err := session.AllocObject("resident", 40*1024, false)
	require.NoError(t, err)
	defer resident.Unref()

	follower, err := session.AllocObject("follower", 40*1024, false)
	require.NoError(t, err)
	defer follower.Unref()

	require.True(t, session.CanSubmit([]*MemoryObject{batch, resident}))

	batch.BeginBatch()
	_, err = batch.AddReloc(0, resident, 0, RelocWrite)
	require.NoError(t, err)
	batch.FinishBatch()
	_, err = session.Submit(batch, 4096, RingRender, 0)
	require.NoError(t, err)

	// The first submission is still in flight, so its footprint counts
	// against the follower.
	require.False(t, session.CanSubmit([]*MemoryObject{follower}))

	require.NoError(t, resident.Wait(-1))
	require.True(t, session.CanSubmit([]*MemoryObject{follower}))
}

func TestCanSubmitNilEntryPanics(t *testing.T) {
	_, session := newTestSession(t, gem.Options{})
	defer session.Close()

	require.Panics(t, func() {
		session.CanSubmit([]*MemoryObject{nil})
	})
}
