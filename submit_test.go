package winsys

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/winsys/driver"
	"github.com/vkngwrapper/winsys/gem"
)

func writeDwords(t *testing.T, obj *MemoryObject, dwords ...uint32) {
	t.Helper()

	data := make([]byte, len(dwords)*4)
	for i, dword := range dwords {
		binary.LittleEndian.PutUint32(data[i*4:], dword)
	}
	require.NoError(t, obj.Write(0, data))
}

func TestSubmitEndToEnd(t *testing.T) {
	_, session := newTestSession(t, gem.Options{})
	defer session.Close()

	batch := newTestBatch(t, session)
	defer batch.Unref()
	target, err := session.AllocObject("render-target", 8192, false)
	require.NoError(t, err)
	defer target.Unref()

	writeDwords(t, batch,
		miNoop, miNoop, miNoop, miNoop,
		0, // patched by the relocation at offset 16
		miBatchBufferEnd,
	)

	batch.BeginBatch()
	_, err = batch.AddReloc(16, target, 0, RelocWrite)
	require.NoError(t, err)
	batch.FinishBatch()

	id, err := session.Submit(batch, 24, RingRender, 0)
	require.NoError(t, err)
	require.NotEmpty(t, string(id))

	// A successful submission consumes the table and refreshes presumed
	// addresses.
	require.Zero(t, batch.RelocCount())
	require.NotZero(t, batch.PresumedOffset().Hint())
	require.NotZero(t, target.PresumedOffset().Hint())

	// The batch carries the target's patched address at the reloc site.
	patched, err := batch.Read(16, 4)
	require.NoError(t, err)
	require.Equal(t, uint32(target.PresumedOffset().Hint()), binary.LittleEndian.Uint32(patched))

	require.NoError(t, target.Wait(-1))
	require.NoError(t, batch.Wait(-1))

	require.Equal(t, 1, session.CalculateStatistics().SubmissionCount)
}

func TestSubmitRequiresReadyBatch(t *testing.T) {
	_, session := newTestSession(t, gem.Options{})
	defer session.Close()

	batch := newTestBatch(t, session)
	defer batch.Unref()

	require.Panics(t, func() {
		_, _ = session.Submit(batch, 4096, RingRender, 0)
	})

	batch.BeginBatch()
	require.Panics(t, func() {
		_, _ = session.Submit(batch, 4096, RingRender, 0)
	})
}

func TestSubmitFailureKeepsRelocTable(t *testing.T) {
	device, session := newTestSession(t, gem.Options{})
	defer session.Close()

	batch := newTestBatch(t, session)
	defer batch.Unref()
	target, err := session.AllocObject("target", 4096, false)
	require.NoError(t, err)
	defer target.Unref()

	writeDwords(t, batch, miBatchBufferEnd)

	batch.BeginBatch()
	_, err = batch.AddReloc(0, target, 0, RelocWrite)
	require.NoError(t, err)
	batch.FinishBatch()

	device.Faults.Exec = func(ring driver.RingKind) error {
		return errors.New("ring hung")
	}

	_, err = session.Submit(batch, 4096, RingRender, 0)
	require.ErrorIs(t, err, SubmissionFailedError)
	require.Equal(t, 1, batch.RelocCount())
	require.Zero(t, session.CalculateStatistics().SubmissionCount)

	// The table survived, so clearing the fault lets the same batch go
	// through.
	device.Faults.Exec = nil
	_, err = session.Submit(batch, 4096, RingRender, 0)
	require.NoError(t, err)
	require.Zero(t, batch.RelocCount())
}

func TestSubmitUnsupportedRing(t *testing.T) {
	_, session := newTestSession(t, gem.Options{
		Rings: []driver.RingKind{driver.RingRender},
	})
	defer session.Close()

	batch := newTestBatch(t, session)
	defer batch.Unref()

	writeDwords(t, batch, miBatchBufferEnd)
	batch.BeginBatch()
	batch.FinishBatch()

	_, err := session.Submit(batch, 4096, RingBLT, 0)
	require.ErrorIs(t, err, SubmissionFailedError)
}

func TestSubmitContextlessRings(t *testing.T) {
	_, session := newTestSession(t, gem.Options{})
	defer session.Close()

	for _, ring := range []RingKind{RingBSD, RingBLT, RingVEBox} {
		batch := newTestBatch(t, session)
		writeDwords(t, batch, miBatchBufferEnd)
		batch.BeginBatch()
		batch.FinishBatch()

		_, err := session.Submit(batch, 4096, ring, 0)
		require.NoError(t, err)

		require.NoError(t, batch.Wait(-1))
		batch.Unref()
	}
}

func TestSubmitSOLResetRequiresCap(t *testing.T) {
	_, session := newTestSession(t, gem.Options{DisableSOLReset: true})
	defer session.Close()

	batch := newTestBatch(t, session)
	defer batch.Unref()

	writeDwords(t, batch, miBatchBufferEnd)
	batch.BeginBatch()
	batch.FinishBatch()

	_, err := session.Submit(batch, 4096, RingRender, SubmitSOLReset)
	require.ErrorIs(t, err, SubmissionFailedError)
}

func TestQueryResetStats(t *testing.T) {
	device, session := newTestSession(t, gem.Options{})
	defer session.Close()

	activeLost, pendingLost, err := session.QueryResetStats()
	require.NoError(t, err)
	require.Zero(t, activeLost)
	require.Zero(t, pendingLost)

	// The session's persistent context is the first one the device created.
	device.InjectReset(driver.ContextID(1), 2, 3)

	activeLost, pendingLost, err = session.QueryResetStats()
	require.NoError(t, err)
	require.Equal(t, uint32(2), activeLost)
	require.Equal(t, uint32(3), pendingLost)
}

func TestQueryResetStatsBackendFailure(t *testing.T) {
	device, session := newTestSession(t, gem.Options{})
	defer session.Close()

	device.Faults.GetResetStats = func(ctx driver.ContextID) error {
		return errors.New("query refused")
	}

	_, _, err := session.QueryResetStats()
	require.ErrorIs(t, err, QueryFailedError)
}

func TestDecodeBatch(t *testing.T) {
	var sink bytes.Buffer

	device := gem.NewDevice(gem.Options{})
	session, err := Open(device, CreateOptions{DecodeSink: &sink})
	require.NoError(t, err)
	defer session.Close()

	batch := newTestBatch(t, session)
	defer batch.Unref()

	writeDwords(t, batch, miNoop, miBatchBufferEnd, 0x12345678)

	session.DecodeBatch(batch, 12)
	require.Equal(t,
		"0x00000000: 0x00000000 MI_NOOP\n"+
			"0x00000004: 0x05000000 MI_BATCH_BUFFER_END\n"+
			"0x00000008: 0x12345678\n",
		sink.String())
}

func TestDecodeBatchSwallowsFailures(t *testing.T) {
	var sink bytes.Buffer

	device := gem.NewDevice(gem.Options{})
	session, err := Open(device, CreateOptions{DecodeSink: &sink})
	require.NoError(t, err)
	defer session.Close()

	batch := newTestBatch(t, session)
	defer batch.Unref()

	device.Faults.Map = func(h driver.Handle, kind driver.MapKind) error {
		return errors.New("mmap refused")
	}

	require.NotPanics(t, func() {
		session.DecodeBatch(batch, 4096)
	})
	require.Empty(t, sink.String())
}
