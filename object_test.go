package winsys

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/winsys/driver"
	"github.com/vkngwrapper/winsys/gem"
)

func TestAllocWriteRead(t *testing.T) {
	_, session := newTestSession(t, gem.Options{})
	defer session.Close()

	obj, err := session.AllocObject("test", 4096, true)
	require.NoError(t, err)
	defer obj.Unref()

	require.Equal(t, "test", obj.Name())
	require.Equal(t, 4096, obj.Size())

	tiling, pitch := obj.Tiling()
	require.Equal(t, TilingNone, tiling)
	require.Zero(t, pitch)

	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, obj.Write(0, payload))

	readBack, err := obj.Read(0, 100)
	require.NoError(t, err)
	require.Equal(t, payload, readBack)
}

func TestMapExposesContents(t *testing.T) {
	_, session := newTestSession(t, gem.Options{})
	defer session.Close()

	obj, err := session.AllocObject("mapped", 4096, true)
	require.NoError(t, err)
	defer obj.Unref()

	require.NoError(t, obj.Write(16, []byte{1, 2, 3, 4}))

	data, err := obj.Map(false)
	require.NoError(t, err)
	require.Len(t, data, 4096)
	require.Equal(t, []byte{1, 2, 3, 4}, data[16:20])
	require.NoError(t, obj.Unmap())

	data, err = obj.MapAsync()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, data[16:20])
	require.NoError(t, obj.Unmap())

	data, err = obj.MapGTT()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, data[16:20])
	require.NoError(t, obj.Unmap())
}

func TestAllocRequiresPositiveSize(t *testing.T) {
	_, session := newTestSession(t, gem.Options{})
	defer session.Close()

	require.Panics(t, func() {
		_, _ = session.AllocObject("empty", 0, true)
	})
}

func TestAllocBackendFailure(t *testing.T) {
	device, session := newTestSession(t, gem.Options{})
	defer session.Close()

	device.Faults.CreateObject = func(name string, size int) error {
		return errors.New("allocator exhausted")
	}

	obj, err := session.AllocObject("doomed", 4096, true)
	require.ErrorIs(t, err, OutOfMemoryError)
	require.Nil(t, obj)
}

func TestSetTiling(t *testing.T) {
	tests := map[string]struct {
		mode    TilingMode
		pitch   int
		invalid bool
	}{
		"linear any pitch": {TilingNone, 13, false},
		"x aligned":        {TilingX, 512, false},
		"x aligned wide":   {TilingX, 2048, false},
		"x misaligned":     {TilingX, 511, true},
		"y aligned":        {TilingY, 128, false},
		"y misaligned":     {TilingY, 129, true},
		"y under aligned":  {TilingY, 64, true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, session := newTestSession(t, gem.Options{})
			defer session.Close()

			obj, err := session.AllocObject("tiled", 8192, false)
			require.NoError(t, err)
			defer obj.Unref()

			err = obj.SetTiling(test.mode, test.pitch)
			if test.invalid {
				require.ErrorIs(t, err, InvalidTilingError)
				require.False(t, IsFatal(err))

				tiling, pitch := obj.Tiling()
				require.Equal(t, TilingNone, tiling)
				require.Zero(t, pitch)
				return
			}

			require.NoError(t, err)
			tiling, pitch := obj.Tiling()
			require.Equal(t, test.mode, tiling)
			require.Equal(t, test.pitch, pitch)
		})
	}
}

func TestSetTilingMismatchIsFatal(t *testing.T) {
	device, session := newTestSession(t, gem.Options{})
	defer session.Close()

	device.Faults.SetTiling = func(requested driver.TilingMode) driver.TilingMode {
		return driver.TilingNone
	}

	obj, err := session.AllocObject("diverged", 8192, false)
	require.NoError(t, err)
	defer obj.Unref()

	err = obj.SetTiling(TilingX, 512)
	require.ErrorIs(t, err, TilingMismatchError)
	require.True(t, IsFatal(err))
}

func TestRefcountFinalizesOnce(t *testing.T) {
	_, session := newTestSession(t, gem.Options{})
	defer session.Close()

	obj, err := session.AllocObject("shared", 4096, true)
	require.NoError(t, err)
	require.Equal(t, 1, session.CalculateStatistics().ObjectCount)

	obj.Ref()
	obj.Unref()
	require.Equal(t, 1, session.CalculateStatistics().ObjectCount)

	obj.Unref()
	stats := session.CalculateStatistics()
	require.Zero(t, stats.ObjectCount)
	require.Zero(t, stats.ObjectBytes)

	require.Panics(t, func() {
		obj.Unref()
	})
}

func TestUnmapWithoutMapPanics(t *testing.T) {
	_, session := newTestSession(t, gem.Options{})
	defer session.Close()

	obj, err := session.AllocObject("unmapped", 4096, true)
	require.NoError(t, err)
	defer obj.Unref()

	require.Panics(t, func() {
		_ = obj.Unmap()
	})
}

func TestMapBackendFailure(t *testing.T) {
	device, session := newTestSession(t, gem.Options{})
	defer session.Close()

	obj, err := session.AllocObject("unmappable", 4096, true)
	require.NoError(t, err)
	defer obj.Unref()

	device.Faults.Map = func(h driver.Handle, kind driver.MapKind) error {
		return errors.New("mmap refused")
	}

	data, err := obj.Map(false)
	require.ErrorIs(t, err, MapFailedError)
	require.Nil(t, data)
}

func TestUnmapBackendFailureIsFatal(t *testing.T) {
	device, session := newTestSession(t, gem.Options{})
	defer session.Close()

	obj, err := session.AllocObject("stuck", 4096, true)
	require.NoError(t, err)
	defer obj.Unref()

	_, err = obj.Map(false)
	require.NoError(t, err)

	device.Faults.Unmap = func(h driver.Handle) error {
		return errors.New("munmap refused")
	}

	err = obj.Unmap()
	require.Error(t, err)
	require.True(t, IsFatal(err))
}

func TestReadWriteBackendFailure(t *testing.T) {
	device, session := newTestSession(t, gem.Options{})
	defer session.Close()

	obj, err := session.AllocObject("offline", 4096, true)
	require.NoError(t, err)
	defer obj.Unref()

	device.Faults.Pwrite = func(h driver.Handle) error {
		return errors.New("write refused")
	}
	device.Faults.Pread = func(h driver.Handle) error {
		return errors.New("read refused")
	}

	require.ErrorIs(t, obj.Write(0, []byte{1}), IOError)
	_, err = obj.Read(0, 1)
	require.ErrorIs(t, err, IOError)
}

func TestWaitAbsorbsBackendErrors(t *testing.T) {
	_, session := newTestSession(t, gem.Options{})

	obj, err := session.AllocObject("idle", 4096, true)
	require.NoError(t, err)

	// Closing the session makes every backend call fail; waiting must still
	// treat the object as idle.
	require.NoError(t, session.Close())
	require.NoError(t, obj.Wait(-1))
}
