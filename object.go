package winsys

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/winsys/driver"
	"github.com/vkngwrapper/winsys/internal/utils"
	"golang.org/x/exp/slog"
)

// MemoryObject is a refcounted allocation of GPU-addressable memory: a DMO.
// It carries a tiling mode, a mapping state, and, when used as a command
// buffer, a relocation table. Ownership is shared: every component holding a
// reference takes one with Ref and the object is finalized when the last
// reference is released.
type MemoryObject struct {
	session *Session
	handle  driver.Handle
	name    string
	size    int

	refs     int32
	presumed atomic.Uint64

	// mutex guards tiling and mapping state; two threads racing a map/unmap
	// or a tiling change would otherwise use an invalid address.
	mutex    utils.OptionalMutex
	tiling   TilingMode
	pitch    int
	mapCount int

	// batch recording state; owned by the recording thread, see reloc.go
	relocs *relocTable
	state  batchState
}

func (s *Session) newObject(handle driver.Handle, name string, size int, tiling TilingMode, pitch int) *MemoryObject {
	obj := &MemoryObject{
		session: s,
		handle:  handle,
		name:    name,
		size:    size,
		refs:    1,
		tiling:  tiling,
		pitch:   pitch,
	}
	obj.mutex.UseMutex = s.useMutex

	s.statsMutex.Lock()
	s.stats.ObjectCount++
	s.stats.ObjectBytes += size
	s.statsMutex.Unlock()

	return obj
}

// AllocObject reserves size bytes of GPU-addressable memory. cpuInit selects
// a CPU-initializable backing strategy over a render-optimized one; both are
// page-aligned. Returns OutOfMemoryError when the backing allocator cannot
// satisfy the request.
func (s *Session) AllocObject(name string, size int, cpuInit bool) (*MemoryObject, error) {
	s.logger.Debug("winsys.Session::AllocObject", slog.String("Name", name), slog.Int("Size", size))

	if size < 1 {
		panic("attempted to allocate a memory object without a positive size")
	}

	handle, err := s.device.CreateObject(name, size, cpuInit)
	if err != nil {
		return nil, errors.Wrapf(OutOfMemoryError, "allocation of %q (%d bytes) failed: %s", name, size, err.Error())
	}

	return s.newObject(handle, name, size, TilingNone, 0), nil
}

// ImportShared recovers an object published under a flink name within this
// kernel instance, along with its existing tiling mode and stride.
func (s *Session) ImportShared(name string, flink uint32) (*MemoryObject, error) {
	s.logger.Debug("winsys.Session::ImportShared", slog.String("Name", name))

	handle, err := s.device.OpenByName(name, flink)
	if err != nil {
		return nil, errors.Wrapf(ImportFailedError, "flink name %d: %s", flink, err.Error())
	}

	return s.adoptImported(handle, name)
}

// ImportPrime recovers an object from a cross-process descriptor, along with
// its existing tiling mode and stride.
func (s *Session) ImportPrime(name string, fd int, size int) (*MemoryObject, error) {
	s.logger.Debug("winsys.Session::ImportPrime", slog.String("Name", name))

	handle, err := s.device.ImportPrime(fd, size)
	if err != nil {
		return nil, errors.Wrapf(ImportFailedError, "descriptor %d: %s", fd, err.Error())
	}

	return s.adoptImported(handle, name)
}

// adoptImported queries the backend for the imported object's current tiling
// state. An object whose tiling cannot be recovered is unusable, so the
// import is unwound.
func (s *Session) adoptImported(handle driver.Handle, name string) (*MemoryObject, error) {
	tiling, pitch, err := s.device.Tiling(handle)
	if err != nil {
		closeErr := s.device.CloseObject(handle)
		if closeErr != nil {
			s.logger.Error("failed to release object after tiling recovery failure", slog.Any("error", closeErr))
		}
		return nil, errors.Wrapf(ImportFailedError, "tiling state could not be recovered: %s", err.Error())
	}

	size, err := s.device.Size(handle)
	if err != nil {
		closeErr := s.device.CloseObject(handle)
		if closeErr != nil {
			s.logger.Error("failed to release object after size query failure", slog.Any("error", closeErr))
		}
		return nil, errors.Wrapf(ImportFailedError, "object size could not be queried: %s", err.Error())
	}

	return s.newObject(handle, name, size, tiling, pitch), nil
}

// Name returns the debug name the object was created or imported with.
func (o *MemoryObject) Name() string { return o.name }

// Size returns the object's size in bytes.
func (o *MemoryObject) Size() int { return o.size }

// Tiling returns the object's current tiling mode and pitch.
func (o *MemoryObject) Tiling() (TilingMode, int) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	return o.tiling, o.pitch
}

// PresumedOffset returns the GPU address the object held after its most
// recent submission, as a stale hint.
func (o *MemoryObject) PresumedOffset() StaleOffset {
	return presumeOffset(o.presumed.Load())
}

// Ref takes a reference. Safe to call from any thread. Returns o for
// chaining.
func (o *MemoryObject) Ref() *MemoryObject {
	atomic.AddInt32(&o.refs, 1)
	return o
}

// Unref releases a reference. When the last reference is released the object
// is finalized exactly once: any relocation targets it still holds are
// released and the backing handle is closed.
func (o *MemoryObject) Unref() {
	refs := atomic.AddInt32(&o.refs, -1)
	if refs < 0 {
		panic("memory object reference count went negative")
	}
	if refs > 0 {
		return
	}

	if o.relocs != nil {
		o.relocs.truncate(0)
		o.relocs = nil
	}

	if err := o.session.device.CloseObject(o.handle); err != nil {
		o.session.logger.Error("failed to close memory object", slog.String("Name", o.name), slog.Any("error", err))
	}

	o.session.statsMutex.Lock()
	o.session.stats.ObjectCount--
	o.session.stats.ObjectBytes -= o.size
	o.session.statsMutex.Unlock()
}

// SetTiling transitions the object to a new tiling mode. The pitch must
// satisfy the mode's alignment constraint or the transition fails with
// InvalidTilingError and the object is unchanged. If the backend reports a
// different mode than requested the object's tiling state is undefined: that
// is a driver-level consistency violation surfaced as a FatalError wrapping
// TilingMismatchError, not a recoverable failure.
func (o *MemoryObject) SetTiling(mode TilingMode, pitch int) error {
	o.session.logger.Debug("winsys.MemoryObject::SetTiling",
		slog.String("Name", o.name),
		slog.String("Mode", mode.String()),
		slog.Int("Pitch", pitch),
	)

	if !utils.IsAligned(pitch, pitchAlignment(mode)) {
		return errors.Wrapf(InvalidTilingError, "%s requires a pitch aligned to %d bytes, got %d", mode.String(), pitchAlignment(mode), pitch)
	}

	o.mutex.Lock()
	defer o.mutex.Unlock()

	applied, err := o.session.device.SetTiling(o.handle, mode, pitch)
	if err != nil {
		return fatal(errors.Wrapf(TilingMismatchError, "tiling transition failed in the backend: %s", err.Error()))
	}
	if applied != mode {
		return fatal(errors.Wrapf(TilingMismatchError, "requested %s but backend applied %s", mode.String(), applied.String()))
	}

	o.tiling = mode
	o.pitch = pitch

	return nil
}

// Map exposes the object through the CPU-visible path, blocking until any
// outstanding GPU work against the object completes. Returns MapFailedError
// and no slice on backend failure.
func (o *MemoryObject) Map(forWrite bool) ([]byte, error) {
	return o.mapObject(driver.MapKindCPU, forWrite)
}

// MapAsync is the non-blocking variant of Map. It never waits on the GPU and
// may therefore observe stale data.
func (o *MemoryObject) MapAsync() ([]byte, error) {
	return o.mapObject(driver.MapKindCPUAsync, false)
}

// MapGTT exposes the object through the GPU aperture, blocking until
// outstanding GPU work completes.
func (o *MemoryObject) MapGTT() ([]byte, error) {
	return o.mapObject(driver.MapKindGTT, false)
}

// MapGTTAsync is the non-blocking variant of MapGTT.
func (o *MemoryObject) MapGTTAsync() ([]byte, error) {
	return o.mapObject(driver.MapKindGTTAsync, false)
}

func (o *MemoryObject) mapObject(kind driver.MapKind, forWrite bool) ([]byte, error) {
	o.session.logger.Debug("winsys.MemoryObject::Map",
		slog.String("Name", o.name),
		slog.String("Kind", kind.String()),
	)

	o.mutex.Lock()
	defer o.mutex.Unlock()

	data, err := o.session.device.Map(o.handle, kind, forWrite)
	if err != nil {
		return nil, errors.Wrapf(MapFailedError, "%s of %q failed: %s", kind.String(), o.name, err.Error())
	}
	o.mapCount++

	return data, nil
}

// Unmap releases a mapping established by one of the Map variants. The
// mapping contract guarantees symmetry, so a backend unmap failure leaves
// the mapping state unknown and is surfaced as a FatalError.
func (o *MemoryObject) Unmap() error {
	o.session.logger.Debug("winsys.MemoryObject::Unmap", slog.String("Name", o.name))

	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.mapCount < 1 {
		panic("attempted to unmap a memory object that is not mapped")
	}

	if err := o.session.device.Unmap(o.handle); err != nil {
		return fatal(errors.Wrapf(err, "unmap of %q failed", o.name))
	}
	o.mapCount--

	return nil
}

// Write copies data into the object at offset through the bounce-buffer
// path, without requiring a mapping. Returns IOError on backend failure.
func (o *MemoryObject) Write(offset int, data []byte) error {
	o.session.logger.Debug("winsys.MemoryObject::Write", slog.String("Name", o.name), slog.Int("Offset", offset), slog.Int("Size", len(data)))

	if err := o.session.device.Pwrite(o.handle, offset, data); err != nil {
		return errors.Wrapf(IOError, "write of %d bytes at offset %d into %q failed: %s", len(data), offset, o.name, err.Error())
	}

	return nil
}

// Read copies size bytes out of the object at offset through the
// bounce-buffer path, without requiring a mapping. Returns IOError on
// backend failure.
func (o *MemoryObject) Read(offset, size int) ([]byte, error) {
	o.session.logger.Debug("winsys.MemoryObject::Read", slog.String("Name", o.name), slog.Int("Offset", offset), slog.Int("Size", size))

	data := make([]byte, size)
	if err := o.session.device.Pread(o.handle, offset, data); err != nil {
		return nil, errors.Wrapf(IOError, "read of %d bytes at offset %d from %q failed: %s", size, offset, o.name, err.Error())
	}

	return data, nil
}

// Wait blocks until the object is no longer referenced by any in-flight
// submission or until timeout elapses; a negative timeout waits
// indefinitely. Timeout expiry is not an error: the object is conservatively
// considered idle afterwards so callers can proceed. Backend wait failures
// are absorbed under the same idle assumption.
func (o *MemoryObject) Wait(timeout time.Duration) error {
	o.session.logger.Debug("winsys.MemoryObject::Wait", slog.String("Name", o.name))

	if err := o.session.device.Wait(o.handle, timeout); err != nil {
		// Consider the object idle on errors.
		o.session.logger.Debug("winsys.MemoryObject::Wait treating object as idle",
			slog.String("Name", o.name),
			slog.Any("error", err),
		)
	}

	if o.state == batchSubmitted {
		o.state = batchComplete
	}

	return nil
}
