// Package gem provides a software implementation of the winsys driver
// contract. Objects live in process memory, submissions retire in order on a
// single timeline, and GPU addresses are assigned by a bump allocator over
// the configured aperture. It exists so the library and its consumers can run
// without hardware, and so tests can exercise failure paths through fault
// hooks.
package gem

import (
	"sync"
	"time"

	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/winsys/driver"
)

const (
	defaultApertureMappable = 256 * 1024 * 1024
	defaultApertureTotal    = 512 * 1024 * 1024

	// Objects are always placed on page boundaries.
	pageAlignment uint = 4096
)

var (
	// StaleHandleError is returned for a handle whose generation no longer
	// matches the slot it names.
	StaleHandleError error = errors.New("stale object handle")
	// DeviceClosedError is returned for any operation on a closed device.
	DeviceClosedError error = errors.New("device is closed")
)

// Options configure a software Device. The zero value describes a fully
// capable device with default aperture sizes.
type Options struct {
	ChipID uint32

	ApertureMappable int
	ApertureTotal    int

	// Rings restricts the execution rings the device accepts submissions on.
	// Nil means all rings.
	Rings []driver.RingKind

	DisableRelaxedDelta bool
	DisableLLC          bool
	DisablePPGTT        bool
	DisableSOLReset     bool
	DisableResetStats   bool
	DisableTimestamp    bool
	DisableContexts     bool
}

// Faults are optional hooks tests install to force failures on specific
// paths. A nil hook leaves the path untouched.
type Faults struct {
	CreateObject  func(name string, size int) error
	CreateContext func() error
	Map           func(h driver.Handle, kind driver.MapKind) error
	Unmap         func(h driver.Handle) error
	Exec          func(ring driver.RingKind) error
	Pread         func(h driver.Handle) error
	Pwrite        func(h driver.Handle) error
	GetResetStats func(ctx driver.ContextID) error

	// SetTiling, when present, overrides the tiling mode the device reports
	// as applied, which lets tests provoke a tiling mismatch.
	SetTiling func(requested driver.TilingMode) driver.TilingMode
}

type object struct {
	name    string
	size    int
	data    []byte
	tiling  driver.TilingMode
	pitch   int
	cpuInit bool

	mapCount int
	flink    uint32
	primeFD  int
	// refs counts the handles aliasing this object; registry entries are
	// dropped when it reaches zero.
	refs int

	// busySeq is the submission sequence number of the last Exec referencing
	// this object; the object is busy while busySeq > the device's retired
	// sequence number.
	busySeq uint64
	offset  uint64
}

type slot struct {
	generation uint32
	obj        *object
}

type contextState struct {
	stats driver.ResetStats
}

// Device is an in-memory driver.Device. Safe for concurrent use.
type Device struct {
	Faults Faults

	opts Options

	mutex sync.Mutex
	// slot 0 is never issued so the zero Handle stays invalid
	slots    []slot
	freeList []uint32

	// The registries reference objects directly rather than handles, so a
	// published name stays resolvable after the exporting handle is closed.
	flinkNames *swiss.Map[uint32, *object]
	primeFDs   *swiss.Map[int, *object]
	nextFlink  uint32
	nextFD     int

	contexts    map[driver.ContextID]*contextState
	nextContext driver.ContextID

	nextSeq    uint64
	retiredSeq uint64
	nextOffset uint64

	closed bool
}

// NewDevice creates a software device from options.
func NewDevice(opts Options) *Device {
	if opts.ApertureMappable == 0 {
		opts.ApertureMappable = defaultApertureMappable
	}
	if opts.ApertureTotal == 0 {
		opts.ApertureTotal = defaultApertureTotal
	}

	return &Device{
		opts:        opts,
		slots:       make([]slot, 1),
		flinkNames:  swiss.NewMap[uint32, *object](8),
		primeFDs:    swiss.NewMap[int, *object](8),
		nextFlink:   1,
		nextFD:      128,
		contexts:    make(map[driver.ContextID]*contextState),
		nextContext: 1,
		nextOffset:  uint64(pageAlignment),
	}
}

// lookup resolves a handle under the device mutex.
func (d *Device) lookup(h driver.Handle) (*object, error) {
	if d.closed {
		return nil, DeviceClosedError
	}
	if h.Index == 0 || int(h.Index) >= len(d.slots) {
		return nil, cerrors.Wrapf(StaleHandleError, "handle index %d was never issued", h.Index)
	}

	s := &d.slots[h.Index]
	if s.obj == nil || s.generation != h.Generation {
		return nil, cerrors.Wrapf(StaleHandleError, "handle %d generation %d does not match slot generation %d", h.Index, h.Generation, s.generation)
	}

	return s.obj, nil
}

func (d *Device) allocSlot(obj *object) driver.Handle {
	if len(d.freeList) > 0 {
		index := d.freeList[len(d.freeList)-1]
		d.freeList = d.freeList[:len(d.freeList)-1]

		s := &d.slots[index]
		s.generation++
		s.obj = obj
		return driver.Handle{Index: index, Generation: s.generation}
	}

	d.slots = append(d.slots, slot{generation: 1, obj: obj})
	return driver.Handle{Index: uint32(len(d.slots) - 1), Generation: 1}
}

// Validate checks arena consistency. Used with utils.DebugValidate under the
// debug_winsys build tag.
func (d *Device) Validate() error {
	for _, index := range d.freeList {
		if index == 0 || int(index) >= len(d.slots) {
			return cerrors.Newf("free list names slot %d which does not exist", index)
		}
		if d.slots[index].obj != nil {
			return cerrors.Newf("free list names slot %d which still holds an object", index)
		}
	}

	return nil
}

func (d *Device) Param(p driver.Param) (int, bool) {
	boolToInt := func(disabled bool) int {
		if disabled {
			return 0
		}
		return 1
	}

	switch p {
	case driver.ParamHasRelaxedDelta:
		return boolToInt(d.opts.DisableRelaxedDelta), true
	case driver.ParamHasLLC:
		return boolToInt(d.opts.DisableLLC), true
	case driver.ParamHasAliasingPPGTT:
		return boolToInt(d.opts.DisablePPGTT), true
	case driver.ParamHasSOLReset:
		return boolToInt(d.opts.DisableSOLReset), true
	case driver.ParamHasResetStats:
		return boolToInt(d.opts.DisableResetStats), true
	}

	return 0, false
}

func (d *Device) ApertureSizes() (mappable, total int, err error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.closed {
		return 0, 0, DeviceClosedError
	}

	return d.opts.ApertureMappable, d.opts.ApertureTotal, nil
}

func (d *Device) ChipID() uint32 {
	return d.opts.ChipID
}

func (d *Device) ReadRegister(reg uint32) (uint64, error) {
	if d.opts.DisableTimestamp && reg == driver.TimestampRegister {
		return 0, errors.New("register is not readable on this device")
	}

	return uint64(time.Now().UnixNano()), nil
}

func (d *Device) CreateContext() (driver.ContextID, error) {
	if d.Faults.CreateContext != nil {
		if err := d.Faults.CreateContext(); err != nil {
			return 0, err
		}
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.closed {
		return 0, DeviceClosedError
	}
	if d.opts.DisableContexts {
		return 0, errors.New("hardware contexts are not supported on this device")
	}

	ctx := d.nextContext
	d.nextContext++
	d.contexts[ctx] = &contextState{}

	return ctx, nil
}

func (d *Device) DestroyContext(ctx driver.ContextID) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, live := d.contexts[ctx]; !live {
		return cerrors.Newf("context %d is not live", ctx)
	}
	delete(d.contexts, ctx)

	return nil
}

func (d *Device) GetResetStats(ctx driver.ContextID) (driver.ResetStats, error) {
	if d.Faults.GetResetStats != nil {
		if err := d.Faults.GetResetStats(ctx); err != nil {
			return driver.ResetStats{}, err
		}
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.opts.DisableResetStats {
		return driver.ResetStats{}, errors.New("reset stats are not supported on this device")
	}

	state, live := d.contexts[ctx]
	if !live {
		return driver.ResetStats{}, cerrors.Newf("context %d is not live", ctx)
	}

	return state.stats, nil
}

// InjectReset records a simulated device reset against a live context, for
// tests and tools that need to exercise loss reporting.
func (d *Device) InjectReset(ctx driver.ContextID, activeLost, pendingLost uint32) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	state, live := d.contexts[ctx]
	if !live {
		return
	}

	state.stats.ResetCount++
	state.stats.ActiveLost += activeLost
	state.stats.PendingLost += pendingLost
}

func (d *Device) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.closed {
		return DeviceClosedError
	}
	d.closed = true

	return nil
}
