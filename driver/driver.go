// Package driver defines the kernel-facing contract that winsys sessions are
// built on. Implementations translate these calls into whatever the backing
// device understands: the in-repo gem package provides a software device that
// keeps everything in process memory, which is what tests and headless tools
// run against.
package driver

import "time"

// Handle identifies one memory object within a single Device. The generation
// counter guards against stale handles: a Device rejects a Handle whose
// generation no longer matches the slot it names.
type Handle struct {
	Index      uint32
	Generation uint32
}

// IsZero reports whether h is the zero Handle, which no Device ever issues.
func (h Handle) IsZero() bool {
	return h.Index == 0 && h.Generation == 0
}

// ContextID names a persistent hardware context. The zero value means
// "no context" and submissions carrying it run contextless.
type ContextID uint32

// TilingMode selects the memory layout transform applied to an object.
type TilingMode int32

const (
	TilingNone TilingMode = iota
	TilingX
	TilingY
)

var tilingModeMapping = make(map[TilingMode]string)

func (t TilingMode) String() string {
	return tilingModeMapping[t]
}

func init() {
	tilingModeMapping[TilingNone] = "TilingNone"
	tilingModeMapping[TilingX] = "TilingX"
	tilingModeMapping[TilingY] = "TilingY"
}

// RingKind names an independent hardware execution queue.
type RingKind int32

const (
	RingRender RingKind = iota
	RingBSD
	RingBLT
	RingVEBox
)

var ringKindMapping = make(map[RingKind]string)

func (r RingKind) String() string {
	return ringKindMapping[r]
}

func init() {
	ringKindMapping[RingRender] = "RingRender"
	ringKindMapping[RingBSD] = "RingBSD"
	ringKindMapping[RingBLT] = "RingBLT"
	ringKindMapping[RingVEBox] = "RingVEBox"
}

// MapKind selects one of the four mapping paths an object supports. The sync
// kinds block until outstanding GPU work against the object completes; the
// async kinds never block and may observe stale data.
type MapKind int32

const (
	MapKindCPU MapKind = iota
	MapKindCPUAsync
	MapKindGTT
	MapKindGTTAsync
)

var mapKindMapping = make(map[MapKind]string)

func (m MapKind) String() string {
	return mapKindMapping[m]
}

func init() {
	mapKindMapping[MapKindCPU] = "MapKindCPU"
	mapKindMapping[MapKindCPUAsync] = "MapKindCPUAsync"
	mapKindMapping[MapKindGTT] = "MapKindGTT"
	mapKindMapping[MapKindGTTAsync] = "MapKindGTTAsync"
}

// Param identifies a capability the session probes at open time.
type Param int32

const (
	ParamHasRelaxedDelta Param = iota
	ParamHasLLC
	ParamHasAliasingPPGTT
	ParamHasSOLReset
	ParamHasResetStats
)

// Memory access domains for relocation entries. These mirror the domains the
// kernel uses to decide cache flushing and write ordering between engines.
type Domain uint32

const (
	DomainRender Domain = 1 << iota
	DomainSampler
	DomainInstruction
	DomainVertex
	DomainGTT
)

// RelocEntry is one patch site handed to Exec. Offset is the byte position
// inside the batch where the target's final address is written; the domain
// pair tells the kernel how the target will be accessed.
type RelocEntry struct {
	Offset       uint32
	Target       Handle
	TargetOffset uint32
	ReadDomains  Domain
	WriteDomain  Domain
	NeedsFence   bool
}

// ExecFlags carries ring-independent submission options through to the
// device untouched.
type ExecFlags uint32

// ResetStats reports context loss accumulated since context creation.
type ResetStats struct {
	ResetCount  uint32
	ActiveLost  uint32
	PendingLost uint32
}

// TimestampRegister is the hardware register the session reads to probe
// timestamp support.
const TimestampRegister uint32 = 0x2358

// Device is the complete kernel surface the winsys consumes. All methods are
// safe for concurrent use. Every method taking a Handle returns an error if
// the handle's generation is stale or the handle was never issued.
type Device interface {
	// Param returns the value of a probe parameter and whether the probe
	// itself succeeded. A failed probe reports (0, false) and is never an
	// error at this layer.
	Param(p Param) (int, bool)

	// ApertureSizes reports the mappable and total GPU-addressable aperture
	// in bytes.
	ApertureSizes() (mappable, total int, err error)

	// ChipID returns the device identifier.
	ChipID() uint32

	// ReadRegister reads one hardware register. Used by the session to probe
	// timestamp readability; probe failure is absorbed into a capability flag.
	ReadRegister(reg uint32) (uint64, error)

	CreateContext() (ContextID, error)
	DestroyContext(ctx ContextID) error

	// GetResetStats reports context loss counters for ctx.
	GetResetStats(ctx ContextID) (ResetStats, error)

	// CreateObject reserves size bytes of GPU-addressable memory. cpuInit
	// selects CPU-initializable backing over render-optimized backing.
	CreateObject(name string, size int, cpuInit bool) (Handle, error)

	// OpenByName recovers an object previously exported with Flink.
	OpenByName(name string, flink uint32) (Handle, error)

	// ImportPrime recovers an object from a cross-process descriptor.
	ImportPrime(fd int, size int) (Handle, error)

	// CloseObject releases the device's record of the object. The Handle is
	// dead afterwards; its slot may be reissued under a new generation.
	CloseObject(h Handle) error

	// Flink publishes the object under a name valid within this kernel
	// instance and returns it.
	Flink(h Handle) (uint32, error)

	// ExportPrime produces a descriptor-based handle valid across processes.
	ExportPrime(h Handle) (int, error)

	// GlobalHandle returns the raw object handle used by the display
	// subsystem for modesetting.
	GlobalHandle(h Handle) (uint32, error)

	// Size reports the object's size in bytes.
	Size(h Handle) (int, error)

	// Tiling reports the object's current tiling mode and pitch.
	Tiling(h Handle) (TilingMode, int, error)

	// SetTiling requests a tiling transition and returns the mode the device
	// actually applied, which callers must compare against the request.
	SetTiling(h Handle, mode TilingMode, pitch int) (TilingMode, error)

	// Map exposes the object's backing store. Sync kinds block on outstanding
	// GPU writes; async kinds do not.
	Map(h Handle, kind MapKind, forWrite bool) ([]byte, error)

	// Unmap releases a mapping established by Map. An unmap failure leaves
	// the mapping state unknown and is treated as fatal by callers.
	Unmap(h Handle) error

	// Pwrite copies data into the object at offset without mapping it.
	Pwrite(h Handle, offset int, data []byte) error

	// Pread copies len(data) bytes out of the object at offset without
	// mapping it.
	Pread(h Handle, offset int, data []byte) error

	// Busy reports whether any in-flight submission still references h.
	Busy(h Handle) (bool, error)

	// Wait blocks until h is idle or timeout elapses. A negative timeout
	// waits indefinitely.
	Wait(h Handle, timeout time.Duration) error

	// Exec dispatches used bytes of the batch to the named ring, resolving
	// the given relocations to final addresses first. ctx of zero submits
	// contextless.
	Exec(batch Handle, used int, ring RingKind, flags ExecFlags, ctx ContextID, relocs []RelocEntry) error

	// Offset reports the GPU address most recently assigned to h. The value
	// is only current until the next Exec that references h.
	Offset(h Handle) (uint64, error)

	// ResidentBytes reports the total size of objects currently referenced
	// by in-flight submissions.
	ResidentBytes() int

	// Close releases the backing connection. All objects are expected to
	// have been released by their owners beforehand.
	Close() error
}
