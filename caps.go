package winsys

import "github.com/vkngwrapper/core/v2/common"

// Caps describes the optional capabilities a session's device reported at
// open time. Callers must behave correctly when a capability is absent: a
// cleared flag is an answer, never an error.
type Caps int32

var capsMapping = common.NewFlagStringMapping[Caps]()

func (c Caps) Register(str string) {
	capsMapping.Register(c, str)
}
func (c Caps) String() string {
	return capsMapping.FlagsToString(c)
}

const (
	// CapRelaxedDelta indicates kernel support for negative relocation
	// deltas. It is mandatory and therefore always present on an open
	// session; Open fails without it.
	CapRelaxedDelta Caps = 1 << iota
	// CapLLC indicates a last-level cache shared between CPU and GPU.
	CapLLC
	// CapPPGTT indicates per-process page-table translation support.
	CapPPGTT
	// CapTimestamp indicates the hardware timestamp register is readable.
	CapTimestamp
	// CapResetStats indicates the kernel reports context loss counters after
	// a GPU reset.
	CapResetStats
	// CapSOLReset indicates stream-output state can be reset at submission.
	CapSOLReset
)

func init() {
	CapRelaxedDelta.Register("CapRelaxedDelta")
	CapLLC.Register("CapLLC")
	CapPPGTT.Register("CapPPGTT")
	CapTimestamp.Register("CapTimestamp")
	CapResetStats.Register("CapResetStats")
	CapSOLReset.Register("CapSOLReset")
}

// Info carries the device identity and aperture geometry probed at open
// time.
type Info struct {
	// ChipID is the device identifier.
	ChipID uint32
	// ApertureMappable is the CPU-mappable portion of the aperture in bytes.
	ApertureMappable int
	// ApertureTotal is the total GPU-addressable aperture in bytes.
	ApertureTotal int
}
