package winsys

import "github.com/vkngwrapper/winsys/driver"

// TilingMode selects the memory layout transform applied to an object. X and
// Y tiling constrain the pitch: x-tiled pitches must be 512-byte aligned,
// y-tiled pitches 128-byte aligned.
type TilingMode = driver.TilingMode

const (
	TilingNone = driver.TilingNone
	TilingX    = driver.TilingX
	TilingY    = driver.TilingY
)

// RingKind names an independent hardware execution queue. The session's
// persistent context is bound to the render ring; submissions to other rings
// run contextless.
type RingKind = driver.RingKind

const (
	RingRender = driver.RingRender
	RingBSD    = driver.RingBSD
	RingBLT    = driver.RingBLT
	RingVEBox  = driver.RingVEBox
)

// pitchAlignment returns the pitch alignment constraint of a tiling mode.
// Zero means unconstrained.
func pitchAlignment(mode TilingMode) uint {
	switch mode {
	case TilingX:
		return 512
	case TilingY:
		return 128
	}
	return 0
}
