package winsys

import "fmt"

// StaleOffset is a GPU address that was current at the moment it was
// recorded, but which the backend may invalidate by relocating the object
// before the next submission. It is a hint for the caller's own bookkeeping,
// never an address to dereference or to bake into state that outlives the
// submission that produced it.
type StaleOffset struct {
	offset uint64
}

func presumeOffset(offset uint64) StaleOffset {
	return StaleOffset{offset: offset}
}

// Hint returns the recorded address. The name is deliberate: by the time the
// call returns, the value may already be stale.
func (o StaleOffset) Hint() uint64 {
	return o.offset
}

func (o StaleOffset) String() string {
	return fmt.Sprintf("StaleOffset(0x%x)", o.offset)
}
