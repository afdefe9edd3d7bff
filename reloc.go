package winsys

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/winsys/driver"
	"golang.org/x/exp/slog"
)

// RelocFlags describe how a relocation target will be accessed by the
// commands that reference it.
type RelocFlags int32

var relocFlagsMapping = common.NewFlagStringMapping[RelocFlags]()

func (f RelocFlags) Register(str string) {
	relocFlagsMapping.Register(f, str)
}
func (f RelocFlags) String() string {
	return relocFlagsMapping.FlagsToString(f)
}

const (
	// RelocRead marks the target as read by the referencing commands.
	RelocRead RelocFlags = 1 << iota
	// RelocWrite marks the target as written by the referencing commands.
	RelocWrite
	// RelocFence requests a fence register for the target's tiled access.
	RelocFence
	// RelocGGTT routes the write through the global GTT rather than the
	// per-process address space. Only meaningful together with RelocWrite.
	RelocGGTT
)

func init() {
	RelocRead.Register("RelocRead")
	RelocWrite.Register("RelocWrite")
	RelocFence.Register("RelocFence")
	RelocGGTT.Register("RelocGGTT")
}

// batchState tracks a command buffer through
// recording -> ready -> submitted -> complete. The submitted -> complete
// transition is driven by Wait, not by any polling inside this library.
type batchState int32

const (
	batchIdle batchState = iota
	batchRecording
	batchReady
	batchSubmitted
	batchComplete
)

var batchStateMapping = make(map[batchState]string)

func (s batchState) String() string {
	return batchStateMapping[s]
}

func init() {
	batchStateMapping[batchIdle] = "batchIdle"
	batchStateMapping[batchRecording] = "batchRecording"
	batchStateMapping[batchReady] = "batchReady"
	batchStateMapping[batchSubmitted] = "batchSubmitted"
	batchStateMapping[batchComplete] = "batchComplete"
}

// relocEntry is one recorded patch site. The domain pair is computed at
// record time, so submission only has to hand entries through.
type relocEntry struct {
	offset       uint32
	target       *MemoryObject
	targetOffset uint32
	readDomains  driver.Domain
	writeDomain  driver.Domain
	needsFence   bool
}

// relocTable is the per-command-buffer list of patch sites. It is owned
// exclusively by the recording thread and carries no locking of its own; it
// becomes safely transferable to a submission thread once recording reaches
// the ready state.
type relocTable struct {
	entries  []relocEntry
	capacity int
}

func newRelocTable(capacity int) *relocTable {
	return &relocTable{capacity: capacity}
}

func (t *relocTable) count() int {
	return len(t.entries)
}

// truncate discards all entries from start onward, releasing the reference
// each discarded entry holds on its target. All-or-nothing: surviving
// entries are untouched.
func (t *relocTable) truncate(start int) {
	for i := start; i < len(t.entries); i++ {
		t.entries[i].target.Unref()
		t.entries[i].target = nil
	}
	t.entries = t.entries[:start]
}

// Validate checks table consistency. Used with utils.DebugValidate under the
// debug_winsys build tag.
func (t *relocTable) Validate() error {
	if len(t.entries) > t.capacity {
		return errors.Newf("the relocation table holds %d entries but its capacity is %d", len(t.entries), t.capacity)
	}
	for i := range t.entries {
		if t.entries[i].target == nil {
			return errors.Newf("relocation entry %d has no target", i)
		}
	}

	return nil
}

// BeginBatch starts recording commands into the object. Beginning a fresh or
// previously completed buffer is permitted; beginning one that is still
// in flight is a contract violation. Existing relocation entries survive so a
// partially built buffer can be continued after TruncateRelocs.
func (o *MemoryObject) BeginBatch() {
	o.session.logger.Debug("winsys.MemoryObject::BeginBatch", slog.String("Name", o.name))

	if o.state == batchSubmitted {
		panic("attempted to begin recording into a command buffer that is still in flight")
	}
	if o.relocs == nil {
		o.relocs = newRelocTable(o.session.maxRelocs)
	}
	o.state = batchRecording
}

// FinishBatch marks recording complete. The relocation table is now
// transferable to a submitting thread.
func (o *MemoryObject) FinishBatch() {
	o.session.logger.Debug("winsys.MemoryObject::FinishBatch", slog.String("Name", o.name))

	if o.state != batchRecording {
		panic("attempted to finish a command buffer that is not recording")
	}
	o.state = batchReady
}

// AddReloc appends a patch site at offset referencing target at
// targetOffset. Duplicates are permitted and never deduplicated. The
// returned address is the target's address at the moment of recording, valid
// only as a hint since the backend may relocate the target before
// submission. Fails with TooManyRelocationsError once the capacity fixed at
// command-buffer creation is exhausted, leaving the table unchanged.
func (o *MemoryObject) AddReloc(offset uint32, target *MemoryObject, targetOffset uint32, flags RelocFlags) (StaleOffset, error) {
	if o.state != batchRecording {
		panic("attempted to add a relocation to a command buffer that is not recording")
	}
	if target == nil {
		panic("attempted to add a relocation with a nil target")
	}

	if o.relocs.count() >= o.relocs.capacity {
		return StaleOffset{}, errors.Wrapf(TooManyRelocationsError, "command buffer %q is fixed at %d relocations", o.name, o.relocs.capacity)
	}

	// Translate access flags to domains here so submission is a pure
	// hand-off. A global-GTT write is an instruction-domain access; everything
	// else written by the GPU goes through the render domain.
	var readDomains, writeDomain driver.Domain
	if flags&RelocWrite != 0 {
		writeDomain = driver.DomainRender
		if flags&RelocGGTT != 0 {
			writeDomain = driver.DomainInstruction
		}
		readDomains = writeDomain
	} else {
		readDomains = driver.DomainRender |
			driver.DomainSampler |
			driver.DomainInstruction |
			driver.DomainVertex
	}

	o.relocs.entries = append(o.relocs.entries, relocEntry{
		offset:       offset,
		target:       target.Ref(),
		targetOffset: targetOffset,
		readDomains:  readDomains,
		writeDomain:  writeDomain,
		needsFence:   flags&RelocFence != 0,
	})

	return presumeOffset(target.presumed.Load() + uint64(targetOffset)), nil
}

// TruncateRelocs atomically discards all relocation entries from start
// onward, in support of re-recording a buffer whose trailing commands are
// being replaced. Entries before start are not modified.
func (o *MemoryObject) TruncateRelocs(start int) {
	o.session.logger.Debug("winsys.MemoryObject::TruncateRelocs", slog.String("Name", o.name), slog.Int("Start", start))

	if o.state != batchRecording {
		panic("attempted to truncate relocations on a command buffer that is not recording")
	}
	if start < 0 || start > o.relocs.count() {
		panic("relocation truncation point is out of range")
	}

	o.relocs.truncate(start)
}

// HasReloc reports whether any current entry references target. It is a pure
// query: repeated calls with no intervening AddReloc or TruncateRelocs give
// the same result.
func (o *MemoryObject) HasReloc(target *MemoryObject) bool {
	if o.relocs == nil {
		return false
	}
	for i := range o.relocs.entries {
		if o.relocs.entries[i].target == target {
			return true
		}
	}

	return false
}

// RelocCount reports the number of recorded relocation entries.
func (o *MemoryObject) RelocCount() int {
	if o.relocs == nil {
		return 0
	}
	return o.relocs.count()
}
