package winsys

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/xid"
	"github.com/vkngwrapper/core/v2/common"
	"github.com/vkngwrapper/winsys/driver"
	"github.com/vkngwrapper/winsys/internal/utils"
	"golang.org/x/exp/slog"
)

// SubmitFlags carry per-submission options alongside the ring selection.
type SubmitFlags int32

var submitFlagsMapping = common.NewFlagStringMapping[SubmitFlags]()

func (f SubmitFlags) Register(str string) {
	submitFlagsMapping.Register(f, str)
}
func (f SubmitFlags) String() string {
	return submitFlagsMapping.FlagsToString(f)
}

const (
	// SubmitSOLReset resets stream-output offsets before the batch executes.
	// Only valid on devices reporting CapSOLReset.
	SubmitSOLReset SubmitFlags = 1 << iota
)

func init() {
	SubmitSOLReset.Register("SubmitSOLReset")
}

// SubmissionID identifies one accepted submission for logging and
// correlation. It carries no completion semantics; completion is observed
// only by waiting on the objects the submission referenced.
type SubmissionID string

// Submit resolves every relocation in the batch's table to a current
// address, attaches the session's persistent context if and only if ring is
// the render ring, and dispatches usedBytes of the batch to that ring.
//
// Ring selection is a pure mapping with no fallback: an unsupported ring
// yields SubmissionFailedError rather than silent redirection. On any
// failure the relocation table is left unchanged so the caller may inspect
// or retry. On success the table is consumed, every referenced target is
// in flight until a subsequent Wait observes completion, and each target's
// presumed address is refreshed.
//
// Submit is fire-and-forget: it never blocks on completion.
func (s *Session) Submit(batch *MemoryObject, usedBytes int, ring RingKind, flags SubmitFlags) (SubmissionID, error) {
	s.logger.Debug("winsys.Session::Submit",
		slog.String("Name", batch.name),
		slog.Int("UsedBytes", usedBytes),
		slog.String("Ring", ring.String()),
	)

	if batch.state != batchReady {
		panic("attempted to submit a command buffer that is not ready")
	}
	utils.DebugValidate(batch.relocs)

	if flags&SubmitSOLReset != 0 && s.caps&CapSOLReset == 0 {
		return "", errors.Wrap(SubmissionFailedError, "SubmitSOLReset requires CapSOLReset")
	}

	relocs := make([]driver.RelocEntry, len(batch.relocs.entries))
	for i, entry := range batch.relocs.entries {
		relocs[i] = driver.RelocEntry{
			Offset:       entry.offset,
			Target:       entry.target.handle,
			TargetOffset: entry.targetOffset,
			ReadDomains:  entry.readDomains,
			WriteDomain:  entry.writeDomain,
			NeedsFence:   entry.needsFence,
		}
	}

	// Logical contexts are only available for the render ring.
	var ctx driver.ContextID
	if ring == RingRender {
		ctx = s.ctx
	}

	err := s.device.Exec(batch.handle, usedBytes, ring, driver.ExecFlags(flags), ctx, relocs)
	if err != nil {
		return "", errors.Wrapf(SubmissionFailedError, "ring %s rejected %q: %s", ring.String(), batch.name, err.Error())
	}

	// Addresses are authoritative now and only now; refresh each presumed
	// offset before the targets move again.
	s.refreshPresumed(batch)
	for i := range batch.relocs.entries {
		s.refreshPresumed(batch.relocs.entries[i].target)
	}

	// The table is consumed by a successful submission.
	batch.relocs.truncate(0)
	batch.state = batchSubmitted

	s.statsMutex.Lock()
	s.stats.SubmissionCount++
	s.statsMutex.Unlock()

	return SubmissionID(xid.New().String()), nil
}

func (s *Session) refreshPresumed(obj *MemoryObject) {
	offset, err := s.device.Offset(obj.handle)
	if err != nil {
		// A failed refresh just leaves the hint stale, which it already is
		// by definition.
		return
	}
	obj.presumed.Store(offset)
}

// QueryResetStats reports GPU context loss accumulated since the session's
// context was created: work lost while actively executing and work lost
// while pending. Fails with QueryFailedError if the context was never
// created or the backend refuses the query.
func (s *Session) QueryResetStats() (activeLost, pendingLost uint32, err error) {
	s.logger.Debug("winsys.Session::QueryResetStats")

	if s.ctx == 0 {
		return 0, 0, errors.Wrap(QueryFailedError, "the session has no hardware context")
	}

	stats, err := s.device.GetResetStats(s.ctx)
	if err != nil {
		return 0, 0, errors.Wrapf(QueryFailedError, "backend refused: %s", err.Error())
	}

	return stats.ActiveLost, stats.PendingLost, nil
}
