package winsys

import (
	"github.com/vkngwrapper/winsys/driver"
	"golang.org/x/exp/slog"
)

// CanSubmit estimates whether the combined resident footprint of workingSet,
// on top of objects already resident from earlier submissions, fits within
// the device aperture. The working set should include the command buffer
// itself and every relocation target. The answer is advisory, not a
// reservation: actual residency is decided by the backend at submission
// time. A false answer is a request to split work into smaller batches and
// retry, never an error.
func (s *Session) CanSubmit(workingSet []*MemoryObject) bool {
	seen := make(map[driver.Handle]struct{}, len(workingSet))
	proposed := 0
	for _, obj := range workingSet {
		if obj == nil {
			panic("admission check on a nil memory object")
		}
		if _, dup := seen[obj.handle]; dup {
			continue
		}
		seen[obj.handle] = struct{}{}
		proposed += obj.size
	}

	resident := s.device.ResidentBytes()
	fits := resident+proposed <= s.info.ApertureTotal

	s.logger.Debug("winsys.Session::CanSubmit",
		slog.Int("ProposedBytes", proposed),
		slog.Int("ResidentBytes", resident),
		slog.Int("ApertureTotal", s.info.ApertureTotal),
		slog.Bool("Fits", fits),
	)

	return fits
}
