package winsys

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics aggregate the session's live object population and submission
// activity.
type Statistics struct {
	// ObjectCount is the number of live memory objects.
	ObjectCount int
	// ObjectBytes is the combined size of live memory objects.
	ObjectBytes int
	// SubmissionCount is the number of successful submissions since open.
	SubmissionCount int
}

func (s *Statistics) Clear() {
	s.ObjectCount = 0
	s.ObjectBytes = 0
	s.SubmissionCount = 0
}

// CalculateStatistics snapshots the session's counters.
func (s *Session) CalculateStatistics() Statistics {
	s.statsMutex.Lock()
	defer s.statsMutex.Unlock()

	return s.stats
}

func (s *Session) printStats(json *jwriter.ObjectState, stats Statistics) {
	json.Name("ObjectCount").Int(stats.ObjectCount)
	json.Name("ObjectBytes").Int(stats.ObjectBytes)
	json.Name("SubmissionCount").Int(stats.SubmissionCount)
	json.Name("ResidentBytes").Int(s.device.ResidentBytes())
}

// BuildStatsString produces a JSON description of the session for diagnostic
// dumps: device identity, aperture geometry, probed capabilities, and the
// current statistics.
func (s *Session) BuildStatsString() string {
	writer := jwriter.NewWriter()
	stats := s.CalculateStatistics()

	obj := writer.Object()

	obj.Name("ChipID").Int(int(s.info.ChipID))
	obj.Name("ApertureMappable").Int(s.info.ApertureMappable)
	obj.Name("ApertureTotal").Int(s.info.ApertureTotal)
	obj.Name("Caps").String(s.caps.String())

	statsObj := obj.Name("Statistics").Object()
	s.printStats(&statsObj, stats)
	statsObj.End()

	obj.End()

	return string(writer.Bytes())
}
