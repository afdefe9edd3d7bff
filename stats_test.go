package winsys

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/winsys/gem"
)

func TestCalculateStatistics(t *testing.T) {
	_, session := newTestSession(t, gem.Options{})
	defer session.Close()

	require.Equal(t, Statistics{}, session.CalculateStatistics())

	first, err := session.AllocObject("first", 4096, false)
	require.NoError(t, err)
	second, err := session.AllocObject("second", 8192, false)
	require.NoError(t, err)

	stats := session.CalculateStatistics()
	require.Equal(t, 2, stats.ObjectCount)
	require.Equal(t, 4096+8192, stats.ObjectBytes)
	require.Zero(t, stats.SubmissionCount)

	first.Unref()
	stats = session.CalculateStatistics()
	require.Equal(t, 1, stats.ObjectCount)
	require.Equal(t, 8192, stats.ObjectBytes)

	second.Unref()
}

func TestStatisticsClear(t *testing.T) {
	stats := Statistics{ObjectCount: 3, ObjectBytes: 4096, SubmissionCount: 7}
	stats.Clear()
	require.Equal(t, Statistics{}, stats)
}

func TestBuildStatsString(t *testing.T) {
	_, session := newTestSession(t, gem.Options{ChipID: 0x0166})
	defer session.Close()

	obj, err := session.AllocObject("counted", 4096, false)
	require.NoError(t, err)
	defer obj.Unref()

	var decoded struct {
		ChipID           int
		ApertureMappable int
		ApertureTotal    int
		Caps             string
		Statistics       struct {
			ObjectCount     int
			ObjectBytes     int
			SubmissionCount int
			ResidentBytes   int
		}
	}
	require.NoError(t, json.Unmarshal([]byte(session.BuildStatsString()), &decoded))

	require.Equal(t, 0x0166, decoded.ChipID)
	require.Equal(t, 256*1024*1024, decoded.ApertureMappable)
	require.Equal(t, 512*1024*1024, decoded.ApertureTotal)
	require.Contains(t, decoded.Caps, "CapRelaxedDelta")
	require.Equal(t, 1, decoded.Statistics.ObjectCount)
	require.Equal(t, 4096, decoded.Statistics.ObjectBytes)
	require.Zero(t, decoded.Statistics.SubmissionCount)
	require.Zero(t, decoded.Statistics.ResidentBytes)
}
