package drivers

import (
	"testing"

	"safetycarbot/pkg/telemetry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func car(idx, laps int, pct float64) telemetry.CarState {
	return telemetry.CarState{CarIdx: idx, LapsCompleted: laps, LapDistPct: pct, Surface: telemetry.SurfaceOnTrack}
}

func TestStoreDeltas(t *testing.T) {
	s := NewStore()
	s.Seed([]telemetry.CarState{car(0, 2, 0.10), car(1, 2, 0.50)})

	require.False(t, s.HasDeltas(), "one generation is not enough")
	require.Nil(t, s.Deltas())

	s.Update([]telemetry.CarState{car(0, 2, 0.15), car(1, 2, 0.50)})

	deltas := s.Deltas()
	require.Len(t, deltas, 2)
	assert.InDelta(t, 0.05, deltas[0].Progress(), 1e-9)
	assert.InDelta(t, 0, deltas[1].Progress(), 1e-9)
}

func TestStoreDeltasAfterGridChange(t *testing.T) {
	s := NewStore()
	s.Seed([]telemetry.CarState{car(0, 2, 0.10), car(1, 2, 0.50)})
	s.Update([]telemetry.CarState{car(0, 2, 0.15)})

	assert.Nil(t, s.Deltas(), "generation sizes no longer pair up")
}

func TestTotalDistance(t *testing.T) {
	assert.InDelta(t, 2.25, Driver{LapsCompleted: 2, LapDistPct: 0.25}.TotalDistance(), 1e-9)
	assert.InDelta(t, 2, Driver{LapsCompleted: 2, LapDistPct: -1}.TotalDistance(), 1e-9, "glitched position contributes nothing")
}

func TestLeader(t *testing.T) {
	field := []Driver{
		{Idx: 0, LapsCompleted: 9, LapDistPct: 0.9, Surface: telemetry.SurfaceOnTrack},
		{Idx: 1, LapsCompleted: 10, LapDistPct: 0.1, Surface: telemetry.SurfaceOnTrack},
		{Idx: 63, LapsCompleted: 11, LapDistPct: 0.5, Surface: telemetry.SurfaceOnTrack, IsPaceCar: true},
		{Idx: 2, LapsCompleted: 12, LapDistPct: 0.5, Surface: telemetry.SurfaceNotInWorld},
	}

	leader, ok := Leader(field)
	require.True(t, ok)
	assert.Equal(t, 1, leader.Idx, "pace car and absent cars never lead")

	_, ok = Leader(nil)
	assert.False(t, ok)
}

func TestClassLeaders(t *testing.T) {
	field := []Driver{
		{Idx: 0, ClassID: 1, LapsCompleted: 10, LapDistPct: 0.2, Surface: telemetry.SurfaceOnTrack},
		{Idx: 1, ClassID: 1, LapsCompleted: 10, LapDistPct: 0.6, Surface: telemetry.SurfaceOnTrack},
		{Idx: 2, ClassID: 2, LapsCompleted: 9, LapDistPct: 0.4, Surface: telemetry.SurfaceOnTrack},
		{Idx: 3, ClassID: 2, LapsCompleted: 8, LapDistPct: 0.9, Surface: telemetry.SurfaceOnTrack},
	}

	leaders := ClassLeaders(field)
	require.Len(t, leaders, 2)
	assert.Equal(t, 1, leaders[1].Idx)
	assert.Equal(t, 2, leaders[2].Idx)
}
