package detection

import (
	"testing"

	"safetycarbot/pkg/drivers"
	"safetycarbot/pkg/telemetry"

	"github.com/stretchr/testify/assert"
)

func movingDelta(idx int, laps int, from, to float64) drivers.Delta {
	return drivers.Delta{
		Previous: drivers.Driver{Idx: idx, LapsCompleted: laps, LapDistPct: from, Surface: telemetry.SurfaceOnTrack},
		Current:  drivers.Driver{Idx: idx, LapsCompleted: laps, LapDistPct: to, Surface: telemetry.SurfaceOnTrack},
	}
}

func stoppedDelta(idx int, laps int, at float64) drivers.Delta {
	return movingDelta(idx, laps, at, at)
}

func TestStoppedDetector(t *testing.T) {
	tests := []struct {
		name     string
		deltas   []drivers.Delta
		wantIdxs []int
	}{
		{
			name: "field advancing normally",
			deltas: []drivers.Delta{
				movingDelta(0, 3, 0.10, 0.12),
				movingDelta(1, 3, 0.40, 0.42),
				movingDelta(2, 2, 0.90, 0.93),
			},
			wantIdxs: []int{},
		},
		{
			name: "single stopped car is flagged",
			deltas: []drivers.Delta{
				movingDelta(0, 3, 0.10, 0.12),
				stoppedDelta(1, 3, 0.40),
				movingDelta(2, 2, 0.90, 0.93),
				movingDelta(3, 2, 0.50, 0.52),
			},
			wantIdxs: []int{1},
		},
		{
			name: "two stopped cars are flagged",
			deltas: []drivers.Delta{
				movingDelta(0, 3, 0.10, 0.12),
				stoppedDelta(1, 3, 0.40),
				stoppedDelta(2, 2, 0.41),
				movingDelta(3, 2, 0.50, 0.52),
				movingDelta(4, 2, 0.70, 0.72),
			},
			wantIdxs: []int{1, 2},
		},
		{
			name: "negative distance delta is a glitch not a stop",
			deltas: []drivers.Delta{
				movingDelta(0, 3, 0.10, 0.12),
				movingDelta(1, 3, 0.40, 0.20),
				movingDelta(2, 2, 0.90, 0.93),
			},
			wantIdxs: []int{},
		},
		{
			name: "cars in the pits are ignored",
			deltas: []drivers.Delta{
				movingDelta(0, 3, 0.10, 0.12),
				{
					Previous: drivers.Driver{Idx: 1, LapsCompleted: 3, LapDistPct: 0.40, Surface: telemetry.SurfaceInPitStall},
					Current:  drivers.Driver{Idx: 1, LapsCompleted: 3, LapDistPct: 0.40, Surface: telemetry.SurfaceInPitStall},
				},
				movingDelta(2, 2, 0.90, 0.93),
			},
			wantIdxs: []int{},
		},
		{
			name: "pace car is ignored",
			deltas: []drivers.Delta{
				movingDelta(0, 3, 0.10, 0.12),
				{
					Previous: drivers.Driver{Idx: 63, LapDistPct: 0.40, Surface: telemetry.SurfaceOnTrack, IsPaceCar: true},
					Current:  drivers.Driver{Idx: 63, LapDistPct: 0.40, Surface: telemetry.SurfaceOnTrack, IsPaceCar: true},
				},
				movingDelta(2, 2, 0.90, 0.93),
			},
			wantIdxs: []int{},
		},
		{
			name: "negative lap distance is ignored",
			deltas: []drivers.Delta{
				movingDelta(0, 3, 0.10, 0.12),
				stoppedDelta(1, 0, -1),
				movingDelta(2, 2, 0.90, 0.93),
			},
			wantIdxs: []int{},
		},
		{
			name: "whole field reading stopped is a lag spike",
			deltas: []drivers.Delta{
				stoppedDelta(0, 3, 0.10),
				stoppedDelta(1, 3, 0.40),
				stoppedDelta(2, 2, 0.90),
				stoppedDelta(3, 2, 0.50),
				movingDelta(4, 2, 0.70, 0.72),
			},
			wantIdxs: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewStoppedDetector().Detect(tt.deltas)
			assert.Equal(t, EventStopped, result.Type)
			assert.ElementsMatch(t, tt.wantIdxs, result.CarIdxs())
		})
	}
}
