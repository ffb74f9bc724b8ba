package detection

import (
	"safetycarbot/pkg/drivers"
	"safetycarbot/pkg/telemetry"
)

// OffTrackDetector flags active cars whose surface reads off-track. Cars with
// a negative lap-distance delta this tick are excluded as glitches.
type OffTrackDetector struct{}

func NewOffTrackDetector() *OffTrackDetector {
	return &OffTrackDetector{}
}

func (d *OffTrackDetector) Detect(deltas []drivers.Delta) Result {
	offTrack := []drivers.Driver{}
	for _, delta := range deltas {
		current := delta.Current
		if !current.Active() {
			continue
		}
		if current.Surface != telemetry.SurfaceOffTrack {
			continue
		}
		if current.LapDistPct < 0 {
			continue
		}
		if delta.Progress() < 0 {
			continue
		}
		offTrack = append(offTrack, current)
	}
	return Result{Type: EventOffTrack, Cars: offTrack}
}
