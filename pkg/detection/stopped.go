package detection

import (
	"safetycarbot/pkg/drivers"
)

// StoppedDetector flags cars whose total distance did not advance since the
// previous tick. Pit traffic and feed glitches are excluded, and a tick where
// nearly the whole field reads as stopped is discarded wholesale: that is a
// lag spike, not a pile-up.
type StoppedDetector struct{}

func NewStoppedDetector() *StoppedDetector {
	return &StoppedDetector{}
}

func (d *StoppedDetector) Detect(deltas []drivers.Delta) Result {
	stopped := []drivers.Driver{}
	for _, delta := range deltas {
		current := delta.Current
		if !current.Active() {
			continue
		}
		if current.Surface.InPits() {
			continue
		}
		if current.LapDistPct < 0 {
			continue
		}

		progress := delta.Progress()
		if progress < 0 {
			// glitch, not movement either way
			continue
		}
		if progress == 0 {
			stopped = append(stopped, current)
		}
	}

	// whole-field lag fix
	if len(deltas) > 0 && len(stopped) >= len(deltas)-1 {
		stopped = nil
	}

	return Result{Type: EventStopped, Cars: stopped}
}
