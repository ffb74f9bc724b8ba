package detection

import (
	"math"
	"time"

	"safetycarbot/pkg/drivers"
)

// EventType names the incident categories the generator tracks.
type EventType string

const (
	EventRandom   EventType = "random"
	EventStopped  EventType = "stopped"
	EventOffTrack EventType = "off_track"
	EventTowing   EventType = "towing"
	EventFlags    EventType = "driver_flags"
)

// Result is one detector's output for a tick. Car-based detectors fill Cars;
// the random detector only sets Fired.
type Result struct {
	Type  EventType
	Cars  []drivers.Driver
	Fired bool
}

func (r Result) HasCars() bool {
	return len(r.Cars) > 0
}

// CarIdxs returns the flagged car indexes in field order.
func (r Result) CarIdxs() []int {
	idxs := make([]int, len(r.Cars))
	for i, d := range r.Cars {
		idxs[i] = d.Idx
	}
	return idxs
}

// ScaleThreshold applies the race-start multiplier: for the first window
// after green the trigger thresholds are raised to ride out standing-start
// chaos. A zero multiplier disables scaling.
func ScaleThreshold(base int, multiplier float64, sinceGreen, window time.Duration) int {
	if multiplier == 0 || sinceGreen >= window {
		return base
	}
	return int(math.Ceil(float64(base) * multiplier))
}
