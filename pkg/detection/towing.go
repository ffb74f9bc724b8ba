package detection

import (
	"log"
	"math"
	"sort"

	"safetycarbot/pkg/drivers"
)

const (
	// maxNormalPitEntryDelta is the largest lap-distance step a car can take
	// in one tick while entering the pits under its own power.
	maxNormalPitEntryDelta = 0.05

	// minObservationsForTowing holds detection back until the pit entry
	// location estimate has something to stand on.
	minObservationsForTowing = 3
)

// PitEntryStatistics summarizes the observed pit entry locations.
type PitEntryStatistics struct {
	EstimatedLocation  float64
	ConfidenceInterval float64
	ObservationCount   int
}

type towState struct {
	onPitRoad  bool
	lapDistPct float64
}

// TowingDetector spots cars that appear on pit road without having driven
// there. It learns where the real pit entry is from normal off-pit to on-pit
// transitions and flags transitions that land far away from it. Informational
// only: a tow never deploys the safety car by itself.
type TowingDetector struct {
	maxPitEntryDelta float64
	previous         map[int]towState
	observations     []float64
	statistics       PitEntryStatistics
}

func NewTowingDetector() *TowingDetector {
	return &TowingDetector{
		maxPitEntryDelta: maxNormalPitEntryDelta,
		previous:         map[int]towState{},
	}
}

// lapDistanceDelta is the forward distance between two lap positions,
// wrapping at the start/finish line.
func lapDistanceDelta(prev, current float64) float64 {
	delta := current - prev
	if delta < 0 {
		delta += 1.0
	}
	return delta
}

func (d *TowingDetector) updateStatistics() {
	n := len(d.observations)
	if n == 0 {
		d.statistics = PitEntryStatistics{}
		return
	}

	sorted := make([]float64, n)
	copy(sorted, d.observations)
	sort.Float64s(sorted)

	median := sorted[n/2]
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	spread := 0.0
	if n >= 2 {
		mean := 0.0
		for _, v := range d.observations {
			mean += v
		}
		mean /= float64(n)
		variance := 0.0
		for _, v := range d.observations {
			variance += (v - mean) * (v - mean)
		}
		spread = math.Sqrt(variance / float64(n-1))
	}

	d.statistics = PitEntryStatistics{
		EstimatedLocation:  median,
		ConfidenceInterval: spread,
		ObservationCount:   n,
	}
}

func (d *TowingDetector) nearPitEntry(lapDistPct float64) bool {
	if d.statistics.ObservationCount == 0 {
		return true
	}
	forward := lapDistanceDelta(d.statistics.EstimatedLocation, lapDistPct)
	backward := lapDistanceDelta(lapDistPct, d.statistics.EstimatedLocation)
	return math.Min(forward, backward) <= d.maxPitEntryDelta
}

// Detect inspects this tick's field for off-pit to on-pit transitions and
// classifies each as a normal entry or a likely tow.
func (d *TowingDetector) Detect(field []drivers.Driver) Result {
	towed := []drivers.Driver{}

	for _, car := range field {
		if car.IsPaceCar || car.LapsCompleted < 0 {
			continue
		}

		prev, seen := d.previous[car.Idx]
		if seen && !prev.onPitRoad && car.OnPitRoad {
			delta := lapDistanceDelta(prev.lapDistPct, car.LapDistPct)

			switch {
			case delta <= d.maxPitEntryDelta:
				d.observations = append(d.observations, car.LapDistPct)
				d.updateStatistics()
			case len(d.observations) >= minObservationsForTowing && !d.nearPitEntry(car.LapDistPct):
				towed = append(towed, car)
				log.Printf("Car %s likely towed: appeared on pit road at %.3f (delta=%.3f, expected near %.3f)",
					car.CarNumber, car.LapDistPct, delta, d.statistics.EstimatedLocation)
			case len(d.observations) >= minObservationsForTowing:
				// near pit entry with a big delta: slow entry, still a valid observation
				d.observations = append(d.observations, car.LapDistPct)
				d.updateStatistics()
			}
		}

		d.previous[car.Idx] = towState{onPitRoad: car.OnPitRoad, lapDistPct: car.LapDistPct}
	}

	return Result{Type: EventTowing, Cars: towed}
}

// Statistics exposes the current pit entry estimate for display.
func (d *TowingDetector) Statistics() PitEntryStatistics {
	return d.statistics
}
