package drivers

import (
	"safetycarbot/pkg/telemetry"
)

// Driver is the per-car state the generator tracks between ticks.
type Driver struct {
	Idx           int
	CarNumber     string
	ClassID       int
	LapsCompleted int
	LapDistPct    float64
	Surface       telemetry.Surface
	Flags         telemetry.CarFlag
	OnPitRoad     bool
	IsPaceCar     bool
}

// TotalDistance is the car's race distance in laps. A negative lap distance
// percentage is a feed glitch and contributes nothing.
func (d Driver) TotalDistance() float64 {
	if d.LapDistPct < 0 {
		return float64(d.LapsCompleted)
	}
	return float64(d.LapsCompleted) + d.LapDistPct
}

// Active reports whether the car is a live race participant this tick.
func (d Driver) Active() bool {
	return d.Surface != telemetry.SurfaceNotInWorld && !d.IsPaceCar
}

// Delta pairs a driver's state across two consecutive ticks.
type Delta struct {
	Current  Driver
	Previous Driver
}

// Progress is the change in total distance since the previous tick. Negative
// values signal telemetry glitches, never backwards movement.
func (d Delta) Progress() float64 {
	return d.Current.TotalDistance() - d.Previous.TotalDistance()
}

// Store holds the current field and the previous generation of it.
type Store struct {
	current  []Driver
	previous []Driver
}

func NewStore() *Store {
	return &Store{}
}

// Update replaces the current generation with the latest snapshot, retaining
// the old one for delta computation.
func (s *Store) Update(cars []telemetry.CarState) {
	s.previous = s.current
	s.current = make([]Driver, len(cars))
	for i, car := range cars {
		s.current[i] = Driver{
			Idx:           car.CarIdx,
			CarNumber:     car.CarNumber,
			ClassID:       car.CarClassID,
			LapsCompleted: car.LapsCompleted,
			LapDistPct:    car.LapDistPct,
			Surface:       car.Surface,
			Flags:         car.Flags,
			OnPitRoad:     car.OnPitRoad,
			IsPaceCar:     car.IsPaceCar,
		}
	}
}

// Seed initializes the store with a first snapshot. No deltas exist until the
// next Update.
func (s *Store) Seed(cars []telemetry.CarState) {
	s.current = nil
	s.Update(cars)
	s.previous = nil
}

func (s *Store) Current() []Driver {
	return s.current
}

func (s *Store) Previous() []Driver {
	return s.previous
}

// HasDeltas reports whether a previous generation of matching size exists.
func (s *Store) HasDeltas() bool {
	return s.previous != nil && len(s.previous) == len(s.current)
}

// Deltas returns the per-driver tick deltas, or nil when only one generation
// has been seen (or a mid-session grid change broke the pairing).
func (s *Store) Deltas() []Delta {
	if !s.HasDeltas() {
		return nil
	}
	deltas := make([]Delta, len(s.current))
	for i := range s.current {
		deltas[i] = Delta{Current: s.current[i], Previous: s.previous[i]}
	}
	return deltas
}

// Leader returns the car with the greatest total distance, excluding the pace
// car. ok is false for an empty field.
func Leader(field []Driver) (Driver, bool) {
	var leader Driver
	found := false
	for _, d := range field {
		if d.IsPaceCar || d.Surface == telemetry.SurfaceNotInWorld {
			continue
		}
		if !found || d.TotalDistance() > leader.TotalDistance() {
			leader = d
			found = true
		}
	}
	return leader, found
}

// ClassLeaders returns the leader of each car class keyed by class ID, using
// total distance within the class.
func ClassLeaders(field []Driver) map[int]Driver {
	leaders := map[int]Driver{}
	for _, d := range field {
		if d.IsPaceCar || d.Surface == telemetry.SurfaceNotInWorld {
			continue
		}
		leader, ok := leaders[d.ClassID]
		if !ok || d.TotalDistance() > leader.TotalDistance() {
			leaders[d.ClassID] = d
		}
	}
	return leaders
}
