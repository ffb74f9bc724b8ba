package settings

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Settings is the generator configuration, immutable for the duration of a
// session. Loaded from the database at startup and validated before the first
// tick.
type Settings struct {
	// Global eligibility window
	MinSafetyCars     int
	MaxSafetyCars     int
	StartMinute       float64
	EndMinute         float64
	MinMinutesBetween float64

	// Random trigger
	RandomEnabled bool
	RandomProb    float64
	RandomMaxOcc  int
	RandomMessage string

	// Stopped-cars trigger
	StoppedEnabled       bool
	StoppedCarsThreshold int
	StoppedMessage       string

	// Off-track trigger
	OffTrackEnabled       bool
	OffTrackCarsThreshold int
	OffTrackMessage       string

	// Race-start threshold scaling
	StartMultiplier        float64
	StartMultiplierSeconds float64

	// Proximity filter for stopped/off-track counts
	ProximityEnabled     bool
	ProximityDistancePct float64

	// Safety car procedure
	LapsBeforeWaveArounds int
	LapsUnderSafetyCar    int
	AutoWaveArounds       bool
}

// Defaults mirrors the values a fresh install starts with.
func Defaults() Settings {
	return Settings{
		MinSafetyCars:          0,
		MaxSafetyCars:          2,
		StartMinute:            0,
		EndMinute:              30,
		MinMinutesBetween:      3,
		RandomEnabled:          true,
		RandomProb:             0.1,
		RandomMaxOcc:           1,
		RandomMessage:          "Hazard on track.",
		StoppedEnabled:         true,
		StoppedCarsThreshold:   2,
		StoppedMessage:         "Cars stopped on track.",
		OffTrackEnabled:        true,
		OffTrackCarsThreshold:  4,
		OffTrackMessage:        "Multiple cars off track.",
		StartMultiplier:        1.0,
		StartMultiplierSeconds: 30,
		ProximityEnabled:       true,
		ProximityDistancePct:   0.25,
		LapsBeforeWaveArounds:  0,
		LapsUnderSafetyCar:     2,
		AutoWaveArounds:        true,
	}
}

// Validate rejects configurations the generator must never start with.
func (s Settings) Validate() error {
	problems := []string{}
	if s.MinSafetyCars < 0 {
		problems = append(problems, "minimum safety cars must not be negative")
	}
	if s.MaxSafetyCars < s.MinSafetyCars {
		problems = append(problems, fmt.Sprintf("maximum safety cars (%d) below minimum (%d)", s.MaxSafetyCars, s.MinSafetyCars))
	}
	if s.StartMinute < 0 {
		problems = append(problems, "start minute must not be negative")
	}
	if s.EndMinute < s.StartMinute {
		problems = append(problems, fmt.Sprintf("end minute (%.1f) before start minute (%.1f)", s.EndMinute, s.StartMinute))
	}
	if s.MinMinutesBetween < 0 {
		problems = append(problems, "minimum minutes between events must not be negative")
	}
	if s.RandomProb < 0 || s.RandomProb > 1 {
		problems = append(problems, fmt.Sprintf("random probability %.3f outside [0, 1]", s.RandomProb))
	}
	if s.RandomMaxOcc < 0 {
		problems = append(problems, "random occurrence cap must not be negative")
	}
	if s.StoppedCarsThreshold < 1 {
		problems = append(problems, "stopped cars threshold must be at least 1")
	}
	if s.OffTrackCarsThreshold < 1 {
		problems = append(problems, "off-track cars threshold must be at least 1")
	}
	if s.StartMultiplier < 0 {
		problems = append(problems, "start multiplier must not be negative")
	}
	if s.StartMultiplierSeconds < 0 {
		problems = append(problems, "start multiplier time must not be negative")
	}
	if s.ProximityDistancePct < 0 || s.ProximityDistancePct > 1 {
		problems = append(problems, fmt.Sprintf("proximity distance %.3f outside [0, 1]", s.ProximityDistancePct))
	}
	if s.LapsBeforeWaveArounds < 0 {
		problems = append(problems, "laps before wave arounds must not be negative")
	}
	if s.LapsUnderSafetyCar < 0 {
		problems = append(problems, "laps under safety car must not be negative")
	}
	if len(problems) > 0 {
		return errors.Errorf("invalid settings: %s", strings.Join(problems, "; "))
	}
	return nil
}

// WindowSeconds is the duration of the eligible window.
func (s Settings) WindowSeconds() float64 {
	return (s.EndMinute - s.StartMinute) * 60
}
