package detection

import (
	"log"
	"math"
	"math/rand"
)

// RandomDetector draws one uniform sample per tick and fires when it lands
// under the per-tick odds. The odds are derived once, from the configured
// overall probability and the eligible window's length in seconds, so the
// expected number of random triggers over the whole window matches the
// configured probability no matter how long the window is.
type RandomDetector struct {
	perTickChance  float64
	maxOccurrences int
	occurrences    int
	sample         func() float64
}

// NewRandomDetector derives the per-tick odds for the session. sample may be
// nil, in which case the shared math/rand source is used.
func NewRandomDetector(overallChance, startMinute, endMinute float64, maxOccurrences int, sample func() float64) *RandomDetector {
	if sample == nil {
		sample = rand.Float64
	}
	windowSeconds := (endMinute - startMinute) * 60

	perTick := 0.0
	if windowSeconds > 0 && overallChance > 0 {
		perTick = 1 - math.Pow(1-overallChance, 1/windowSeconds)
	}

	return &RandomDetector{
		perTickChance:  perTick,
		maxOccurrences: maxOccurrences,
		sample:         sample,
	}
}

// Detect draws this tick's sample. It fires at most once per call and stops
// firing after the occurrence cap is reached.
func (d *RandomDetector) Detect() Result {
	if d.perTickChance == 0 || d.occurrences >= d.maxOccurrences {
		return Result{Type: EventRandom}
	}

	rng := d.sample()
	if rng <= d.perTickChance {
		d.occurrences++
		log.Printf("Random detector triggered: sample=%.6f <= chance=%.6f", rng, d.perTickChance)
		return Result{Type: EventRandom, Fired: true}
	}
	return Result{Type: EventRandom}
}

// Occurrences reports how many times this detector has fired this session.
func (d *RandomDetector) Occurrences() int {
	return d.occurrences
}
