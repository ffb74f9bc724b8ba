package detection

import (
	"log"
	"time"

	"safetycarbot/pkg/queues"
)

// ThresholdSettings controls when the accumulated observations amount to a
// safety car. Each event type has its own count threshold; on top of that a
// weighted sum across all types can trip the accumulative threshold.
type ThresholdSettings struct {
	TimeRange             time.Duration
	AccumulativeThreshold float64
	Weights               map[EventType]float64
	EventTypeThreshold    map[EventType]float64
}

func DefaultThresholdSettings() ThresholdSettings {
	return ThresholdSettings{
		TimeRange:             10 * time.Second,
		AccumulativeThreshold: 10,
		// Towing and penalty flags are informational detectors and carry no
		// weight or threshold here.
		Weights: map[EventType]float64{
			EventOffTrack: 1,
			EventRandom:   1,
			EventStopped:  2,
		},
		EventTypeThreshold: map[EventType]float64{
			EventOffTrack: 4,
			EventRandom:   1,
			EventStopped:  2,
		},
	}
}

type timedEvent struct {
	at     time.Time
	typ    EventType
	carIdx int
}

// ThresholdChecker accumulates per-car detector observations over a sliding
// time window. A car is counted once per event type no matter how often it is
// re-observed inside the window, so a single car weaving off track does not
// inflate the count; observations age out through the FIFO queue.
type ThresholdChecker struct {
	settings ThresholdSettings
	events   map[EventType]map[int]int
	queue    *queues.Queue[timedEvent]
	now      func() time.Time
}

func NewThresholdChecker(settings ThresholdSettings) *ThresholdChecker {
	events := map[EventType]map[int]int{}
	for _, typ := range []EventType{EventRandom, EventStopped, EventOffTrack, EventTowing} {
		events[typ] = map[int]int{}
	}
	return &ThresholdChecker{
		settings: settings,
		events:   events,
		queue:    queues.NewQueue[timedEvent](),
		now:      time.Now,
	}
}

// CleanUp drops observations that have aged out of the window.
func (c *ThresholdChecker) CleanUp() {
	current := c.now()
	for !c.queue.IsEmpty() && current.Sub(c.queue.Peek().at) >= c.settings.TimeRange {
		ev := c.queue.Pop()
		count, ok := c.events[ev.typ][ev.carIdx]
		if !ok {
			log.Printf("Warning: car %d missing from events for type %s", ev.carIdx, ev.typ)
			continue
		}
		if count == 1 {
			delete(c.events[ev.typ], ev.carIdx)
		} else {
			c.events[ev.typ][ev.carIdx] = count - 1
		}
	}
}

// Register records this tick's observations for one event type.
func (c *ThresholdChecker) Register(typ EventType, carIdxs []int) {
	at := c.now()
	for _, carIdx := range carIdxs {
		c.events[typ][carIdx]++
		c.queue.Push(timedEvent{at: at, typ: typ, carIdx: carIdx})
	}
}

// RegisterResult records a detector result: flagged cars for car-based
// detectors, a single synthetic observation for flag-based ones.
func (c *ThresholdChecker) RegisterResult(result Result) {
	if result.HasCars() {
		c.Register(result.Type, result.CarIdxs())
		return
	}
	if result.Fired {
		c.Register(result.Type, []int{0})
	}
}

// Count returns the number of distinct cars observed for the event type
// within the window.
func (c *ThresholdChecker) Count(typ EventType) int {
	return len(c.events[typ])
}

// ThresholdMet reports whether any per-type threshold, or the weighted
// accumulative threshold, is reached.
func (c *ThresholdChecker) ThresholdMet() bool {
	acc := 0.0
	for typ, cars := range c.events {
		count := float64(len(cars))
		if threshold, ok := c.settings.EventTypeThreshold[typ]; ok && count >= threshold {
			log.Printf("Threshold met for %s: %d cars", typ, len(cars))
			return true
		}
		acc += count * c.settings.Weights[typ]
	}
	return acc >= c.settings.AccumulativeThreshold
}
