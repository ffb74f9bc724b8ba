package generator

import "time"

// History is the append-only record of safety car trigger times for the
// running session.
type History struct {
	triggers []time.Time
}

func (h *History) Record(t time.Time) {
	h.triggers = append(h.triggers, t)
}

func (h *History) Count() int {
	return len(h.triggers)
}

func (h *History) LastTrigger() (time.Time, bool) {
	if len(h.triggers) == 0 {
		return time.Time{}, false
	}
	return h.triggers[len(h.triggers)-1], true
}

// Window is the global eligibility guard: triggers may only fire inside the
// configured race-time window, under the event cap, and past the cooldown
// measured from the previous trigger's start.
type Window struct {
	StartMinute       float64
	EndMinute         float64
	MinMinutesBetween float64
	MaxSafetyCars     int
}

// Eligible reports whether trigger evaluation is permitted at now. Both
// window bounds are inclusive. An ineligible tick is not an error; the caller
// just skips evaluation.
func (w Window) Eligible(now, greenFlagAt time.Time, history *History) bool {
	elapsedMinutes := now.Sub(greenFlagAt).Minutes()
	if elapsedMinutes < w.StartMinute || elapsedMinutes > w.EndMinute {
		return false
	}
	if history.Count() >= w.MaxSafetyCars {
		return false
	}
	if last, ok := history.LastTrigger(); ok {
		if now.Sub(last).Minutes() < w.MinMinutesBetween {
			return false
		}
	}
	return true
}
