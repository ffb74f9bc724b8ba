package generator

// State is the generator's phase in the session lifecycle.
type State int

const (
	StateStopped State = iota
	StateWaitingForRaceSession
	StateWaitingForGreen
	StateMonitoring
	StateSafetyCarActive
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateWaitingForRaceSession:
		return "WaitingForRaceSession"
	case StateWaitingForGreen:
		return "WaitingForGreen"
	case StateMonitoring:
		return "Monitoring"
	case StateSafetyCarActive:
		return "SafetyCarActive"
	}
	return "Unknown"
}

// EventStatus describes the in-flight safety car procedure for display.
type EventStatus struct {
	Reason         string `json:"reason"`
	Message        string `json:"message"`
	TriggerLap     int    `json:"triggerLap"`
	LapUnderSC     int    `json:"lapUnderSc"`
	WaveArmed      bool   `json:"waveArmed"`
	WaveSent       bool   `json:"waveSent"`
	PaceSignalSent bool   `json:"paceSignalSent"`
}

// StateSnapshot is the read-only view published on every tick for the
// frontend. It carries no engine references; consuming it cannot affect the
// loop.
type StateSnapshot struct {
	State           string       `json:"state"`
	ElapsedSeconds  float64      `json:"elapsedSeconds"`
	SafetyCarEvents int          `json:"safetyCarEvents"`
	MaxSafetyCars   int          `json:"maxSafetyCars"`
	RandomEvents    int          `json:"randomEvents"`
	StoppedCount    int          `json:"stoppedCount"`
	OffTrackCount   int          `json:"offTrackCount"`
	TowedCars       []string     `json:"towedCars,omitempty"`
	FlaggedCars     []string     `json:"flaggedCars,omitempty"`
	Event           *EventStatus `json:"event,omitempty"`
}
