package telemetry

// Surface describes where a car currently is, as reported by the sim.
type Surface int

const (
	SurfaceNotInWorld      Surface = -1
	SurfaceOffTrack        Surface = 0
	SurfaceInPitStall      Surface = 1
	SurfaceApproachingPits Surface = 2
	SurfaceOnTrack         Surface = 3
)

func (s Surface) String() string {
	switch s {
	case SurfaceNotInWorld:
		return "NotInWorld"
	case SurfaceOffTrack:
		return "OffTrack"
	case SurfaceInPitStall:
		return "InPitStall"
	case SurfaceApproachingPits:
		return "ApproachingPits"
	case SurfaceOnTrack:
		return "OnTrack"
	}
	return "Invalid"
}

// InPits reports whether the car is in, or committed to, the pit lane.
func (s Surface) InPits() bool {
	return s == SurfaceInPitStall || s == SurfaceApproachingPits
}

// CarFlag is the per-car flag bitfield from the sim. Only the penalty bits
// are interpreted here.
type CarFlag uint32

const (
	FlagBlack  CarFlag = 0x010000
	FlagRepair CarFlag = 0x100000
)

func (f CarFlag) Has(flag CarFlag) bool {
	return f&flag != 0
}

type CarState struct {
	CarIdx        int     `json:"carIdx"`
	CarNumber     string  `json:"carNumber"`
	CarClassID    int     `json:"carClassId"`
	LapsCompleted int     `json:"lapsCompleted"`
	LapDistPct    float64 `json:"lapDistPct"`
	Surface       Surface `json:"trackSurface"`
	Flags         CarFlag `json:"sessionFlags"`
	OnPitRoad     bool    `json:"onPitRoad"`
	IsPaceCar     bool    `json:"isPaceCar"`
}

// Snapshot is one tick's worth of session telemetry.
type Snapshot struct {
	SessionType string     `json:"sessionType"`
	GreenFlag   bool       `json:"greenFlag"`
	Cars        []CarState `json:"cars"`
}

// RaceSession reports whether the snapshot belongs to a session the generator
// should act in. Practice, qualifying and warmup are monitored only for the
// session change.
func (s Snapshot) RaceSession() bool {
	switch s.SessionType {
	case "PRACTICE", "QUALIFY", "WARMUP", "":
		return false
	}
	return true
}

// Source is the boundary to the live telemetry feed. ok is false when no
// usable snapshot is available; callers treat that tick as a no-op.
type Source interface {
	ReadSnapshot() (snapshot Snapshot, ok bool)
}
