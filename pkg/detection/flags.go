package detection

import (
	"log"

	"safetycarbot/pkg/drivers"
	"safetycarbot/pkg/telemetry"
)

// FlagsDetector reports cars newly shown the black or repair (meatball) flag.
// Informational only: penalty flags are surfaced through the state snapshot
// and never deploy the safety car.
type FlagsDetector struct {
	previous map[int]telemetry.CarFlag
}

func NewFlagsDetector() *FlagsDetector {
	return &FlagsDetector{
		previous: map[int]telemetry.CarFlag{},
	}
}

// Detect flags cars whose penalty bits went up since the previous tick. A
// flag held across ticks is reported once.
func (d *FlagsDetector) Detect(field []drivers.Driver) Result {
	flagged := []drivers.Driver{}
	for _, car := range field {
		if car.IsPaceCar {
			continue
		}

		raised := car.Flags &^ d.previous[car.Idx]
		if raised.Has(telemetry.FlagBlack) || raised.Has(telemetry.FlagRepair) {
			flagged = append(flagged, car)
			log.Printf("Car %s shown a penalty flag (%#x)", car.CarNumber, uint32(car.Flags))
		}
		d.previous[car.Idx] = car.Flags
	}
	return Result{Type: EventFlags, Cars: flagged}
}
