package procedures

import (
	"sort"

	"safetycarbot/pkg/commands"
	"safetycarbot/pkg/drivers"
)

// PlanWaveArounds computes, once per safety car event, the chat commands that
// wave lapped cars past the safety car. A car qualifies when it is
//
//   - two or more laps down on the overall leader, or
//   - exactly one lap down on the overall leader and behind its own class
//     leader's lap count.
//
// The returned commands are ordered by ascending car index so the dispatch
// order is deterministic.
func PlanWaveArounds(field []drivers.Driver) []string {
	leader, ok := drivers.Leader(field)
	if !ok {
		return nil
	}
	classLeaders := drivers.ClassLeaders(field)

	qualified := []drivers.Driver{}
	for _, car := range field {
		if !car.Active() {
			continue
		}

		if car.LapsCompleted <= leader.LapsCompleted-2 {
			qualified = append(qualified, car)
			continue
		}

		classLeader, hasClassLeader := classLeaders[car.ClassID]
		if car.LapsCompleted == leader.LapsCompleted-1 &&
			hasClassLeader && car.LapsCompleted < classLeader.LapsCompleted {
			qualified = append(qualified, car)
		}
	}

	sort.Slice(qualified, func(i, j int) bool {
		return qualified[i].Idx < qualified[j].Idx
	})

	waveCommands := make([]string, len(qualified))
	for i, car := range qualified {
		waveCommands[i] = commands.WaveAround(car.CarNumber)
	}
	return waveCommands
}

// DistancesBehindSafetyCar reports each car's gap behind the safety car in
// lap fractions, keyed by car number. ok is false when no pace car is in the
// field.
func DistancesBehindSafetyCar(field []drivers.Driver) (map[string]float64, bool) {
	paceIdx := -1
	positions := make([]float64, len(field))
	for i, car := range field {
		positions[i] = car.LapDistPct
		if car.IsPaceCar {
			paceIdx = i
		}
	}
	if paceIdx < 0 {
		return nil, false
	}

	rebased := PositionsFromSafetyCar(positions, paceIdx)
	gaps := make(map[string]float64, len(field))
	for i, car := range field {
		if i == paceIdx || rebased[i] < 0 {
			continue
		}
		gaps[car.CarNumber] = rebased[i]
	}
	return gaps, true
}

// PositionsFromSafetyCar rebases lap distance percentages onto the safety
// car: 0.0 is the safety car itself, 0.1 is a tenth of a lap behind it, and
// so on. Cars reading -1 (not in world) stay -1.
func PositionsFromSafetyCar(carPositions []float64, paceCarIdx int) []float64 {
	normalized := make([]float64, len(carPositions))
	for i, p := range carPositions {
		if p >= 0 {
			normalized[i] = p - float64(int(p))
		} else {
			normalized[i] = p
		}
	}

	paceCarPos := normalized[paceCarIdx]
	result := make([]float64, len(normalized))
	for idx, pos := range normalized {
		switch {
		case idx == paceCarIdx:
			result[idx] = 0.0
		case pos == -1:
			result[idx] = -1
		case pos < paceCarPos:
			result[idx] = paceCarPos - pos
		default:
			result[idx] = paceCarPos + 1 - pos
		}
	}
	return result
}
