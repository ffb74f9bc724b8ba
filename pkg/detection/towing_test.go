package detection

import (
	"testing"

	"safetycarbot/pkg/drivers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func towCar(idx int, lapDistPct float64, onPitRoad bool) drivers.Driver {
	return drivers.Driver{Idx: idx, CarNumber: "00", LapDistPct: lapDistPct, OnPitRoad: onPitRoad}
}

// teachPitEntry feeds the detector three normal pit entries around location.
func teachPitEntry(d *TowingDetector, location float64) {
	for i := 0; i < minObservationsForTowing; i++ {
		offset := float64(i) * 0.005
		d.Detect([]drivers.Driver{towCar(i, location-0.02+offset, false)})
		d.Detect([]drivers.Driver{towCar(i, location+offset, true)})
	}
}

func TestTowingDetectorLearnsPitEntryLocation(t *testing.T) {
	d := NewTowingDetector()
	teachPitEntry(d, 0.80)

	stats := d.Statistics()
	require.Equal(t, 3, stats.ObservationCount)
	assert.InDelta(t, 0.805, stats.EstimatedLocation, 0.01)
}

func TestTowingDetectorFlagsTeleportToPitRoad(t *testing.T) {
	d := NewTowingDetector()
	teachPitEntry(d, 0.80)

	// car 9 was at 0.30 on track, next tick it sits on pit road at 0.55
	d.Detect([]drivers.Driver{towCar(9, 0.30, false)})
	result := d.Detect([]drivers.Driver{towCar(9, 0.55, true)})

	require.True(t, result.HasCars())
	assert.Equal(t, EventTowing, result.Type)
	assert.Equal(t, []int{9}, result.CarIdxs())
}

func TestTowingDetectorNeedsObservationsFirst(t *testing.T) {
	d := NewTowingDetector()

	d.Detect([]drivers.Driver{towCar(9, 0.30, false)})
	result := d.Detect([]drivers.Driver{towCar(9, 0.55, true)})

	assert.False(t, result.HasCars(), "no estimate yet, cannot classify")
}

func TestTowingDetectorNormalEntryIsNotATow(t *testing.T) {
	d := NewTowingDetector()
	teachPitEntry(d, 0.80)

	d.Detect([]drivers.Driver{towCar(9, 0.79, false)})
	result := d.Detect([]drivers.Driver{towCar(9, 0.81, true)})

	assert.False(t, result.HasCars())
	assert.Equal(t, 4, d.Statistics().ObservationCount)
}

func TestTowingDetectorSlowEntryNearPitIsObserved(t *testing.T) {
	d := NewTowingDetector()
	teachPitEntry(d, 0.80)

	// big tick delta but landing right at the learned entry
	d.Detect([]drivers.Driver{towCar(9, 0.60, false)})
	result := d.Detect([]drivers.Driver{towCar(9, 0.81, true)})

	assert.False(t, result.HasCars())
	assert.Equal(t, 4, d.Statistics().ObservationCount)
}

func TestTowingDetectorIgnoresPaceCar(t *testing.T) {
	d := NewTowingDetector()
	teachPitEntry(d, 0.80)

	pace := drivers.Driver{Idx: 63, LapDistPct: 0.30, IsPaceCar: true}
	d.Detect([]drivers.Driver{pace})
	pace.LapDistPct = 0.55
	pace.OnPitRoad = true
	result := d.Detect([]drivers.Driver{pace})

	assert.False(t, result.HasCars())
}
