package detection

import "math"

// LargestCluster returns the size of the biggest group of cars whose lap
// distance percentages lie within threshold of a common member. Scattered
// singletons that each meet a trigger's criteria should not add up to one
// incident; only a concentration of cars does.
func LargestCluster(lapDistances []float64, threshold float64) int {
	if len(lapDistances) == 0 {
		return 0
	}

	largest := 0
	for i, distance := range lapDistances {
		count := 1
		for j, other := range lapDistances {
			if i == j {
				continue
			}
			if math.Abs(distance-other) <= threshold {
				count++
			}
		}
		if count > largest {
			largest = count
		}
	}
	return largest
}
