package detection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func TestLargestCluster(t *testing.T) {
	tests := []struct {
		name      string
		distances []float64
		threshold float64
		want      int
	}{
		{
			name:      "no cars",
			distances: []float64{},
			threshold: 0.25,
			want:      0,
		},
		{
			name:      "single car",
			distances: []float64{0.5},
			threshold: 0.25,
			want:      1,
		},
		{
			name:      "all cars together",
			distances: []float64{0.50, 0.52, 0.55},
			threshold: 0.25,
			want:      3,
		},
		{
			name:      "scattered singletons do not add up",
			distances: []float64{0.05, 0.40, 0.80},
			threshold: 0.1,
			want:      1,
		},
		{
			name:      "largest of two groups wins",
			distances: []float64{0.10, 0.12, 0.60, 0.62, 0.64},
			threshold: 0.1,
			want:      3,
		},
		{
			name:      "boundary distance is inside the cluster",
			distances: []float64{0.10, 0.35},
			threshold: 0.25,
			want:      2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LargestCluster(tt.distances, tt.threshold))
		})
	}
}

func TestScaleThreshold(t *testing.T) {
	tests := []struct {
		name       string
		base       int
		multiplier float64
		sinceGreen float64
		window     float64
		want       int
	}{
		{name: "inside window scales up", base: 2, multiplier: 1.5, sinceGreen: 10, window: 30, want: 3},
		{name: "window elapsed returns base", base: 2, multiplier: 1.5, sinceGreen: 30, window: 30, want: 2},
		{name: "zero multiplier disables scaling", base: 2, multiplier: 0, sinceGreen: 10, window: 30, want: 2},
		{name: "fractional result rounds up", base: 3, multiplier: 1.4, sinceGreen: 0, window: 30, want: 5},
		{name: "unit multiplier keeps base", base: 4, multiplier: 1, sinceGreen: 10, window: 30, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleThreshold(tt.base, tt.multiplier, secs(tt.sinceGreen), secs(tt.window))
			assert.Equal(t, tt.want, got)
		})
	}
}
