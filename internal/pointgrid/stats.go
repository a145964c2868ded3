package pointgrid

import (
	"fmt"

	"github.com/DataDog/sketches-go/ddsketch"
	"gonum.org/v1/gonum/stat"
)

// DefaultPercentileAccuracy is the relative accuracy of occupancy percentiles.
const DefaultPercentileAccuracy = 0.01

// Stats summarises bucket occupancy. A healthy voxel size keeps MaxOccupancy
// and P99 small; an overloaded grid degrades queries toward a linear scan.
type Stats struct {
	Buckets int
	Points  int

	MinOccupancy    int
	MaxOccupancy    int
	MeanOccupancy   float64
	StdDevOccupancy float64
	P50Occupancy    float64
	P95Occupancy    float64
	P99Occupancy    float64

	// Key extent over populated buckets. Zero when the grid is empty.
	MinKey Key
	MaxKey Key
}

// ComputeStats walks every populated bucket of idx. accuracy <= 0 selects
// DefaultPercentileAccuracy.
func ComputeStats[T any](idx Index[T], accuracy float64) (Stats, error) {
	if accuracy <= 0 {
		accuracy = DefaultPercentileAccuracy
	}
	keys := idx.Keys()
	s := Stats{Buckets: len(keys)}
	if len(keys) == 0 {
		return s, nil
	}

	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to create occupancy sketch: %w", err)
	}

	occupancy := make([]float64, len(keys))
	s.MinKey, s.MaxKey = keys[0], keys[0]
	for i, key := range keys {
		n := len(idx.BucketOf(key))
		occupancy[i] = float64(n)
		s.Points += n
		if i == 0 || n < s.MinOccupancy {
			s.MinOccupancy = n
		}
		if n > s.MaxOccupancy {
			s.MaxOccupancy = n
		}
		s.MinKey = Key{I: min(s.MinKey.I, key.I), J: min(s.MinKey.J, key.J), K: min(s.MinKey.K, key.K)}
		s.MaxKey = Key{I: max(s.MaxKey.I, key.I), J: max(s.MaxKey.J, key.J), K: max(s.MaxKey.K, key.K)}
		if err := sketch.Add(float64(n)); err != nil {
			return Stats{}, fmt.Errorf("failed to record occupancy: %w", err)
		}
	}

	if len(occupancy) == 1 {
		s.MeanOccupancy = occupancy[0]
	} else {
		s.MeanOccupancy, s.StdDevOccupancy = stat.MeanStdDev(occupancy, nil)
	}

	q, err := sketch.GetValuesAtQuantiles([]float64{0.5, 0.95, 0.99})
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read occupancy percentiles: %w", err)
	}
	s.P50Occupancy, s.P95Occupancy, s.P99Occupancy = q[0], q[1], q[2]
	return s, nil
}
