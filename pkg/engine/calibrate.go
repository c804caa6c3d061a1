package engine

import (
	"math"
	"sort"
)

// Threshold is the engagement cutoff of one dataset: every value at or
// above Value is inside the dataset's top fraction. OK is false when the
// dataset was empty or the fraction degenerate, in which case Value is
// NaN and the threshold must not be used.
type Threshold struct {
	Value      float64 `json:"value"`
	SampleSize int     `json:"sample_size"`
	OK         bool    `json:"ok"`
}

// TopCutoff returns the ceil(fraction*n)-th highest value, so exactly
// that many values are >= the cutoff (boundary inclusive). An empty
// input or a fraction outside (0, 1] yields OK=false rather than an
// error, so a caller calibrating many datasets is not aborted by one
// empty collection.
func TopCutoff(values []float64, fraction float64) Threshold {
	n := len(values)
	if n == 0 || fraction <= 0 || fraction > 1 {
		return Threshold{Value: math.NaN(), SampleSize: n}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	k := int(math.Ceil(fraction * float64(n)))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return Threshold{Value: sorted[k-1], SampleSize: n, OK: true}
}

// ThresholdPair reconciles two independently scraped datasets under one
// virality definition: each side gets its own cutoff, and the caller
// decides how to combine them (see Config.FallbackThreshold).
type ThresholdPair struct {
	Ad      Threshold `json:"ad"`
	Organic Threshold `json:"organic"`
}

// CalibrateDatasets computes the top-fraction cutoff of each dataset
// independently. Neither dataset influences the other's threshold.
func CalibrateDatasets(ad, organic []float64, fraction float64) ThresholdPair {
	return ThresholdPair{
		Ad:      TopCutoff(ad, fraction),
		Organic: TopCutoff(organic, fraction),
	}
}

// Likes extracts the likes column, the default calibration metric.
func Likes(posts []Post) []float64 {
	out := make([]float64, len(posts))
	for i := range posts {
		out[i] = posts[i].Likes
	}
	return out
}
