package ml

import (
	"errors"
	"fmt"
	"math"
)

// StandardScaler standardizes each feature to zero mean and unit variance
// using statistics computed over the fitted corpus. A scaler is only valid
// for the classifier trained against the same fit; the artifact store
// persists and loads them as one unit to enforce that.
type StandardScaler struct {
	Means   []float64 `json:"means"`
	Stddevs []float64 `json:"stddevs"`
}

// Fit computes per-feature mean and population standard deviation.
func (s *StandardScaler) Fit(samples []LabeledSample) error {
	if len(samples) == 0 {
		return errors.New("samples is empty")
	}

	means := make([]float64, FeatureCount)
	for _, sample := range samples {
		for i, v := range sample.Vector() {
			means[i] += v
		}
	}
	for i := range means {
		means[i] /= float64(len(samples))
	}

	stddevs := make([]float64, FeatureCount)
	for _, sample := range samples {
		for i, v := range sample.Vector() {
			d := v - means[i]
			stddevs[i] += d * d
		}
	}
	for i := range stddevs {
		stddevs[i] = math.Sqrt(stddevs[i] / float64(len(samples)))
		// A zero-variance feature cannot be standardized; Transform emits 0
		// for it. Only arises under degenerate training data.
		if stddevs[i] < 1e-12 {
			stddevs[i] = 0
		}
	}

	s.Means = means
	s.Stddevs = stddevs
	return nil
}

// Transform standardizes one sample with the fitted statistics.
// Zero-variance features map to 0.
func (s *StandardScaler) Transform(sample HormoneSample) ([]float64, error) {
	if len(s.Means) != FeatureCount || len(s.Stddevs) != FeatureCount {
		return nil, fmt.Errorf("scaler not fitted: have %d means, want %d", len(s.Means), FeatureCount)
	}
	out := make([]float64, FeatureCount)
	for i, v := range sample.Vector() {
		if s.Stddevs[i] == 0 {
			out[i] = 0
			continue
		}
		out[i] = (v - s.Means[i]) / s.Stddevs[i]
	}
	return out, nil
}

// DegenerateFeatures reports the features that had zero variance during Fit.
func (s *StandardScaler) DegenerateFeatures() []string {
	names := []string{"cortisol", "estrogen", "testosterone"}
	var out []string
	for i, sd := range s.Stddevs {
		if sd == 0 && i < len(names) {
			out = append(out, names[i])
		}
	}
	return out
}

func (s *StandardScaler) FeatureCount() int {
	return len(s.Means)
}
