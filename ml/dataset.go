package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"
)

// FeatureCount is the width of every feature vector in the engine.
const FeatureCount = 3

// HormoneSample is one saliva measurement triple. Values are raw lab units;
// physiological plausibility checks belong to the caller.
type HormoneSample struct {
	Cortisol     float64 `json:"cortisol"`
	Estrogen     float64 `json:"estrogen"`
	Testosterone float64 `json:"testosterone"`
}

func (s HormoneSample) Vector() []float64 {
	return []float64{s.Cortisol, s.Estrogen, s.Testosterone}
}

// LabeledSample pairs a measurement with the class it was drawn from.
type LabeledSample struct {
	HormoneSample
	Status string `json:"status"`
}

// ClassRatios configures the class mix of a generated corpus.
// The three values must be non-negative and sum to 1.
type ClassRatios struct {
	Normal     float64 `yaml:"normal" json:"normal"`
	Borderline float64 `yaml:"borderline" json:"borderline"`
	Abnormal   float64 `yaml:"abnormal" json:"abnormal"`
}

func DefaultRatios() ClassRatios {
	return ClassRatios{Normal: 0.40, Borderline: 0.30, Abnormal: 0.30}
}

const ratioTolerance = 1e-6

func (r ClassRatios) validate() error {
	if r.Normal < 0 || r.Borderline < 0 || r.Abnormal < 0 {
		return fmt.Errorf("%w: class ratios must be non-negative", ErrInvalidConfig)
	}
	sum := r.Normal + r.Borderline + r.Abnormal
	if math.Abs(sum-1.0) > ratioTolerance {
		return fmt.Errorf("%w: class ratios sum to %v, want 1", ErrInvalidConfig, sum)
	}
	return nil
}

// GenerateCorpus synthesizes n labeled samples from the range table. Each
// sample draws its class from the configured ratios, then each hormone value
// uniformly from that class's interval. The three hormone draws are
// independent; no cross-hormone correlation is modelled, and downstream
// accuracy figures assume exactly this sampling scheme.
func GenerateCorpus(n int, ratios ClassRatios, rng *rand.Rand) ([]LabeledSample, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: sample count must be >= 1, got %d", ErrInvalidConfig, n)
	}
	if err := ratios.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, errors.New("rng is required")
	}
	table := RangeTable()
	if err := ValidateRangeTable(table); err != nil {
		return nil, err
	}

	samples := make([]LabeledSample, 0, n)
	for i := 0; i < n; i++ {
		status := drawStatus(ratios, rng)
		values := make([]float64, 0, len(table))
		for _, spec := range table {
			iv := spec.Classes[status]
			values = append(values, iv.Low+rng.Float64()*iv.Width())
		}
		samples = append(samples, LabeledSample{
			HormoneSample: HormoneSample{
				Cortisol:     values[0],
				Estrogen:     values[1],
				Testosterone: values[2],
			},
			Status: status,
		})
	}
	return samples, nil
}

func drawStatus(ratios ClassRatios, rng *rand.Rand) string {
	u := rng.Float64()
	switch {
	case u < ratios.Normal:
		return StatusNormal
	case u < ratios.Normal+ratios.Borderline:
		return StatusBorderline
	default:
		return StatusAbnormal
	}
}

// WriteCorpusCSV exports a corpus as cortisol,estrogen,testosterone,status rows.
func WriteCorpusCSV(w io.Writer, samples []LabeledSample) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"cortisol", "estrogen", "testosterone", "status"}); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{
			strconv.FormatFloat(s.Cortisol, 'f', 4, 64),
			strconv.FormatFloat(s.Estrogen, 'f', 4, 64),
			strconv.FormatFloat(s.Testosterone, 'f', 4, 64),
			s.Status,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
