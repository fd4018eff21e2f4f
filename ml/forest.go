package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// ForestConfig tunes the ensemble. More trees reduce prediction variance at
// linear cost; MaxDepth and MinSamplesSplit bound overfitting to the
// synthetic corpus.
type ForestConfig struct {
	Trees           int `json:"trees" yaml:"trees"`
	MaxDepth        int `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int `json:"min_samples_split" yaml:"min_samples_split"`
}

func DefaultForestConfig() ForestConfig {
	return ForestConfig{Trees: 150, MaxDepth: 10, MinSamplesSplit: 5}
}

func (c ForestConfig) withDefaults() ForestConfig {
	def := DefaultForestConfig()
	if c.Trees <= 0 {
		c.Trees = def.Trees
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = def.MaxDepth
	}
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = def.MinSamplesSplit
	}
	return c
}

// RandomForest is a bagged ensemble of decision trees. Each tree trains on a
// bootstrap sample of the corpus and considers a random feature subset at
// every split.
type RandomForest struct {
	Config     ForestConfig    `json:"config"`
	ClassCount int             `json:"class_count"`
	Trees      []*DecisionTree `json:"trees"`
}

func (f *RandomForest) Fit(features [][]float64, labels []int, classCount int, cfg ForestConfig, rng *rand.Rand) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if classCount < 2 {
		return fmt.Errorf("%w: class count must be >= 2, got %d", ErrInvalidConfig, classCount)
	}
	if rng == nil {
		return errors.New("rng is required")
	}

	cfg = cfg.withDefaults()
	featuresPerNode := int(math.Ceil(math.Sqrt(float64(len(features[0])))))

	trees := make([]*DecisionTree, 0, cfg.Trees)
	for t := 0; t < cfg.Trees; t++ {
		sampleX, sampleY := bootstrapSample(features, labels, rng)
		tree := &DecisionTree{}
		err := tree.train(sampleX, sampleY, treeParams{
			maxDepth:        cfg.MaxDepth,
			minSamplesSplit: cfg.MinSamplesSplit,
			classCount:      classCount,
			featuresPerNode: featuresPerNode,
			rng:             rng,
		})
		if err != nil {
			return fmt.Errorf("tree %d: %w", t, err)
		}
		trees = append(trees, tree)
	}

	f.Config = cfg
	f.ClassCount = classCount
	f.Trees = trees
	return nil
}

// PredictProba averages the leaf class distributions of every tree. The
// result is non-negative and sums to 1 for any input, in-corpus or not.
func (f *RandomForest) PredictProba(features []float64) ([]float64, error) {
	if len(f.Trees) == 0 {
		return nil, errors.New("forest not trained")
	}
	probs := make([]float64, f.ClassCount)
	for _, tree := range f.Trees {
		counts, err := tree.PredictCounts(features)
		if err != nil {
			return nil, err
		}
		total := 0
		for _, c := range counts {
			total += c
		}
		if total == 0 {
			continue
		}
		for i, c := range counts {
			if i < len(probs) {
				probs[i] += float64(c) / float64(total)
			}
		}
	}

	sum := 0.0
	for _, p := range probs {
		sum += p
	}
	if sum == 0 {
		return nil, errors.New("forest produced an empty distribution")
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

func (f *RandomForest) Predict(features []float64) (int, float64, error) {
	probs, err := f.PredictProba(features)
	if err != nil {
		return 0, 0, err
	}
	idx := ArgMax(probs)
	return idx, probs[idx], nil
}

// ArgMax returns the index of the largest probability; ties break toward the
// lowest index, which is stable because label encoding order is itself
// deterministic.
func ArgMax(probs []float64) int {
	best := 0
	for i := 1; i < len(probs); i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return best
}

func bootstrapSample(features [][]float64, labels []int, rng *rand.Rand) ([][]float64, []int) {
	n := len(features)
	sampleX := make([][]float64, n)
	sampleY := make([]int, n)
	for i := 0; i < n; i++ {
		j := rng.Intn(n)
		sampleX[i] = features[j]
		sampleY[i] = labels[j]
	}
	return sampleX, sampleY
}
