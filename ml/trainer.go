package ml

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// TrainingConfig parameterizes one training run.
type TrainingConfig struct {
	Samples   int          `yaml:"samples" json:"samples"`
	Seed      int64        `yaml:"seed" json:"seed"`
	TestRatio float64      `yaml:"test_ratio" json:"test_ratio"`
	Ratios    ClassRatios  `yaml:"ratios" json:"ratios"`
	Forest    ForestConfig `yaml:"forest" json:"forest"`
}

func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		Samples:   2000,
		Seed:      42,
		TestRatio: 0.2,
		Ratios:    DefaultRatios(),
		Forest:    DefaultForestConfig(),
	}
}

// TrainingReport summarizes a completed run. Accuracy comes from the held-out
// partition only.
type TrainingReport struct {
	Samples     int            `json:"samples"`
	ClassCounts map[string]int `json:"class_counts"`
	Accuracy    float64        `json:"accuracy"`
	TrainedAt   time.Time      `json:"trained_at"`
	Duration    time.Duration  `json:"duration"`
}

// Train runs the full pipeline: synthesize a corpus, fit the scaler and
// codec, train the forest on a stratified 80/20 split, and evaluate on the
// holdout. The forest is fit on the training partition only, so the reported
// accuracy stays honest and runs with equal seeds reproduce bit-identical
// artifacts. Training is a one-shot batch operation; the caller serializes
// concurrent runs.
func Train(cfg TrainingConfig, logger *zap.Logger) (*Artifacts, *TrainingReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()
	rng := rand.New(rand.NewSource(cfg.Seed))

	corpus, err := GenerateCorpus(cfg.Samples, cfg.Ratios, rng)
	if err != nil {
		return nil, nil, err
	}

	scaler := &StandardScaler{}
	if err := scaler.Fit(corpus); err != nil {
		return nil, nil, fmt.Errorf("fit scaler: %w", err)
	}
	for _, name := range scaler.DegenerateFeatures() {
		logger.Warn("degenerate feature: zero variance in corpus, will transform to 0",
			zap.String("feature", name))
	}

	labels := make([]string, len(corpus))
	classCounts := make(map[string]int)
	for i, sample := range corpus {
		labels[i] = sample.Status
		classCounts[sample.Status]++
	}
	codec := &LabelCodec{}
	if err := codec.Fit(labels); err != nil {
		return nil, nil, fmt.Errorf("fit codec: %w", err)
	}

	features := make([][]float64, len(corpus))
	encoded := make([]int, len(corpus))
	for i, sample := range corpus {
		vec, err := scaler.Transform(sample.HormoneSample)
		if err != nil {
			return nil, nil, err
		}
		features[i] = vec
		idx, err := codec.Encode(sample.Status)
		if err != nil {
			return nil, nil, err
		}
		encoded[i] = idx
	}

	trainIdx, testIdx, err := stratifiedSplit(encoded, codec.ClassCount(), cfg.TestRatio, rng)
	if err != nil {
		return nil, nil, err
	}
	trainX, trainY := subset(features, encoded, trainIdx)
	testX, testY := subset(features, encoded, testIdx)

	forest := &RandomForest{}
	if err := forest.Fit(trainX, trainY, codec.ClassCount(), cfg.Forest, rng); err != nil {
		return nil, nil, fmt.Errorf("fit forest: %w", err)
	}

	accuracy := evaluate(forest, testX, testY)
	logger.Info("training complete",
		zap.Int("samples", len(corpus)),
		zap.Int("train", len(trainIdx)),
		zap.Int("test", len(testIdx)),
		zap.Float64("accuracy", accuracy),
		zap.Duration("duration", time.Since(start)))

	trainedAt := time.Now()
	artifacts := &Artifacts{
		Scaler: scaler,
		Codec:  codec,
		Forest: forest,
		Manifest: Manifest{
			Version:      artifactVersion,
			TrainedAt:    trainedAt,
			Samples:      len(corpus),
			Accuracy:     accuracy,
			FeatureCount: FeatureCount,
			Classes:      codec.Labels,
		},
	}
	report := &TrainingReport{
		Samples:     len(corpus),
		ClassCounts: classCounts,
		Accuracy:    accuracy,
		TrainedAt:   trainedAt,
		Duration:    time.Since(start),
	}
	return artifacts, report, nil
}

// stratifiedSplit partitions sample indices per class so the holdout keeps
// the corpus class balance.
func stratifiedSplit(labels []int, classCount int, testRatio float64, rng *rand.Rand) (trainIdx, testIdx []int, err error) {
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("%w: test ratio must be in (0, 1), got %v", ErrInvalidConfig, testRatio)
	}
	byClass := make([][]int, classCount)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	for _, indices := range byClass {
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		cut := len(indices) - int(float64(len(indices))*testRatio)
		trainIdx = append(trainIdx, indices[:cut]...)
		testIdx = append(testIdx, indices[cut:]...)
	}
	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, nil, fmt.Errorf("%w: corpus too small for a %v holdout", ErrInvalidConfig, testRatio)
	}
	return trainIdx, testIdx, nil
}

func subset(features [][]float64, labels []int, indices []int) ([][]float64, []int) {
	x := make([][]float64, len(indices))
	y := make([]int, len(indices))
	for i, idx := range indices {
		x[i] = features[idx]
		y[i] = labels[idx]
	}
	return x, y
}

func evaluate(forest *RandomForest, testX [][]float64, testY []int) float64 {
	if len(testX) == 0 {
		return 0
	}
	correct := 0
	for i, features := range testX {
		label, _, err := forest.Predict(features)
		if err != nil {
			continue
		}
		if label == testY[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(testX))
}
