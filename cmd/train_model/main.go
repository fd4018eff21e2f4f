package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"go.uber.org/zap"

	"hormonetrack/ml"
)

func main() {
	samples := flag.Int("samples", 2000, "number of synthetic samples")
	seed := flag.Int64("seed", 42, "random seed")
	trees := flag.Int("trees", 150, "number of trees in the ensemble")
	maxDepth := flag.Int("max_depth", 10, "max tree depth")
	minSplit := flag.Int("min_split", 5, "min samples to attempt a split")
	testRatio := flag.Float64("test_ratio", 0.2, "holdout ratio")
	normalRatio := flag.Float64("normal", 0.40, "Normal class ratio")
	borderlineRatio := flag.Float64("borderline", 0.30, "Borderline class ratio")
	abnormalRatio := flag.Float64("abnormal", 0.30, "Abnormal class ratio")
	artifactsDir := flag.String("artifacts", "./models/artifacts", "artifact output directory")
	csvPath := flag.String("csv", "", "optional corpus CSV export path")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	cfg := ml.TrainingConfig{
		Samples:   *samples,
		Seed:      *seed,
		TestRatio: *testRatio,
		Ratios: ml.ClassRatios{
			Normal:     *normalRatio,
			Borderline: *borderlineRatio,
			Abnormal:   *abnormalRatio,
		},
		Forest: ml.ForestConfig{
			Trees:           *trees,
			MaxDepth:        *maxDepth,
			MinSamplesSplit: *minSplit,
		},
	}

	artifacts, report, err := ml.Train(cfg, logger)
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}

	store := ml.NewStore(*artifactsDir)
	if err := store.Save(artifacts); err != nil {
		log.Fatalf("failed to save artifacts: %v", err)
	}

	if *csvPath != "" {
		if err := exportCorpus(*csvPath, cfg); err != nil {
			log.Fatalf("failed to export corpus: %v", err)
		}
		fmt.Printf("corpus exported to %s\n", *csvPath)
	}

	fmt.Printf("trained on %d samples (", report.Samples)
	for _, label := range ml.StatusLabels {
		fmt.Printf("%s=%d ", label, report.ClassCounts[label])
	}
	fmt.Printf(")\nholdout accuracy=%.4f\n", report.Accuracy)
	fmt.Printf("artifacts saved to %s\n", store.Dir())
}

// exportCorpus regenerates the corpus with the same seed the training run
// used, so the exported rows match the fitted artifacts.
func exportCorpus(path string, cfg ml.TrainingConfig) error {
	corpus, err := ml.GenerateCorpus(cfg.Samples, cfg.Ratios, rand.New(rand.NewSource(cfg.Seed)))
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ml.WriteCorpusCSV(file, corpus)
}
