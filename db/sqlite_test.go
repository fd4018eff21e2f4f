package db

import (
	"path/filepath"
	"testing"
	"time"
)

func initTestDB(t *testing.T) {
	t.Helper()
	if err := InitDB(filepath.Join(t.TempDir(), "test.db")); err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { Close() })
}

func TestSaveAndQueryPredictions(t *testing.T) {
	initTestDB(t)

	records := []PredictionRecord{
		{Cortisol: 7, Estrogen: 100, Testosterone: 40, Status: "Normal", Confidence: 0.95, Recommendation: "retest in 6 months"},
		{Cortisol: 45, Estrogen: 900, Testosterone: 180, Status: "Abnormal", Confidence: 0.88, Recommendation: "consult a specialist"},
	}
	for _, record := range records {
		if err := SavePrediction(record); err != nil {
			t.Fatalf("save prediction: %v", err)
		}
	}

	got, err := QueryPredictions(10)
	if err != nil {
		t.Fatalf("query predictions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	// Newest first.
	if got[0].Status != "Abnormal" {
		t.Fatalf("expected newest record first, got %s", got[0].Status)
	}
}

func TestQueryStats(t *testing.T) {
	initTestDB(t)

	for i := 0; i < 3; i++ {
		if err := SavePrediction(PredictionRecord{Cortisol: 6, Estrogen: 90, Testosterone: 30, Status: "Normal", Confidence: 0.9}); err != nil {
			t.Fatalf("save prediction: %v", err)
		}
	}
	if err := SavePrediction(PredictionRecord{Cortisol: 30, Estrogen: 500, Testosterone: 200, Status: "Abnormal", Confidence: 0.8}); err != nil {
		t.Fatalf("save prediction: %v", err)
	}

	stats, err := QueryStats()
	if err != nil {
		t.Fatalf("query stats: %v", err)
	}
	if stats.Total != 4 {
		t.Fatalf("expected total 4, got %d", stats.Total)
	}
	if stats.ByStatus["Normal"] != 3 || stats.ByStatus["Abnormal"] != 1 {
		t.Fatalf("unexpected status distribution: %v", stats.ByStatus)
	}
	if stats.AvgCortisol <= 0 {
		t.Fatalf("expected positive average cortisol, got %v", stats.AvgCortisol)
	}
}

func TestSaveTrainingRun(t *testing.T) {
	initTestDB(t)

	run := TrainingRun{Samples: 2000, Accuracy: 0.97, Trees: 150, TrainedAt: time.Now()}
	if err := SaveTrainingRun(run); err != nil {
		t.Fatalf("save training run: %v", err)
	}
}

func TestUninitializedDB(t *testing.T) {
	Close()
	database = nil

	if err := SavePrediction(PredictionRecord{}); err == nil {
		t.Fatal("expected error for uninitialized database")
	}
	if _, err := QueryPredictions(10); err == nil {
		t.Fatal("expected error for uninitialized database")
	}
}
