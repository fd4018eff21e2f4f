package http

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"go.uber.org/zap"

	"hormonetrack/db"
	"hormonetrack/ml"
)

// Reloader lets the API tell the inference service that a new artifact set
// replaced the old one.
type Reloader interface {
	Reload()
}

var (
	artifactStore *ml.Store
	reloader      Reloader

	// Training is a one-shot batch operation; a second concurrent run is
	// rejected rather than serialized.
	trainingInProgress atomic.Bool

	trainFunc = ml.Train
)

func SetArtifactStore(store *ml.Store) {
	artifactStore = store
}

func SetReloader(r Reloader) {
	reloader = r
}

func RegisterTrainingHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/train", handleTrain)
}

// TrainRequest overrides the training defaults; zero fields keep them.
type TrainRequest struct {
	Samples         int    `json:"samples"`
	Seed            *int64 `json:"seed"`
	Trees           int    `json:"trees"`
	MaxDepth        int    `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
}

func handleTrain(w http.ResponseWriter, r *http.Request) {
	if artifactStore == nil {
		writeError(w, http.StatusServiceUnavailable, "artifact store not configured")
		return
	}
	if !trainingInProgress.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "a training run is already in progress")
		return
	}
	defer trainingInProgress.Store(false)

	var req TrainRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	cfg := ml.DefaultTrainingConfig()
	if req.Samples > 0 {
		cfg.Samples = req.Samples
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.Trees > 0 {
		cfg.Forest.Trees = req.Trees
	}
	if req.MaxDepth > 0 {
		cfg.Forest.MaxDepth = req.MaxDepth
	}
	if req.MinSamplesSplit > 0 {
		cfg.Forest.MinSamplesSplit = req.MinSamplesSplit
	}

	artifacts, report, err := trainFunc(cfg, logger())
	if err != nil {
		logger().Error("training failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := artifactStore.Save(artifacts); err != nil {
		logger().Error("failed to save artifacts", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to persist artifacts")
		return
	}
	if reloader != nil {
		reloader.Reload()
	}

	if err := db.SaveTrainingRun(db.TrainingRun{
		Samples:   report.Samples,
		Accuracy:  report.Accuracy,
		Trees:     cfg.Forest.Trees,
		TrainedAt: report.TrainedAt,
	}); err != nil {
		logger().Warn("failed to log training run", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, report)
}
