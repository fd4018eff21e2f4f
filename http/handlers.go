package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"hormonetrack/db"
	"hormonetrack/ml"
)

// Classifier is the seam between the API and the inference service; tests
// substitute a fake.
type Classifier interface {
	Classify(sample ml.HormoneSample) (*ml.PredictionResult, error)
}

var (
	classifier Classifier
	pkgLogger  *zap.Logger

	// savePrediction and queryStats are swappable for handler tests.
	savePrediction   = db.SavePrediction
	queryPredictions = db.QueryPredictions
	queryStats       = db.QueryStats
)

func SetClassifier(c Classifier) {
	classifier = c
}

func SetLogger(l *zap.Logger) {
	pkgLogger = l
}

func logger() *zap.Logger {
	if pkgLogger == nil {
		pkgLogger = zap.NewNop()
	}
	return pkgLogger
}

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/classify", handleClassify)
	mux.HandleFunc("GET /api/records", handleRecords)
	mux.HandleFunc("GET /api/stats", handleStats)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ClassifyRequest carries one saliva measurement triple.
type ClassifyRequest struct {
	Cortisol     float64 `json:"cortisol"`
	Estrogen     float64 `json:"estrogen"`
	Testosterone float64 `json:"testosterone"`
}

func handleClassify(w http.ResponseWriter, r *http.Request) {
	if classifier == nil {
		writeError(w, http.StatusServiceUnavailable, "classifier not configured")
		return
	}

	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Cortisol <= 0 || req.Estrogen <= 0 || req.Testosterone <= 0 {
		writeError(w, http.StatusBadRequest, "all hormone values must be positive")
		return
	}

	sample := ml.HormoneSample{
		Cortisol:     req.Cortisol,
		Estrogen:     req.Estrogen,
		Testosterone: req.Testosterone,
	}
	result, err := classifier.Classify(sample)
	if err != nil {
		if errors.Is(err, ml.ErrNotTrained) {
			writeError(w, http.StatusServiceUnavailable, "model not trained yet: run a training job first")
			return
		}
		logger().Error("classify failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "classification failed")
		return
	}

	record := db.PredictionRecord{
		Cortisol:       sample.Cortisol,
		Estrogen:       sample.Estrogen,
		Testosterone:   sample.Testosterone,
		Status:         result.Status,
		Confidence:     result.Confidence,
		Recommendation: result.Recommendation,
	}
	if err := savePrediction(record); err != nil {
		// History is best-effort; the caller still gets the result.
		logger().Warn("failed to store prediction", zap.Error(err))
	}
	BroadcastPrediction(record)

	writeJSON(w, http.StatusOK, result)
}

func handleRecords(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	records, err := queryPredictions(limit)
	if err != nil {
		logger().Error("failed to query predictions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load records")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

func handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := queryStats()
	if err != nil {
		logger().Error("failed to query stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
