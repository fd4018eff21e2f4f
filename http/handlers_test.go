package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hormonetrack/db"
	"hormonetrack/ml"
)

type fakeClassifier struct {
	result *ml.PredictionResult
	err    error
}

func (f *fakeClassifier) Classify(sample ml.HormoneSample) (*ml.PredictionResult, error) {
	return f.result, f.err
}

func withStubbedDB(t *testing.T) {
	t.Helper()
	origSave := savePrediction
	origQuery := queryPredictions
	origStats := queryStats
	savePrediction = func(record db.PredictionRecord) error { return nil }
	queryPredictions = func(limit int) ([]db.PredictionRecord, error) { return nil, nil }
	queryStats = func() (db.Stats, error) { return db.Stats{ByStatus: map[string]int{}}, nil }
	t.Cleanup(func() {
		savePrediction = origSave
		queryPredictions = origQuery
		queryStats = origStats
	})
}

func TestHandleClassify(t *testing.T) {
	withStubbedDB(t)
	mux := http.NewServeMux()
	RegisterHandlers(mux)
	SetClassifier(&fakeClassifier{result: &ml.PredictionResult{
		Status:         ml.StatusNormal,
		Confidence:     0.92,
		Recommendation: "keep it up",
		Probabilities:  map[string]float64{ml.StatusNormal: 0.92},
	}})
	defer SetClassifier(nil)

	body := `{"cortisol": 7.0, "estrogen": 100.0, "testosterone": 40.0}`
	req := httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if payload["status"] != ml.StatusNormal {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
	if payload["confidence"].(float64) != 0.92 {
		t.Fatalf("unexpected confidence: %v", payload["confidence"])
	}
}

func TestHandleClassifyNotTrained(t *testing.T) {
	withStubbedDB(t)
	mux := http.NewServeMux()
	RegisterHandlers(mux)
	SetClassifier(&fakeClassifier{err: ml.ErrNotTrained})
	defer SetClassifier(nil)

	body := `{"cortisol": 7.0, "estrogen": 100.0, "testosterone": 40.0}`
	req := httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not trained") {
		t.Fatalf("expected an actionable message, got %s", w.Body.String())
	}
}

func TestHandleClassifyRejectsNonPositive(t *testing.T) {
	withStubbedDB(t)
	mux := http.NewServeMux()
	RegisterHandlers(mux)
	SetClassifier(&fakeClassifier{result: &ml.PredictionResult{Status: ml.StatusNormal}})
	defer SetClassifier(nil)

	body := `{"cortisol": -1.0, "estrogen": 100.0, "testosterone": 40.0}`
	req := httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleClassifyRejectsBadJSON(t *testing.T) {
	withStubbedDB(t)
	mux := http.NewServeMux()
	RegisterHandlers(mux)
	SetClassifier(&fakeClassifier{result: &ml.PredictionResult{Status: ml.StatusNormal}})
	defer SetClassifier(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHandlers(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
