package http

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"hormonetrack/ml"
)

type fakeReloader struct {
	calls int
}

func (f *fakeReloader) Reload() { f.calls++ }

func stubTrainFunc(t *testing.T, block chan struct{}) *int {
	t.Helper()
	calls := 0
	orig := trainFunc
	trainFunc = func(cfg ml.TrainingConfig, logger *zap.Logger) (*ml.Artifacts, *ml.TrainingReport, error) {
		calls++
		if block != nil {
			<-block
		}
		cfg.Samples = 300
		cfg.Forest = ml.ForestConfig{Trees: 5, MaxDepth: 6, MinSamplesSplit: 2}
		return ml.Train(cfg, nil)
	}
	t.Cleanup(func() { trainFunc = orig })
	return &calls
}

func TestHandleTrain(t *testing.T) {
	stubTrainFunc(t, nil)
	store := ml.NewStore(filepath.Join(t.TempDir(), "artifacts"))
	SetArtifactStore(store)
	reloader := &fakeReloader{}
	SetReloader(reloader)
	defer func() {
		SetArtifactStore(nil)
		SetReloader(nil)
	}()

	mux := http.NewServeMux()
	RegisterTrainingHandlers(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/train", strings.NewReader(`{"trees": 5}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if reloader.calls != 1 {
		t.Fatalf("expected 1 reload, got %d", reloader.calls)
	}
	if _, err := store.Load(); err != nil {
		t.Fatalf("expected persisted artifacts, got %v", err)
	}
}

func TestHandleTrainRejectsConcurrentRun(t *testing.T) {
	block := make(chan struct{})
	stubTrainFunc(t, block)
	store := ml.NewStore(filepath.Join(t.TempDir(), "artifacts"))
	SetArtifactStore(store)
	defer SetArtifactStore(nil)

	mux := http.NewServeMux()
	RegisterTrainingHandlers(mux)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		req := httptest.NewRequest(http.MethodPost, "/api/train", nil)
		mux.ServeHTTP(httptest.NewRecorder(), req)
	}()

	// Wait for the first run to take the guard.
	deadline := time.Now().Add(2 * time.Second)
	for !trainingInProgress.Load() {
		if time.Now().After(deadline) {
			t.Fatal("first training run never started")
		}
		time.Sleep(time.Millisecond)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/train", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 while training in progress, got %d", w.Code)
	}

	close(block)
	wg.Wait()
}

func TestHandleTrainWithoutStore(t *testing.T) {
	SetArtifactStore(nil)

	mux := http.NewServeMux()
	RegisterTrainingHandlers(mux)

	req := httptest.NewRequest(http.MethodPost, "/api/train", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}
