package ml

import (
	"fmt"
	"math"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// PredictionResult is what the caller gets back for one sample. It is never
// persisted here; storing it is the caller's decision.
type PredictionResult struct {
	Status         string             `json:"status"`
	Confidence     float64            `json:"confidence"`
	Recommendation string             `json:"recommendation"`
	Probabilities  map[string]float64 `json:"probabilities"`
}

// recommendations is the fixed label-to-advice mapping.
var recommendations = map[string]string{
	StatusNormal:     "Hormone levels are balanced. Maintain your current lifestyle and retest in 6-12 months.",
	StatusBorderline: "Minor deviations detected. Review sleep, stress and diet, and retest in 4-6 weeks.",
	StatusAbnormal:   "Significant deviation from reference ranges. Consult an endocrinologist before acting on these results.",
}

const defaultCacheSize = 512

// Predictor serves classifications against the last persisted artifact set.
// Artifacts load once under a read-write guard and are immutable afterwards,
// so Classify is safe for unlimited concurrent callers. A retraining run
// swaps in a wholly new set via Reload (or the directory watcher) instead of
// mutating the loaded one.
type Predictor struct {
	store  *Store
	logger *zap.Logger

	mu        sync.RWMutex
	artifacts *Artifacts

	cache   *lru.Cache[HormoneSample, *PredictionResult]
	watcher *fsnotify.Watcher
}

func NewPredictor(store *Store, cacheSize int, logger *zap.Logger) (*Predictor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[HormoneSample, *PredictionResult](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Predictor{store: store, logger: logger, cache: cache}, nil
}

// Classify runs normalize -> predict -> decode -> recommend for one sample.
// Returns ErrNotTrained before doing any work if no artifact set exists.
func (p *Predictor) Classify(sample HormoneSample) (*PredictionResult, error) {
	artifacts, err := p.loadArtifacts()
	if err != nil {
		return nil, err
	}

	if result, ok := p.cache.Get(sample); ok {
		return result, nil
	}

	features, err := artifacts.Scaler.Transform(sample)
	if err != nil {
		return nil, err
	}
	probs, err := artifacts.Forest.PredictProba(features)
	if err != nil {
		return nil, err
	}
	if err := validateDistribution(probs); err != nil {
		return nil, err
	}

	idx := ArgMax(probs)
	status, err := artifacts.Codec.Decode(idx)
	if err != nil {
		return nil, err
	}

	probabilities := make(map[string]float64, len(probs))
	for i, prob := range probs {
		label, err := artifacts.Codec.Decode(i)
		if err != nil {
			return nil, err
		}
		probabilities[label] = prob
	}

	result := &PredictionResult{
		Status:         status,
		Confidence:     probs[idx],
		Recommendation: recommendations[status],
		Probabilities:  probabilities,
	}
	p.cache.Add(sample, result)
	return result, nil
}

func validateDistribution(probs []float64) error {
	sum := 0.0
	for _, prob := range probs {
		if prob < 0 {
			return fmt.Errorf("negative class probability %v", prob)
		}
		sum += prob
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("class probabilities sum to %v, want 1", sum)
	}
	return nil
}

func (p *Predictor) loadArtifacts() (*Artifacts, error) {
	p.mu.RLock()
	artifacts := p.artifacts
	p.mu.RUnlock()
	if artifacts != nil {
		return artifacts, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.artifacts != nil {
		return p.artifacts, nil
	}
	artifacts, err := p.store.Load()
	if err != nil {
		return nil, err
	}
	p.artifacts = artifacts
	p.logger.Info("artifacts loaded",
		zap.Time("trained_at", artifacts.Manifest.TrainedAt),
		zap.Float64("accuracy", artifacts.Manifest.Accuracy))
	return artifacts, nil
}

// Reload drops the cached artifact set so the next Classify loads the
// current one from disk. Called after an explicit retraining run.
func (p *Predictor) Reload() {
	p.mu.Lock()
	p.artifacts = nil
	p.mu.Unlock()
	p.cache.Purge()
}

// Watch reloads automatically when a retraining run swaps the artifact
// directory. The watcher observes the parent directory because the swap
// replaces the artifact directory itself.
func (p *Predictor) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	parent := filepath.Dir(filepath.Clean(p.store.Dir()))
	if err := watcher.Add(parent); err != nil {
		watcher.Close()
		return err
	}
	p.watcher = watcher

	go func() {
		target := filepath.Clean(p.store.Dir())
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
					continue
				}
				p.logger.Info("artifact directory changed, reloading", zap.String("op", event.Op.String()))
				p.Reload()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.logger.Warn("artifact watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}

func (p *Predictor) Close() error {
	if p.watcher != nil {
		return p.watcher.Close()
	}
	return nil
}
