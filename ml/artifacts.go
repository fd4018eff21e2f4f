package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	artifactVersion = 1

	scalerFile   = "scaler.json"
	codecFile    = "codec.json"
	forestFile   = "forest.json"
	manifestFile = "manifest.json"
)

// Manifest records how an artifact set was produced.
type Manifest struct {
	Version      int       `json:"version"`
	TrainedAt    time.Time `json:"trained_at"`
	Samples      int       `json:"samples"`
	Accuracy     float64   `json:"accuracy"`
	FeatureCount int       `json:"feature_count"`
	Classes      []string  `json:"classes"`
}

// Artifacts is the fitted state of one training run. The three sub-states are
// only ever persisted and loaded together; a scaler from one run paired with a
// forest from another is structurally impossible to load.
type Artifacts struct {
	Scaler   *StandardScaler
	Codec    *LabelCodec
	Forest   *RandomForest
	Manifest Manifest
}

func (a *Artifacts) validate() error {
	if a.Scaler == nil || a.Codec == nil || a.Forest == nil {
		return fmt.Errorf("incomplete artifact set")
	}
	if a.Scaler.FeatureCount() != FeatureCount {
		return fmt.Errorf("artifact set inconsistent: scaler has %d features, want %d", a.Scaler.FeatureCount(), FeatureCount)
	}
	if a.Codec.ClassCount() != a.Forest.ClassCount {
		return fmt.Errorf("artifact set inconsistent: codec has %d classes, forest has %d", a.Codec.ClassCount(), a.Forest.ClassCount)
	}
	if a.Manifest.FeatureCount != FeatureCount {
		return fmt.Errorf("artifact set inconsistent: manifest feature count %d", a.Manifest.FeatureCount)
	}
	return nil
}

// Store persists artifact sets under one directory. Save writes the whole set
// into a temp directory first and swaps it into place, so Load can never see
// a partially written set.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Save(artifacts *Artifacts) error {
	if err := artifacts.validate(); err != nil {
		return err
	}

	tmp := s.dir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return err
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return err
	}

	files := map[string]interface{}{
		scalerFile:   artifacts.Scaler,
		codecFile:    artifacts.Codec,
		forestFile:   artifacts.Forest,
		manifestFile: artifacts.Manifest,
	}
	for name, payload := range files {
		if err := writeJSON(filepath.Join(tmp, name), payload); err != nil {
			os.RemoveAll(tmp)
			return err
		}
	}

	old := s.dir + ".old"
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	if _, err := os.Stat(s.dir); err == nil {
		if err := os.Rename(s.dir, old); err != nil {
			return err
		}
	}
	if err := os.Rename(tmp, s.dir); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

func (s *Store) Load() (*Artifacts, error) {
	if _, err := os.Stat(s.dir); os.IsNotExist(err) {
		return nil, ErrNotTrained
	}

	artifacts := &Artifacts{
		Scaler: &StandardScaler{},
		Codec:  &LabelCodec{},
		Forest: &RandomForest{},
	}
	files := map[string]interface{}{
		scalerFile:   artifacts.Scaler,
		codecFile:    artifacts.Codec,
		forestFile:   artifacts.Forest,
		manifestFile: &artifacts.Manifest,
	}
	for name, target := range files {
		if err := readJSON(filepath.Join(s.dir, name), target); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("missing %s: %w", name, ErrNotTrained)
			}
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}
	if artifacts.Manifest.Version != artifactVersion {
		return nil, fmt.Errorf("unsupported artifact version %d", artifacts.Manifest.Version)
	}
	if err := artifacts.validate(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func writeJSON(path string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readJSON(path string, target interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
