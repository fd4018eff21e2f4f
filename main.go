package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"hormonetrack/db"
	qhttp "hormonetrack/http"
	"hormonetrack/logging"
	"hormonetrack/ml"
)

type Config struct {
	Http struct {
		Port int `yaml:"port"`
	} `yaml:"http"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Artifacts struct {
		Dir       string `yaml:"dir"`
		CacheSize int    `yaml:"cache_size"`
	} `yaml:"artifacts"`
	Log      logging.Config    `yaml:"log"`
	Training ml.TrainingConfig `yaml:"training"`
}

func main() {
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(config.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	qhttp.SetLogger(logger)

	if err := db.InitDB(config.Database.Path); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database initialized", zap.String("path", config.Database.Path))

	store := ml.NewStore(config.Artifacts.Dir)
	predictor, err := ml.NewPredictor(store, config.Artifacts.CacheSize, logger)
	if err != nil {
		logger.Fatal("failed to create predictor", zap.Error(err))
	}
	defer predictor.Close()

	// First boot: no artifact set exists yet, train one with the configured
	// defaults so the API is usable immediately.
	if _, err := store.Load(); err != nil {
		if !errors.Is(err, ml.ErrNotTrained) {
			logger.Fatal("failed to load artifacts", zap.Error(err))
		}
		logger.Info("no trained artifacts found, training with defaults")
		artifacts, report, err := ml.Train(mergedTrainingConfig(config.Training), logger)
		if err != nil {
			logger.Fatal("initial training failed", zap.Error(err))
		}
		if err := store.Save(artifacts); err != nil {
			logger.Fatal("failed to save artifacts", zap.Error(err))
		}
		if err := db.SaveTrainingRun(db.TrainingRun{
			Samples:   report.Samples,
			Accuracy:  report.Accuracy,
			Trees:     artifacts.Forest.Config.Trees,
			TrainedAt: report.TrainedAt,
		}); err != nil {
			logger.Warn("failed to log training run", zap.Error(err))
		}
	}

	if err := predictor.Watch(); err != nil {
		logger.Warn("artifact watcher unavailable, retraining requires restart or explicit reload", zap.Error(err))
	}

	hub := qhttp.NewHub()
	go hub.Run()
	qhttp.SetHub(hub)
	qhttp.SetClassifier(predictor)
	qhttp.SetArtifactStore(store)
	qhttp.SetReloader(predictor)

	server := qhttp.NewServer(qhttp.ServerConfig{Port: config.Http.Port, AllowedOrigins: []string{"*"}})
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	hub.Stop()

	logger.Info("exiting")
}

// mergedTrainingConfig fills unset yaml fields from the defaults.
func mergedTrainingConfig(cfg ml.TrainingConfig) ml.TrainingConfig {
	def := ml.DefaultTrainingConfig()
	if cfg.Samples <= 0 {
		cfg.Samples = def.Samples
	}
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	if cfg.TestRatio <= 0 {
		cfg.TestRatio = def.TestRatio
	}
	zero := ml.ClassRatios{}
	if cfg.Ratios == zero {
		cfg.Ratios = def.Ratios
	}
	if cfg.Forest.Trees <= 0 {
		cfg.Forest = def.Forest
	}
	return cfg
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
