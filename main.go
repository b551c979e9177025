package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"flightdelay/db"
	fdhttp "flightdelay/http"
	"flightdelay/logging"
	"flightdelay/ml"
	"flightdelay/monitoring"
	"flightdelay/pipeline"
)

type Config struct {
	Dataset struct {
		Path        string `yaml:"path"`
		WatchReload bool   `yaml:"watch_reload"`
	} `yaml:"dataset"`
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log      logging.Config `yaml:"log"`
	Features *ml.FeatureSet `yaml:"features"`
}

// datasetHolder keeps the currently loaded reference dataset so the
// retrain endpoint and the file watcher share one view of it.
type datasetHolder struct {
	mu      sync.RWMutex
	records []ml.FlightRecord
}

func (h *datasetHolder) Set(records []ml.FlightRecord) {
	h.mu.Lock()
	h.records = records
	h.mu.Unlock()
}

func (h *datasetHolder) Records() []ml.FlightRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.records
}

func main() {
	// .env overrides are optional; absence is not an error.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	config, err := loadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if path := os.Getenv("DATASET_PATH"); path != "" {
		config.Dataset.Path = path
	}

	logger := logging.New(config.Log)
	defer logger.Sync()

	featureSet := ml.DefaultFeatureSet
	if config.Features != nil {
		featureSet = *config.Features
	}
	model, err := ml.NewDelayModel(featureSet)
	if err != nil {
		logger.Fatal("invalid feature configuration", zap.Error(err))
	}

	metrics := monitoring.NewMetrics()
	model.OnUnknownCategory(func(column string) {
		metrics.IncUnknownCategory()
		logger.Warn("unknown category at inference", zap.String("column", column))
	})

	var store *db.Store
	if config.Database.Path != "" {
		store, err = db.Open(config.Database.Path)
		if err != nil {
			logger.Fatal("failed to open prediction store", zap.Error(err))
		}
		defer store.Close()
		logger.Info("prediction store opened", zap.String("path", config.Database.Path))
	}

	hub, err := monitoring.NewHub(256, logger)
	if err != nil {
		logger.Fatal("failed to create monitoring hub", zap.Error(err))
	}
	go hub.Run()
	defer hub.Stop()

	dataset := &datasetHolder{}
	records, stats, err := pipeline.LoadDataset(config.Dataset.Path, logger)
	if err != nil {
		logger.Warn("could not load reference dataset; service starts untrained", zap.Error(err))
	} else {
		dataset.Set(records)
		logger.Info("reference dataset loaded",
			zap.String("path", config.Dataset.Path),
			zap.Int("records", stats.Loaded),
			zap.Int("skipped", stats.Skipped))

		// Training happens here, explicitly, not inside the first predict.
		metrics.IncTrainingRuns()
		if err := model.EnsureTrained(records); err != nil {
			metrics.IncTrainingFailures()
			logger.Warn("could not train model at startup; predict will fail fast until /api/train succeeds", zap.Error(err))
		} else {
			info := model.Info()
			logger.Info("model trained",
				zap.Int("samples", info.Samples),
				zap.Int("on_time", info.OnTime),
				zap.Int("delayed", info.Delayed),
				zap.String("feature_set", info.FeatureSetVersion))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.Dataset.WatchReload {
		err := pipeline.WatchDataset(ctx, config.Dataset.Path, 2*time.Second, func() {
			records, stats, err := pipeline.LoadDataset(config.Dataset.Path, logger)
			if err != nil {
				logger.Warn("dataset reload failed", zap.Error(err))
				return
			}
			dataset.Set(records)
			metrics.IncTrainingRuns()
			if err := model.Fit(records); err != nil {
				metrics.IncTrainingFailures()
				logger.Warn("retrain after dataset change failed; previous model keeps serving", zap.Error(err))
				return
			}
			logger.Info("model retrained after dataset change", zap.Int("records", stats.Loaded))
		}, logger)
		if err != nil {
			logger.Warn("dataset watcher unavailable", zap.Error(err))
		}
	}

	serverConfig := fdhttp.DefaultServerConfig()
	if config.Http.Port != 0 {
		serverConfig.Port = config.Http.Port
	}
	if config.Http.TimeoutSeconds > 0 {
		serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	}
	if len(config.Http.AllowedOrigins) > 0 {
		serverConfig.AllowedOrigins = config.Http.AllowedOrigins
	}

	server := fdhttp.NewServer(serverConfig, fdhttp.Deps{
		Model:   model,
		Dataset: dataset.Records,
		Store:   store,
		Metrics: metrics,
		Hub:     hub,
		Log:     logger,
	})
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
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
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
