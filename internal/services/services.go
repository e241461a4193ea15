package services

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/internal/config"
	"github.com/temcen/sage/internal/database"
	"github.com/temcen/sage/internal/engine"
	"github.com/temcen/sage/internal/messaging"
	"github.com/temcen/sage/internal/ml"
)

type Services struct {
	Engine         *engine.Holder
	Metrics        *MetricsCollector
	Sync           *SyncService
	Recommendation *RecommendationService
	Evaluation     *EvaluationService
	OnlineMetrics  *OnlineMetricsService
	Health         *HealthService
}

// EngineOptions maps configuration onto snapshot scoring constants.
func EngineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		CategoryBoost:       cfg.Recommendation.CategoryBoost,
		BrandBoost:          cfg.Recommendation.BrandBoost,
		ContentWeight:       cfg.Recommendation.ContentWeight,
		CollaborativeWeight: cfg.Recommendation.CollaborativeWeight,
		CategoryCap:         cfg.Recommendation.CategoryMaxItems,
		Vectorizer: ml.VectorizerConfig{
			MaxFeatures: cfg.Recommendation.MaxFeatures,
			MaxNGram:    2,
		},
		EvaluationWorkers: cfg.Evaluation.Workers,
	}
}

// New wires the services. bus may be nil when Kafka is disabled. The
// engine starts with the demo catalog when seeding is enabled, otherwise
// with an empty snapshot.
func New(cfg *config.Config, logger *logrus.Logger, db *database.Database, bus *messaging.MessageBus, registerer prometheus.Registerer) (*Services, error) {
	options := EngineOptions(cfg)

	empty, err := engine.Build(nil, nil, options)
	if err != nil {
		return nil, fmt.Errorf("failed to build initial snapshot: %w", err)
	}
	holder := engine.NewHolder(empty)

	metrics := NewMetricsCollector(registerer, logger)

	var loader SnapshotLoader
	var cache ResultCache
	var deps DependencyPinger
	if db != nil {
		deps = db
		if db.PG != nil {
			loader = database.NewSnapshotSource(db.PG)
		}
		if db.Redis != nil {
			cache = NewRedisResultCache(db.Redis, cfg.Redis.TTL, logger)
		}
	}

	var publisher SnapshotPublisher
	if bus != nil {
		publisher = bus
	}

	syncService := NewSyncService(holder, options, loader, publisher, metrics, logger)
	if cfg.Server.SeedDemo {
		if err := syncService.Seed(context.Background()); err != nil {
			return nil, fmt.Errorf("failed to seed demo catalog: %w", err)
		}
	}

	return &Services{
		Engine:         holder,
		Metrics:        metrics,
		Sync:           syncService,
		Recommendation: NewRecommendationService(holder, cache, metrics, cfg.Recommendation, logger),
		Evaluation:     NewEvaluationService(holder, metrics, logger),
		OnlineMetrics:  NewOnlineMetricsService(holder),
		Health:         NewHealthService(holder, deps, registerer, logger),
	}, nil
}
