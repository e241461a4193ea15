package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/internal/engine"
	"github.com/temcen/sage/internal/messaging"
	"github.com/temcen/sage/pkg/models"
)

// Sync sources recorded in logs, metrics and snapshot events.
const (
	SourceSeed     = "seed"
	SourceAPI      = "api"
	SourceDatabase = "database"
	SourceKafka    = "kafka"
)

// SnapshotLoader reads a full catalog and interaction set.
type SnapshotLoader interface {
	Load(ctx context.Context) (*models.SyncRequest, error)
}

// SnapshotPublisher announces newly installed snapshots.
type SnapshotPublisher interface {
	PublishSnapshotBuilt(ctx context.Context, event messaging.SnapshotEvent) error
}

// SyncService owns the replace-on-sync lifecycle: every sync builds a new
// snapshot off to the side and swaps it in once complete.
type SyncService struct {
	holder    *engine.Holder
	options   engine.Options
	loader    SnapshotLoader
	publisher SnapshotPublisher
	metrics   *MetricsCollector
	logger    *logrus.Logger
}

func NewSyncService(holder *engine.Holder, options engine.Options, loader SnapshotLoader, publisher SnapshotPublisher, metrics *MetricsCollector, logger *logrus.Logger) *SyncService {
	return &SyncService{
		holder:    holder,
		options:   options,
		loader:    loader,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// Apply builds a snapshot from req and makes it the active one. A payload
// the engine rejects (duplicate or missing ids) leaves the active snapshot
// untouched and returns ErrInvalidParameter.
func (s *SyncService) Apply(ctx context.Context, source string, req models.SyncRequest) (*models.SyncResponse, error) {
	start := time.Now()

	snap, err := engine.Build(req.Products, req.Interactions, s.options)
	if err != nil {
		s.metrics.RecordRebuild(source, "error", time.Since(start))
		if errors.Is(err, engine.ErrDuplicateItem) || errors.Is(err, engine.ErrMissingItemID) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}

	previous := s.holder.Swap(snap)
	took := time.Since(start)

	resp := &models.SyncResponse{
		ProductsLoaded:     snap.Catalog().Len(),
		UsersLoaded:        snap.Ledger().UserCount(),
		InteractionsLoaded: len(req.Interactions),
		SnapshotVersion:    snap.Version(),
	}

	s.metrics.RecordRebuild(source, "ok", took)
	s.metrics.SetSnapshotSize(resp.ProductsLoaded, resp.UsersLoaded, resp.InteractionsLoaded)

	fields := logrus.Fields{
		"source":           source,
		"snapshot_version": snap.Version(),
		"products":         resp.ProductsLoaded,
		"users":            resp.UsersLoaded,
		"interactions":     resp.InteractionsLoaded,
		"vocabulary":       snap.TextModel().Dim(),
		"took":             took,
	}
	if previous != nil {
		fields["previous_version"] = previous.Version()
	}
	s.logger.WithFields(fields).Info("Snapshot rebuilt")

	if s.publisher != nil {
		event := messaging.SnapshotEvent{
			SnapshotVersion:    snap.Version(),
			Source:             source,
			ProductsLoaded:     resp.ProductsLoaded,
			UsersLoaded:        resp.UsersLoaded,
			InteractionsLoaded: resp.InteractionsLoaded,
			BuiltAt:            snap.BuiltAt(),
		}
		if err := s.publisher.PublishSnapshotBuilt(ctx, event); err != nil {
			s.logger.WithError(err).Warn("Failed to publish snapshot event")
		}
	}

	return resp, nil
}

// SyncFromDatabase pulls a full snapshot from the configured loader.
func (s *SyncService) SyncFromDatabase(ctx context.Context) (*models.SyncResponse, error) {
	if s.loader == nil {
		return nil, ErrSourceUnavailable
	}

	req, err := s.loader.Load(ctx)
	if err != nil {
		s.metrics.RecordRebuild(SourceDatabase, "error", 0)
		return nil, fmt.Errorf("failed to load snapshot from database: %w", err)
	}

	return s.Apply(ctx, SourceDatabase, *req)
}

// HandleSyncMessage applies a sync payload received from Kafka.
func (s *SyncService) HandleSyncMessage(ctx context.Context, msg messaging.SyncMessage) error {
	_, err := s.Apply(ctx, SourceKafka, msg.Payload)
	if errors.Is(err, ErrInvalidParameter) {
		return fmt.Errorf("%w: %w", messaging.ErrPermanent, err)
	}
	return err
}

// Seed installs the demo catalog.
func (s *SyncService) Seed(ctx context.Context) error {
	_, err := s.Apply(ctx, SourceSeed, DemoSyncRequest())
	return err
}
