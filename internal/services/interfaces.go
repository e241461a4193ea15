package services

import (
	"context"

	"github.com/temcen/sage/pkg/models"
)

// RecommendationServiceInterface serves item and user recommendations
type RecommendationServiceInterface interface {
	RecommendItem(ctx context.Context, req models.ItemRecommendationRequest) (*models.RecommendationResponse, error)
	RecommendUser(ctx context.Context, req models.UserRecommendationRequest) (*models.RecommendationResponse, error)
}

// EvaluationServiceInterface runs offline evaluation
type EvaluationServiceInterface interface {
	Evaluate(ctx context.Context, params models.EvaluationParams) (*models.EvaluateResponse, error)
}

// SyncServiceInterface replaces the active snapshot
type SyncServiceInterface interface {
	Apply(ctx context.Context, source string, req models.SyncRequest) (*models.SyncResponse, error)
	SyncFromDatabase(ctx context.Context) (*models.SyncResponse, error)
}

// OnlineMetricsServiceInterface reports engagement over recent interactions
type OnlineMetricsServiceInterface interface {
	CTR(days int) (*models.OnlineMetrics, error)
}

// HealthServiceInterface reports service health
type HealthServiceInterface interface {
	CheckHealth(ctx context.Context) *HealthStatus
}
