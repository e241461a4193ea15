package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/internal/config"
	"github.com/temcen/sage/internal/engine"
	"github.com/temcen/sage/internal/services"
	"github.com/temcen/sage/internal/validation"
	"github.com/temcen/sage/pkg/models"
)

type Handlers struct {
	Info           *InfoHandler
	Health         *HealthHandler
	Sync           *SyncHandler
	Recommendation *RecommendationHandler
	Evaluation     *EvaluationHandler
	Metrics        *MetricsHandler
}

func New(cfg *config.Config, logger *logrus.Logger, svcs *services.Services, schemas *validation.SchemaValidator) *Handlers {
	return &Handlers{
		Info:           NewInfoHandler(svcs.Engine),
		Health:         NewHealthHandler(logger, svcs.Health),
		Sync:           NewSyncHandler(svcs.Sync, schemas, logger),
		Recommendation: NewRecommendationHandler(svcs.Recommendation, logger),
		Evaluation:     NewEvaluationHandler(svcs.Evaluation, cfg.Evaluation, logger),
		Metrics:        NewMetricsHandler(svcs.OnlineMetrics, logger),
	}
}

// respondError maps service errors onto the API error body.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
	message := "Internal server error"

	switch {
	case errors.Is(err, engine.ErrNotFound):
		status, code, message = http.StatusNotFound, "ITEM_NOT_FOUND", err.Error()
	case errors.Is(err, services.ErrInvalidParameter):
		status, code, message = http.StatusBadRequest, "INVALID_PARAMETER", err.Error()
	case errors.Is(err, services.ErrSourceUnavailable):
		status, code, message = http.StatusServiceUnavailable, "SOURCE_UNAVAILABLE", err.Error()
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("request_id"),
		}).Error("Request failed")
	}

	abortWithError(c, status, code, message)
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:      code,
			Message:   message,
			RequestID: c.GetString("request_id"),
		},
	})
}

func invalidParameter(c *gin.Context, message string) {
	abortWithError(c, http.StatusBadRequest, "INVALID_PARAMETER", message)
}
