package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/internal/engine"
	"github.com/temcen/sage/internal/services"
)

type HealthHandler struct {
	logger        *logrus.Logger
	healthService services.HealthServiceInterface
}

func NewHealthHandler(logger *logrus.Logger, healthService services.HealthServiceInterface) *HealthHandler {
	return &HealthHandler{
		logger:        logger,
		healthService: healthService,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	status := h.healthService.CheckHealth(c.Request.Context())

	var httpStatus int
	switch status.Status {
	case "healthy", "degraded":
		httpStatus = http.StatusOK
	case "unhealthy":
		httpStatus = http.StatusServiceUnavailable
	default:
		httpStatus = http.StatusInternalServerError
	}

	c.JSON(httpStatus, status)
}

// InfoHandler serves the service banner.
type InfoHandler struct {
	holder *engine.Holder
}

func NewInfoHandler(holder *engine.Holder) *InfoHandler {
	return &InfoHandler{holder: holder}
}

func (h *InfoHandler) Get(c *gin.Context) {
	snap := h.holder.Load()
	c.JSON(http.StatusOK, gin.H{
		"service":          "sage recommendation engine",
		"status":           "running",
		"snapshot_version": snap.Version(),
		"products_loaded":  snap.Catalog().Len(),
		"users_tracked":    snap.Ledger().UserCount(),
		"endpoints": []string{
			"GET /health",
			"POST /sync",
			"POST /sync/database",
			"GET /recommend/item/:itemId",
			"GET /recommend/user/:userId",
			"GET /evaluate",
			"GET /metrics/online",
			"GET /metrics",
		},
	})
}
