package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/internal/services"
)

// MetricsHandler serves engagement metrics derived from the active snapshot
type MetricsHandler struct {
	service services.OnlineMetricsServiceInterface
	logger  *logrus.Logger
}

func NewMetricsHandler(service services.OnlineMetricsServiceInterface, logger *logrus.Logger) *MetricsHandler {
	return &MetricsHandler{
		service: service,
		logger:  logger,
	}
}

// Online serves GET /metrics/online?days=
func (h *MetricsHandler) Online(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil {
		invalidParameter(c, "days must be an integer")
		return
	}

	metrics, err := h.service.CTR(days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, metrics)
}
