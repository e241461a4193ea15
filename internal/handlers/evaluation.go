package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/internal/config"
	"github.com/temcen/sage/internal/services"
	"github.com/temcen/sage/pkg/models"
)

type EvaluationHandler struct {
	service  services.EvaluationServiceInterface
	defaults config.EvaluationConfig
	logger   *logrus.Logger
}

func NewEvaluationHandler(service services.EvaluationServiceInterface, defaults config.EvaluationConfig, logger *logrus.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service:  service,
		defaults: defaults,
		logger:   logger,
	}
}

// Evaluate serves GET /evaluate?k=&test_fraction=&min_interactions=&positive_actions=
func (h *EvaluationHandler) Evaluate(c *gin.Context) {
	params := models.EvaluationParams{
		K:               h.defaults.K,
		TestFraction:    h.defaults.TestFraction,
		MinInteractions: h.defaults.MinInteractions,
	}

	if v := c.Query("k"); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			invalidParameter(c, "k must be an integer")
			return
		}
		params.K = k
	}
	if v := c.Query("test_fraction"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			invalidParameter(c, "test_fraction must be a number")
			return
		}
		params.TestFraction = f
	}
	if v := c.Query("min_interactions"); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			invalidParameter(c, "min_interactions must be an integer")
			return
		}
		params.MinInteractions = m
	}
	params.PositiveActions = services.ParsePositiveActions(c.DefaultQuery("positive_actions", h.defaults.PositiveActions))

	resp, err := h.service.Evaluate(c.Request.Context(), params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
