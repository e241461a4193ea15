package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/internal/services"
	"github.com/temcen/sage/pkg/models"
)

type RecommendationHandler struct {
	service services.RecommendationServiceInterface
	logger  *logrus.Logger
}

func NewRecommendationHandler(service services.RecommendationServiceInterface, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		service: service,
		logger:  logger,
	}
}

// Item serves GET /recommend/item/:itemId?method=&top_n=
func (h *RecommendationHandler) Item(c *gin.Context) {
	req := models.ItemRecommendationRequest{
		ItemID: c.Param("itemId"),
		Method: c.Query("method"),
	}

	if topNStr := c.Query("top_n"); topNStr != "" {
		topN, err := strconv.Atoi(topNStr)
		if err != nil {
			invalidParameter(c, "top_n must be an integer")
			return
		}
		req.TopN = topN
	}

	resp, err := h.service.RecommendItem(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// User serves GET /recommend/user/:userId?top_n=&exclude_seen=
func (h *RecommendationHandler) User(c *gin.Context) {
	req := models.UserRecommendationRequest{
		UserID: c.Param("userId"),
	}

	if topNStr := c.Query("top_n"); topNStr != "" {
		topN, err := strconv.Atoi(topNStr)
		if err != nil {
			invalidParameter(c, "top_n must be an integer")
			return
		}
		req.TopN = topN
	}

	excludeSeen, err := strconv.ParseBool(c.DefaultQuery("exclude_seen", "true"))
	if err != nil {
		invalidParameter(c, "exclude_seen must be a boolean")
		return
	}
	req.ExcludeSeen = excludeSeen

	resp, err := h.service.RecommendUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
