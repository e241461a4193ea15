package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/internal/services"
	"github.com/temcen/sage/internal/validation"
	"github.com/temcen/sage/pkg/models"
)

// maxSyncBodyBytes bounds a full catalog upload.
const maxSyncBodyBytes = 64 << 20

type SyncHandler struct {
	syncService services.SyncServiceInterface
	schemas     *validation.SchemaValidator
	logger      *logrus.Logger
}

func NewSyncHandler(syncService services.SyncServiceInterface, schemas *validation.SchemaValidator, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		schemas:     schemas,
		logger:      logger,
	}
}

// Sync replaces the active snapshot with the posted catalog and interactions.
func (h *SyncHandler) Sync(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxSyncBodyBytes))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Failed to read request body")
		return
	}

	if h.schemas != nil {
		if result := h.schemas.ValidateSyncRequest(body); !result.Valid {
			c.AbortWithStatusJSON(http.StatusBadRequest, result.ToAPIError(c.GetString("request_id")))
			return
		}
	}

	var req models.SyncRequest
	if err := json.Unmarshal(body, &req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", err.Error())
		return
	}

	resp, err := h.syncService.Apply(c.Request.Context(), services.SourceAPI, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SyncDatabase rebuilds the snapshot from PostgreSQL.
func (h *SyncHandler) SyncDatabase(c *gin.Context) {
	resp, err := h.syncService.SyncFromDatabase(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
