package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/temcen/sage/internal/config"
	"github.com/temcen/sage/internal/engine"
	"github.com/temcen/sage/internal/services"
	"github.com/temcen/sage/internal/validation"
	"github.com/temcen/sage/pkg/models"
)

type MockRecommendationService struct {
	mock.Mock
}

func (m *MockRecommendationService) RecommendItem(ctx context.Context, req models.ItemRecommendationRequest) (*models.RecommendationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecommendationResponse), args.Error(1)
}

func (m *MockRecommendationService) RecommendUser(ctx context.Context, req models.UserRecommendationRequest) (*models.RecommendationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecommendationResponse), args.Error(1)
}

type MockEvaluationService struct {
	mock.Mock
}

func (m *MockEvaluationService) Evaluate(ctx context.Context, params models.EvaluationParams) (*models.EvaluateResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EvaluateResponse), args.Error(1)
}

type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) Apply(ctx context.Context, source string, req models.SyncRequest) (*models.SyncResponse, error) {
	args := m.Called(ctx, source, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncResponse), args.Error(1)
}

func (m *MockSyncService) SyncFromDatabase(ctx context.Context) (*models.SyncResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncResponse), args.Error(1)
}

type MockOnlineMetricsService struct {
	mock.Mock
}

func (m *MockOnlineMetricsService) CTR(days int) (*models.OnlineMetrics, error) {
	args := m.Called(days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OnlineMetrics), args.Error(1)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorDetail {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestRecommendationHandler_Item(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockRecommendationService)
	handler := NewRecommendationHandler(mockService, testLogger())

	router := gin.New()
	router.GET("/recommend/item/:itemId", handler.Item)

	mockService.On("RecommendItem", mock.Anything, models.ItemRecommendationRequest{ItemID: "demo-1", Method: "content", TopN: 5}).
		Return(&models.RecommendationResponse{
			Context:        "item",
			RequestedID:    "demo-1",
			RecommendedIDs: []string{"demo-2"},
			Scores:         []float64{0.42},
			Method:         "content",
		}, nil)
	mockService.On("RecommendItem", mock.Anything, models.ItemRecommendationRequest{ItemID: "ghost"}).
		Return(nil, &engine.NotFoundError{ItemID: "ghost"})
	mockService.On("RecommendItem", mock.Anything, models.ItemRecommendationRequest{ItemID: "demo-1", Method: "popular"}).
		Return(nil, fmt.Errorf("%w: method must be one of content collaborative hybrid", services.ErrInvalidParameter))
	mockService.On("RecommendItem", mock.Anything, models.ItemRecommendationRequest{ItemID: "boom"}).
		Return(nil, errors.New("unexpected"))

	tests := []struct {
		name           string
		url            string
		expectedStatus int
		expectedCode   string
	}{
		{"content", "/recommend/item/demo-1?method=content&top_n=5", http.StatusOK, ""},
		{"unknown item", "/recommend/item/ghost", http.StatusNotFound, "ITEM_NOT_FOUND"},
		{"bad method", "/recommend/item/demo-1?method=popular", http.StatusBadRequest, "INVALID_PARAMETER"},
		{"non numeric top_n", "/recommend/item/demo-1?top_n=ten", http.StatusBadRequest, "INVALID_PARAMETER"},
		{"internal", "/recommend/item/boom", http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
				return
			}

			var resp models.RecommendationResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, []string{"demo-2"}, resp.RecommendedIDs)
		})
	}

	t.Run("NotFoundMessage", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recommend/item/ghost", nil))
		assert.Equal(t, "product ghost not found", decodeError(t, w).Message)
	})
}

func TestRecommendationHandler_User(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockRecommendationService)
	handler := NewRecommendationHandler(mockService, testLogger())

	router := gin.New()
	router.GET("/recommend/user/:userId", handler.User)

	resp := &models.RecommendationResponse{Context: "user", RequestedID: "u1", Method: models.MethodUser}
	mockService.On("RecommendUser", mock.Anything, models.UserRecommendationRequest{UserID: "u1", ExcludeSeen: true}).Return(resp, nil)
	mockService.On("RecommendUser", mock.Anything, models.UserRecommendationRequest{UserID: "u1", TopN: 3, ExcludeSeen: false}).Return(resp, nil)

	t.Run("ExcludeSeenDefaultsTrue", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recommend/user/u1", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ExplicitParams", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recommend/user/u1?top_n=3&exclude_seen=false", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("BadBoolean", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/recommend/user/u1?exclude_seen=maybe", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	mockService.AssertExpectations(t)
}

func TestEvaluationHandler_Evaluate(t *testing.T) {
	gin.SetMode(gin.TestMode)

	defaults := config.EvaluationConfig{K: 10, TestFraction: 0.2, MinInteractions: 5, PositiveActions: "purchase,add_to_cart,click"}
	mockService := new(MockEvaluationService)
	handler := NewEvaluationHandler(mockService, defaults, testLogger())

	router := gin.New()
	router.GET("/evaluate", handler.Evaluate)

	mockService.On("Evaluate", mock.Anything, models.EvaluationParams{
		K: 10, TestFraction: 0.2, MinInteractions: 5,
		PositiveActions: []string{"purchase", "add_to_cart", "click"},
	}).Return(&models.EvaluateResponse{SnapshotVersion: "v1"}, nil)

	mockService.On("Evaluate", mock.Anything, models.EvaluationParams{
		K: 5, TestFraction: 0.5, MinInteractions: 2,
		PositiveActions: []string{"purchase"},
	}).Return(&models.EvaluateResponse{SnapshotVersion: "v1"}, nil)

	mockService.On("Evaluate", mock.Anything, mock.MatchedBy(func(p models.EvaluationParams) bool {
		return p.K == 100
	})).Return(nil, fmt.Errorf("%w: k must be between 1 and 50", services.ErrInvalidParameter))

	tests := []struct {
		name           string
		url            string
		expectedStatus int
	}{
		{"defaults", "/evaluate", http.StatusOK},
		{"explicit", "/evaluate?k=5&test_fraction=0.5&min_interactions=2&positive_actions=purchase", http.StatusOK},
		{"out of range", "/evaluate?k=100", http.StatusBadRequest},
		{"not a number", "/evaluate?test_fraction=abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestSyncHandler_Sync(t *testing.T) {
	gin.SetMode(gin.TestMode)

	schemas, err := validation.NewSchemaValidator()
	require.NoError(t, err)

	mockService := new(MockSyncService)
	handler := NewSyncHandler(mockService, schemas, testLogger())

	router := gin.New()
	router.POST("/sync", handler.Sync)
	router.POST("/sync/database", handler.SyncDatabase)

	mockService.On("Apply", mock.Anything, services.SourceAPI, mock.MatchedBy(func(req models.SyncRequest) bool {
		return len(req.Products) == 1 && req.Products[0].ID == "p1"
	})).Return(&models.SyncResponse{ProductsLoaded: 1, SnapshotVersion: "v2"}, nil)
	mockService.On("Apply", mock.Anything, services.SourceAPI, mock.MatchedBy(func(req models.SyncRequest) bool {
		return len(req.Products) == 2
	})).Return(nil, fmt.Errorf("%w: duplicate product id p1", services.ErrInvalidParameter))
	mockService.On("SyncFromDatabase", mock.Anything).Return(nil, services.ErrSourceUnavailable)

	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedCode   string
	}{
		{"valid", `{"products":[{"id":"p1","name":"Lamp"}],"interactions":[]}`, http.StatusOK, ""},
		{"duplicate ids", `{"products":[{"id":"p1","name":"Lamp"},{"id":"p1","name":"Desk"}]}`, http.StatusBadRequest, "INVALID_PARAMETER"},
		{"schema violation", `{"products":[{"name":"no id"}]}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"product without name", `{"products":[{"id":"p1"}]}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"empty object", `{}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed", `{"products":[`, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/sync", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
				return
			}
			var resp models.SyncResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "v2", resp.SnapshotVersion)
		})
	}
	mockService.AssertNumberOfCalls(t, "Apply", 2)

	t.Run("DatabaseNotConfigured", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sync/database", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "SOURCE_UNAVAILABLE", decodeError(t, w).Code)
	})
}

func TestMetricsHandler_Online(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockService := new(MockOnlineMetricsService)
	handler := NewMetricsHandler(mockService, testLogger())

	router := gin.New()
	router.GET("/metrics/online", handler.Online)

	mockService.On("CTR", 7).Return(&models.OnlineMetrics{CTR: 0.5, Clicks: 1, Views: 2, Total: 3, Days: 7}, nil)
	mockService.On("CTR", 0).Return(nil, fmt.Errorf("%w: days must be between 1 and 365", services.ErrInvalidParameter))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/online", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var m models.OnlineMetrics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, 0.5, m.CTR)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics/online?days=0", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInfoAndHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	req := services.DemoSyncRequest()
	snap, err := engine.Build(req.Products, req.Interactions, engine.DefaultOptions())
	require.NoError(t, err)
	holder := engine.NewHolder(snap)

	router := gin.New()
	router.GET("/", NewInfoHandler(holder).Get)
	router.GET("/health", NewHealthHandler(testLogger(), services.NewHealthService(holder, nil, nil, testLogger())).Check)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, float64(2), info["products_loaded"])
	assert.Equal(t, snap.Version(), info["snapshot_version"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var health services.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 1, health.UsersTracked)
}
