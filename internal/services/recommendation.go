package services

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/temcen/sage/internal/config"
	"github.com/temcen/sage/internal/engine"
	"github.com/temcen/sage/pkg/models"
)

var explanations = map[string]string{
	models.MethodContent:       "Based on item content similarity (TF-IDF + cosine)",
	models.MethodCollaborative: "Based on what other users interacted with",
	models.MethodHybrid:        "Hybrid of content similarity and collaborative signals",
	models.MethodUser:          "Weighted user profile built from historical interactions (views/clicks/cart/purchases)",
}

// RecommendationService answers item and user recommendation requests
// against the active snapshot.
type RecommendationService struct {
	holder    *engine.Holder
	cache     ResultCache
	metrics   *MetricsCollector
	validator *validator.Validate
	config    config.RecommendationConfig
	logger    *logrus.Logger
}

func NewRecommendationService(holder *engine.Holder, cache ResultCache, metrics *MetricsCollector, cfg config.RecommendationConfig, logger *logrus.Logger) *RecommendationService {
	return &RecommendationService{
		holder:    holder,
		cache:     cache,
		metrics:   metrics,
		validator: validator.New(),
		config:    cfg,
		logger:    logger,
	}
}

// RecommendItem serves item-context recommendations. Unknown items fail with
// engine.ErrNotFound for the content and hybrid methods only.
func (s *RecommendationService) RecommendItem(ctx context.Context, req models.ItemRecommendationRequest) (*models.RecommendationResponse, error) {
	if req.Method == "" {
		req.Method = models.MethodHybrid
	}
	if req.TopN == 0 {
		req.TopN = s.config.ItemTopN
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidParameter("%v", err)
	}

	start := time.Now()
	snap := s.holder.Load()
	key := itemCacheKey(snap.Version(), req.ItemID, req.Method, req.TopN)
	if resp, ok := s.lookup(ctx, key); ok {
		s.metrics.RecordRecommendation(req.Method, "ok", len(resp.RecommendedIDs), time.Since(start))
		return resp, nil
	}

	var (
		recs []models.ScoredItem
		err  error
	)
	switch req.Method {
	case models.MethodContent:
		recs, err = snap.RecommendItemContent(req.ItemID, req.TopN)
	case models.MethodCollaborative:
		recs = snap.RecommendItemCollaborative(req.ItemID, req.TopN)
	case models.MethodHybrid:
		recs, err = snap.RecommendItemHybrid(req.ItemID, req.TopN)
	}
	if err != nil {
		s.metrics.RecordRecommendation(req.Method, "error", 0, time.Since(start))
		return nil, err
	}

	resp := buildResponse("item", req.ItemID, req.Method, snap.Version(), recs)
	s.store(ctx, key, resp)
	s.metrics.RecordRecommendation(req.Method, "ok", len(recs), time.Since(start))

	s.logger.WithFields(logrus.Fields{
		"item_id": req.ItemID,
		"method":  req.Method,
		"top_n":   req.TopN,
		"results": len(recs),
	}).Debug("Item recommendations generated")

	return resp, nil
}

// RecommendUser serves personalised recommendations. Unknown users get an
// empty list.
func (s *RecommendationService) RecommendUser(ctx context.Context, req models.UserRecommendationRequest) (*models.RecommendationResponse, error) {
	if req.TopN == 0 {
		req.TopN = s.config.UserTopN
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, invalidParameter("%v", err)
	}

	start := time.Now()
	snap := s.holder.Load()
	key := userCacheKey(snap.Version(), req.UserID, req.TopN, req.ExcludeSeen)
	if resp, ok := s.lookup(ctx, key); ok {
		s.metrics.RecordRecommendation(models.MethodUser, "ok", len(resp.RecommendedIDs), time.Since(start))
		return resp, nil
	}

	recs := snap.RecommendUser(req.UserID, req.TopN, req.ExcludeSeen)
	resp := buildResponse("user", req.UserID, models.MethodUser, snap.Version(), recs)
	s.store(ctx, key, resp)
	s.metrics.RecordRecommendation(models.MethodUser, "ok", len(recs), time.Since(start))

	s.logger.WithFields(logrus.Fields{
		"user_id":      req.UserID,
		"top_n":        req.TopN,
		"exclude_seen": req.ExcludeSeen,
		"results":      len(recs),
	}).Debug("User recommendations generated")

	return resp, nil
}

func (s *RecommendationService) lookup(ctx context.Context, key string) (*models.RecommendationResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	resp, ok := s.cache.Get(ctx, key)
	s.metrics.RecordCacheLookup(ok)
	if !ok {
		return nil, false
	}
	resp.CacheHit = true
	return resp, true
}

func (s *RecommendationService) store(ctx context.Context, key string, resp *models.RecommendationResponse) {
	if s.cache != nil {
		s.cache.Set(ctx, key, resp)
	}
}

func buildResponse(kind, requestedID, method, version string, recs []models.ScoredItem) *models.RecommendationResponse {
	ids, scores := models.SplitScored(recs)
	explanation := explanations[method]
	return &models.RecommendationResponse{
		Context:         kind,
		RequestedID:     requestedID,
		RecommendedIDs:  ids,
		Scores:          scores,
		Method:          method,
		Explanation:     &explanation,
		SnapshotVersion: version,
		GeneratedAt:     time.Now().UTC(),
	}
}
