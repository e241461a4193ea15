package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.True(t, cfg.Server.SeedDemo)
	assert.Equal(t, 1.15, cfg.Recommendation.CategoryBoost)
	assert.Equal(t, 1.08, cfg.Recommendation.BrandBoost)
	assert.Equal(t, 0.7, cfg.Recommendation.ContentWeight)
	assert.Equal(t, 0.3, cfg.Recommendation.CollaborativeWeight)
	assert.Equal(t, 3, cfg.Recommendation.CategoryMaxItems)
	assert.Equal(t, 5000, cfg.Recommendation.MaxFeatures)
	assert.Equal(t, 10, cfg.Evaluation.K)
	assert.Equal(t, 0.2, cfg.Evaluation.TestFraction)
	assert.Equal(t, 5, cfg.Evaluation.MinInteractions)
	assert.Equal(t, "purchase,add_to_cart,click", cfg.Evaluation.PositiveActions)
	assert.Equal(t, 15*time.Minute, cfg.Redis.TTL)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "catalog-sync", cfg.Kafka.Topics.CatalogSync)
	assert.Empty(t, cfg.Database.URL)
	assert.Contains(t, cfg.Security.CORS.AllowedOrigins, "http://localhost:3000")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("RECOMMENDATION_CATEGORY_MAX_ITEMS", "5")
	t.Setenv("LOGGING_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Recommendation.CategoryMaxItems)
	assert.Equal(t, "json", cfg.Logging.Format)
}
