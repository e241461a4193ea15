package services

import (
	"time"

	"github.com/temcen/sage/internal/engine"
	"github.com/temcen/sage/pkg/models"
)

var clickActions = map[string]bool{
	models.ActionClick:     true,
	models.ActionAddToCart: true,
	models.ActionPurchase:  true,
}

// OnlineMetricsService reports click-through over the interactions in the
// active snapshot.
type OnlineMetricsService struct {
	holder *engine.Holder
	now    func() time.Time
}

func NewOnlineMetricsService(holder *engine.Holder) *OnlineMetricsService {
	return &OnlineMetricsService{holder: holder, now: time.Now}
}

// CTR counts interactions from the last days days. Interactions without a
// parseable RFC 3339 timestamp are ignored.
func (s *OnlineMetricsService) CTR(days int) (*models.OnlineMetrics, error) {
	if days < 1 || days > 365 {
		return nil, invalidParameter("days must be between 1 and 365")
	}

	since := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	result := &models.OnlineMetrics{Days: days}

	for _, it := range s.holder.Load().Ledger().All() {
		ts, err := time.Parse(time.RFC3339, it.Timestamp)
		if err != nil || ts.Before(since) {
			continue
		}
		result.Total++
		switch {
		case clickActions[it.Action]:
			result.Clicks++
		case it.Action == models.ActionView:
			result.Views++
		}
	}

	if result.Views > 0 {
		result.CTR = float64(result.Clicks) / float64(result.Views)
	}
	return result, nil
}
