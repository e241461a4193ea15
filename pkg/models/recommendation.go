package models

import "time"

// Recommendation methods accepted for item-context requests.
const (
	MethodContent       = "content"
	MethodCollaborative = "collaborative"
	MethodHybrid        = "hybrid"
	MethodUser          = "user_personalized"
)

type ScoredItem struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

type RecommendationResponse struct {
	Context         string    `json:"context"`
	RequestedID     string    `json:"requested_id"`
	RecommendedIDs  []string  `json:"recommended_ids"`
	Scores          []float64 `json:"scores"`
	Method          string    `json:"method"`
	Explanation     *string   `json:"explanation,omitempty"`
	SnapshotVersion string    `json:"snapshot_version"`
	GeneratedAt     time.Time `json:"generated_at"`
	CacheHit        bool      `json:"cache_hit"`
}

// ItemRecommendationRequest holds the query parameters of an item-context request.
type ItemRecommendationRequest struct {
	ItemID string `validate:"required"`
	Method string `form:"method" validate:"oneof=content collaborative hybrid"`
	TopN   int    `form:"top_n" validate:"min=1,max=100"`
}

// UserRecommendationRequest holds the query parameters of a user-context request.
type UserRecommendationRequest struct {
	UserID      string `validate:"required"`
	TopN        int    `form:"top_n" validate:"min=1,max=100"`
	ExcludeSeen bool   `form:"exclude_seen"`
}

// SplitScored turns a ranked list into the parallel id/score slices used on the wire.
func SplitScored(items []ScoredItem) ([]string, []float64) {
	ids := make([]string, len(items))
	scores := make([]float64, len(items))
	for i, it := range items {
		ids[i] = it.ItemID
		scores[i] = it.Score
	}
	return ids, scores
}
