package models

// EvaluationParams configures an offline leave-latest-out evaluation run.
type EvaluationParams struct {
	K               int      `json:"k" form:"k" validate:"min=1,max=50"`
	TestFraction    float64  `json:"test_fraction" form:"test_fraction" validate:"gt=0,lt=0.9"`
	MinInteractions int      `json:"min_interactions" form:"min_interactions" validate:"min=2"`
	PositiveActions []string `json:"positive_actions" validate:"dive,required"`
}

// EvaluationMetrics are the aggregates produced by the evaluator.
type EvaluationMetrics struct {
	UsersEvaluated int     `json:"users_evaluated"`
	PrecisionAtK   float64 `json:"precision_at_k"`
	RecallAtK      float64 `json:"recall_at_k"`
	NDCGAtK        float64 `json:"ndcg_at_k"`
	HitRateAtK     float64 `json:"hit_rate_at_k"`
	CoverageAtK    float64 `json:"coverage_at_k"`
}

type EvaluateResponse struct {
	EvaluationParams
	EvaluationMetrics
	SnapshotVersion string `json:"snapshot_version"`
}

type SyncRequest struct {
	Products     []Item        `json:"products"`
	Interactions []Interaction `json:"interactions"`
}

type SyncResponse struct {
	ProductsLoaded     int    `json:"products_loaded"`
	UsersLoaded        int    `json:"users_loaded"`
	InteractionsLoaded int    `json:"interactions_loaded"`
	SnapshotVersion    string `json:"snapshot_version"`
}

// OnlineMetrics summarises recent engagement recorded in the active snapshot.
type OnlineMetrics struct {
	CTR    float64 `json:"ctr"`
	Clicks int     `json:"clicks"`
	Views  int     `json:"views"`
	Total  int     `json:"total"`
	Days   int     `json:"days"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}
