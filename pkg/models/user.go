package models

// Interaction is a single logged user action against a catalog item.
// Timestamp is an ISO-8601 string or empty when the source did not record one.
type Interaction struct {
	UserID    string `json:"user_id" db:"user_id" validate:"required"`
	ItemID    string `json:"product_id" db:"product_id" validate:"required"`
	Action    string `json:"action" db:"action" validate:"required"`
	Timestamp string `json:"timestamp,omitempty" db:"timestamp"`
}

// Known interaction actions.
const (
	ActionPurchase       = "purchase"
	ActionAddToCart      = "add_to_cart"
	ActionClick          = "click"
	ActionView           = "view"
	ActionWishlist       = "wishlist"
	ActionRecoClick      = "reco_click"
	ActionRecoImpression = "reco_impression"
)

// DefaultActionWeight applies to any action missing from the weight table.
const DefaultActionWeight = 1.0

var actionWeights = map[string]float64{
	ActionPurchase:       5.0,
	ActionAddToCart:      3.0,
	ActionClick:          2.0,
	ActionView:           1.0,
	ActionWishlist:       1.5,
	ActionRecoClick:      1.5,
	ActionRecoImpression: 0.1,
}

// ActionWeight returns the strength of an action. Unknown actions weigh
// DefaultActionWeight.
func ActionWeight(action string) float64 {
	if w, ok := actionWeights[action]; ok {
		return w
	}
	return DefaultActionWeight
}

// DefaultPositiveActions are the actions counted as relevant during offline
// evaluation when the caller does not name any.
var DefaultPositiveActions = []string{ActionPurchase, ActionAddToCart, ActionClick}
