package models

// Item is one catalog entry. Only ID is required; the remaining fields default
// to their zero values when the source omits them.
type Item struct {
	ID          string   `json:"id" db:"id" validate:"required"`
	Name        string   `json:"name" db:"name"`
	Description string   `json:"description" db:"description"`
	Category    string   `json:"category" db:"category"`
	Brand       string   `json:"brand" db:"brand"`
	Tags        []string `json:"tags" db:"tags"`
	Price       float64  `json:"price" db:"price"`
}
