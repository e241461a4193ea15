package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/temcen/sage/pkg/models"
)

var (
	// ErrNotFound is returned when an item id is absent from the catalog.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateItem is returned when a catalog lists the same id twice.
	ErrDuplicateItem = errors.New("duplicate item id")
	// ErrMissingItemID is returned for a catalog entry without an id.
	ErrMissingItemID = errors.New("item id is required")
)

// NotFoundError reports an unknown item id. It matches ErrNotFound.
type NotFoundError struct {
	ItemID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ItemID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Catalog is the ordered item list of one snapshot. Item positions are the
// row indices of the text model.
type Catalog struct {
	items []models.Item
	index map[string]int
}

// NewCatalog copies items into an immutable catalog.
func NewCatalog(items []models.Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]models.Item, len(items)),
		index: make(map[string]int, len(items)),
	}

	for i, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("item at position %d: %w", i, ErrMissingItemID)
		}
		if _, exists := c.index[item.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, item.ID)
		}
		item.Tags = append([]string(nil), item.Tags...)
		c.items[i] = item
		c.index[item.ID] = i
	}

	return c, nil
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Position returns the index of an item id.
func (c *Catalog) Position(id string) (int, bool) {
	pos, ok := c.index[id]
	return pos, ok
}

// Contains reports whether id is in the catalog.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.index[id]
	return ok
}

// At returns the item at position i.
func (c *Catalog) At(i int) models.Item {
	return c.items[i]
}

// Get looks an item up by id.
func (c *Catalog) Get(id string) (models.Item, error) {
	pos, ok := c.index[id]
	if !ok {
		return models.Item{}, &NotFoundError{ItemID: id}
	}
	return c.items[pos], nil
}

// diversityKey is the category bucket used by the per-category cap.
func diversityKey(item models.Item) string {
	return strings.ToLower(strings.TrimSpace(item.Category))
}
