package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/temcen/sage/pkg/models"
)

// Querier is the subset of pgxpool.Pool used to read a snapshot.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const (
	productsQuery = `
		SELECT id, COALESCE(name, ''), COALESCE(description, ''), COALESCE(category, ''),
		       COALESCE(brand, ''), COALESCE(tags, '{}'), COALESCE(price, 0)
		FROM products
		ORDER BY created_at, id`

	interactionsQuery = `
		SELECT user_id, product_id, action,
		       COALESCE(to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'), '')
		FROM interactions
		ORDER BY created_at NULLS FIRST, id`
)

// SnapshotSource reads the full catalog and interaction log from PostgreSQL.
type SnapshotSource struct {
	db Querier
}

func NewSnapshotSource(db Querier) *SnapshotSource {
	return &SnapshotSource{db: db}
}

// Load returns every product and interaction as a sync payload.
func (s *SnapshotSource) Load(ctx context.Context) (*models.SyncRequest, error) {
	products, err := s.loadProducts(ctx)
	if err != nil {
		return nil, err
	}

	interactions, err := s.loadInteractions(ctx)
	if err != nil {
		return nil, err
	}

	return &models.SyncRequest{
		Products:     products,
		Interactions: interactions,
	}, nil
}

func (s *SnapshotSource) loadProducts(ctx context.Context) ([]models.Item, error) {
	rows, err := s.db.Query(ctx, productsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Item{}
	for rows.Next() {
		var item models.Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.Category,
			&item.Brand, &item.Tags, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read products: %w", err)
	}

	return products, nil
}

func (s *SnapshotSource) loadInteractions(ctx context.Context) ([]models.Interaction, error) {
	rows, err := s.db.Query(ctx, interactionsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()

	interactions := []models.Interaction{}
	for rows.Next() {
		var it models.Interaction
		if err := rows.Scan(&it.UserID, &it.ItemID, &it.Action, &it.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interactions = append(interactions, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read interactions: %w", err)
	}

	return interactions, nil
}
