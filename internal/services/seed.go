package services

import "github.com/temcen/sage/pkg/models"

// DemoSyncRequest is the catalog served before the first sync.
func DemoSyncRequest() models.SyncRequest {
	return models.SyncRequest{
		Products: []models.Item{
			{
				ID:          "demo-1",
				Name:        "Demo Wireless Headphones",
				Description: "Noise-cancelling wireless headphones",
				Category:    "Electronics",
				Brand:       "DemoBrand",
				Tags:        []string{"audio", "wireless", "headphones"},
				Price:       199.99,
			},
			{
				ID:          "demo-2",
				Name:        "Demo Mechanical Keyboard",
				Description: "RGB mechanical keyboard",
				Category:    "Electronics",
				Brand:       "DemoBrand",
				Tags:        []string{"keyboard", "mechanical", "rgb"},
				Price:       129.99,
			},
		},
		Interactions: []models.Interaction{
			{UserID: "demo-user", ItemID: "demo-1", Action: models.ActionPurchase, Timestamp: "2026-01-01T00:00:00Z"},
			{UserID: "demo-user", ItemID: "demo-2", Action: models.ActionView, Timestamp: "2026-01-02T00:00:00Z"},
		},
	}
}
