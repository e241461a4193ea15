package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidator_SyncRequest(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)
	assert.Equal(t, []string{"sync-request"}, sv.GetAvailableSchemas())

	tests := []struct {
		name  string
		body  string
		valid bool
	}{
		{
			name:  "minimal products",
			body:  `{"products":[{"id":"p1","name":"Desk"},{"id":"p2","name":"Lamp","tags":["home"],"price":9.5}]}`,
			valid: true,
		},
		{
			name:  "empty products list",
			body:  `{"products":[]}`,
			valid: true,
		},
		{
			name:  "empty body object",
			body:  `{}`,
			valid: false,
		},
		{
			name:  "interactions without products",
			body:  `{"interactions":[{"user_id":"u1","product_id":"p1","action":"view"}]}`,
			valid: false,
		},
		{
			name:  "product without name",
			body:  `{"products":[{"id":"p1"}]}`,
			valid: false,
		},
		{
			name:  "product without id",
			body:  `{"products":[{"name":"Lamp"}]}`,
			valid: false,
		},
		{
			name:  "interaction without action",
			body:  `{"products":[],"interactions":[{"user_id":"u1","product_id":"p1"}]}`,
			valid: false,
		},
		{
			name:  "tags must be strings",
			body:  `{"products":[{"id":"p1","name":"Lamp","tags":[1,2]}]}`,
			valid: false,
		},
		{
			name:  "malformed json",
			body:  `{"products":`,
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sv.ValidateSyncRequest([]byte(tt.body))
			assert.Equal(t, tt.valid, result.Valid, "%+v", result.Errors)
			if !tt.valid {
				assert.NotEmpty(t, result.Errors)
				apiErr := result.ToAPIError("req-1")
				body := apiErr["error"].(map[string]interface{})
				assert.Equal(t, "VALIDATION_ERROR", body["code"])
				assert.Equal(t, "req-1", body["requestId"])
			}
		})
	}
}
