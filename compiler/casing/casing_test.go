package casing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWords(t *testing.T) {
	assert.Equal(t, []string{"HTTP", "Server", "v2"}, Words("HTTPServer_v2"))
	assert.Equal(t, []string{"user", "Id"}, Words("userId"))
	assert.Equal(t, []string{"my", "type", "name"}, Words("my-type.name"))
	assert.Empty(t, Words("--"))
}

func TestIdentifiers(t *testing.T) {
	tests := []struct {
		in, pascal, camel, snake string
	}{
		{"user_id", "UserID", "userID", "user_id"},
		{"api-key", "APIKey", "apiKey", "api_key"},
		{"createdAt", "CreatedAt", "createdAt", "created_at"},
		{"Config", "Config", "config", "config"},
		{"json schema url", "JSONSchemaURL", "jsonSchemaURL", "json_schema_url"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.pascal, Pascal(tt.in))
			assert.Equal(t, tt.camel, Camel(tt.in))
			assert.Equal(t, tt.snake, Snake(tt.in))
		})
	}
	assert.Equal(t, "USER_ID", ScreamingSnake("userId"))
}

func TestConvert(t *testing.T) {
	assert.Equal(t, "user_name", Convert("user_name", SnakeCase))
	assert.Equal(t, "UserName", Convert("user_name", PascalCase))
	assert.Equal(t, "user_name", Convert("user_name", "unknown"))
}
