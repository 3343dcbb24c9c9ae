package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "devconnect/pkg/domain"
)

func TestExtractString(t *testing.T) {
	kv := []any{
		"action", "login_failed",
		42, "ignored",
		"developer_id", id.DeveloperID("7"),
		"count", 3,
		"dangling",
	}

	tests := []struct {
		key  string
		want string
	}{
		{"action", "login_failed"},
		{"developer_id", "7"},
		{"count", ""},
		{"dangling", ""},
		{"missing", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractString(kv, tt.key))
		})
	}
}

func TestLookup(t *testing.T) {
	v, ok := Lookup([]any{"count", 3}, "count")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = Lookup(nil, "count")
	assert.False(t, ok)
}
