package redisx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "idem:order:create:u1:abc", IdemKey("u1", "abc"))
	assert.Equal(t, "order_status:o1", StatusKey("o1"))
	assert.Equal(t, "dedup:notifier:e1", DedupKey("notifier", "e1"))
}

func TestDecodeStatus(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		raw     string
		want    CachedStatus
		wantErr bool
	}{
		{
			name: "valid",
			raw:  `{"status":"SHIPPED","user_id":"u1","updated_at":"2026-03-01T12:00:00Z"}`,
			want: CachedStatus{Status: orders.StatusShipped, UserID: "u1", UpdatedAt: at},
		},
		{name: "unknown status", raw: `{"status":"CREATED"}`, wantErr: true},
		{name: "garbage", raw: `not json`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeStatus([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
