package redisx

import (
	"fmt"
	"time"
)

const (
	// Idempotent checkout: idem:order:create:{user_id}:{idempotency_key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Status cache: order_status:{order_id} -> {"status": "...", "user_id": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// Event dedup: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func IdemKey(userID, key string) string       { return fmt.Sprintf(KeyIdemOrderCreate, userID, key) }
func StatusKey(orderID string) string         { return fmt.Sprintf(KeyOrderStatus, orderID) }
func DedupKey(service, eventID string) string { return fmt.Sprintf(KeyDedup, service, eventID) }
