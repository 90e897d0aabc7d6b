package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-storefront/internal/orders"
)

// CachedStatus is the value stored under KeyOrderStatus. UserID lets the API
// answer owners from the cache without reloading the order.
type CachedStatus struct {
	Status    orders.Status `json:"status"`
	UserID    string        `json:"user_id"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// OrderCache is a fast path only; Postgres stays the source of truth and every
// caller treats a cache error like a miss.
type OrderCache struct {
	rdb redis.Cmdable
}

func NewOrderCache(rdb redis.Cmdable) *OrderCache {
	return &OrderCache{rdb: rdb}
}

// Remember binds an idempotency key to the order it produced. The first binding wins.
func (c *OrderCache) Remember(ctx context.Context, userID, key, orderID string) error {
	return c.rdb.SetNX(ctx, IdemKey(userID, key), orderID, TTLIdempotency).Err()
}

// Lookup returns the order previously placed with this idempotency key.
func (c *OrderCache) Lookup(ctx context.Context, userID, key string) (string, bool, error) {
	id, err := c.rdb.Get(ctx, IdemKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (c *OrderCache) PutStatus(ctx context.Context, orderID string, s CachedStatus) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, StatusKey(orderID), b, TTLStatusCache).Err()
}

func (c *OrderCache) Status(ctx context.Context, orderID string) (CachedStatus, bool, error) {
	b, err := c.rdb.Get(ctx, StatusKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedStatus{}, false, nil
	}
	if err != nil {
		return CachedStatus{}, false, err
	}
	s, err := DecodeStatus(b)
	if err != nil {
		return CachedStatus{}, false, err
	}
	return s, true, nil
}

func (c *OrderCache) Invalidate(ctx context.Context, orderID string) error {
	return c.rdb.Del(ctx, StatusKey(orderID)).Err()
}

// Seen reports whether service already finished handling eventID.
func (c *OrderCache) Seen(ctx context.Context, service, eventID string) (bool, error) {
	return Exists(ctx, c.rdb, DedupKey(service, eventID))
}

func (c *OrderCache) MarkSeen(ctx context.Context, service, eventID string) error {
	return c.rdb.Set(ctx, DedupKey(service, eventID), "1", TTLDedup).Err()
}

func DecodeStatus(b []byte) (CachedStatus, error) {
	var s CachedStatus
	if err := json.Unmarshal(b, &s); err != nil {
		return CachedStatus{}, err
	}
	if !s.Status.Valid() {
		return CachedStatus{}, errors.New("redisx: cached status is not a known order status")
	}
	return s, nil
}
