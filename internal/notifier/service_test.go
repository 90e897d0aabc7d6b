package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

type fakeCache struct {
	seen     map[string]bool
	statuses map[string]redisx.CachedStatus
	dedupErr error
	putErr   error
}

func newFakeCache() *fakeCache {
	return &fakeCache{seen: map[string]bool{}, statuses: map[string]redisx.CachedStatus{}}
}

func (c *fakeCache) Seen(_ context.Context, service, eventID string) (bool, error) {
	if c.dedupErr != nil {
		return false, c.dedupErr
	}
	return c.seen[service+":"+eventID], nil
}

func (c *fakeCache) MarkSeen(_ context.Context, service, eventID string) error {
	if c.dedupErr != nil {
		return c.dedupErr
	}
	c.seen[service+":"+eventID] = true
	return nil
}

func (c *fakeCache) Status(_ context.Context, orderID string) (redisx.CachedStatus, bool, error) {
	s, ok := c.statuses[orderID]
	return s, ok, nil
}

func (c *fakeCache) PutStatus(_ context.Context, orderID string, s redisx.CachedStatus) error {
	if c.putErr != nil {
		return c.putErr
	}
	c.statuses[orderID] = s
	return nil
}

var occurred = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func message(t *testing.T, eventType string, payload any) kafkago.Message {
	t.Helper()
	env, err := orders.NewEnvelope(eventType, "storefront-api", "o1", "req-1", payload, occurred)
	require.NoError(t, err)
	return kafkago.Message{Topic: orders.Topic(eventType), Value: kafkax.MustMarshal(env)}
}

func newService(c Cache) *Service {
	return &Service{Cache: c, Log: zap.NewNop(), ServiceName: "notifier"}
}

func TestHandleEvent_OrderCreatedCachesNew(t *testing.T) {
	cache := newFakeCache()
	svc := newService(cache)

	m := message(t, orders.EventOrderCreated, orders.OrderCreatedPayload{OrderID: "o1", UserID: "u1", Total: "1600"})
	require.NoError(t, svc.HandleEvent(context.Background(), m))

	assert.Equal(t, redisx.CachedStatus{Status: orders.StatusNew, UserID: "u1", UpdatedAt: occurred}, cache.statuses["o1"])
}

func TestHandleEvent_StatusChanged(t *testing.T) {
	cache := newFakeCache()
	svc := newService(cache)

	p := orders.OrderStatusChangedPayload{OrderID: "o1", UserID: "u1", From: orders.StatusProcessing, To: orders.StatusShipped}
	require.NoError(t, svc.HandleEvent(context.Background(), message(t, orders.EventOrderStatusChanged, p)))

	assert.Equal(t, orders.StatusShipped, cache.statuses["o1"].Status)
}

func TestHandleEvent_DuplicateDeliveryIsSkipped(t *testing.T) {
	cache := newFakeCache()
	svc := newService(cache)
	ctx := context.Background()

	m := message(t, orders.EventOrderCreated, orders.OrderCreatedPayload{OrderID: "o1", UserID: "u1"})
	require.NoError(t, svc.HandleEvent(ctx, m))
	delete(cache.statuses, "o1")

	require.NoError(t, svc.HandleEvent(ctx, m))
	assert.NotContains(t, cache.statuses, "o1")
}

func TestHandleEvent_MalformedMessagesAreAcknowledged(t *testing.T) {
	svc := newService(newFakeCache())
	ctx := context.Background()

	assert.NoError(t, svc.HandleEvent(ctx, kafkago.Message{Value: []byte("{")}))

	m := message(t, orders.EventOrderCreated, "not an object")
	assert.NoError(t, svc.HandleEvent(ctx, m))

	m = message(t, "SomethingElse", map[string]string{})
	assert.NoError(t, svc.HandleEvent(ctx, m))
}

func TestHandleEvent_DedupFailureStillProcesses(t *testing.T) {
	cache := newFakeCache()
	cache.dedupErr = errors.New("redis down")
	svc := newService(cache)

	m := message(t, orders.EventOrderCreated, orders.OrderCreatedPayload{OrderID: "o1", UserID: "u1"})
	require.NoError(t, svc.HandleEvent(context.Background(), m))
	assert.Contains(t, cache.statuses, "o1")
}

func TestHandleEvent_CacheWriteFailureLeavesEventForRedelivery(t *testing.T) {
	cache := newFakeCache()
	cache.putErr = errors.New("redis down")
	svc := newService(cache)
	ctx := context.Background()

	m := message(t, orders.EventOrderCreated, orders.OrderCreatedPayload{OrderID: "o1", UserID: "u1"})
	require.Error(t, svc.HandleEvent(ctx, m))
	assert.Empty(t, cache.seen)

	cache.putErr = nil
	require.NoError(t, svc.HandleEvent(ctx, m))
	assert.Contains(t, cache.statuses, "o1")
}

func TestHandleEvent_LateCreatedEventKeepsNewerStatus(t *testing.T) {
	cache := newFakeCache()
	newer := redisx.CachedStatus{Status: orders.StatusShipped, UserID: "u1", UpdatedAt: occurred.Add(time.Hour)}
	cache.statuses["o1"] = newer
	svc := newService(cache)

	m := message(t, orders.EventOrderCreated, orders.OrderCreatedPayload{OrderID: "o1", UserID: "u1"})
	require.NoError(t, svc.HandleEvent(context.Background(), m))

	assert.Equal(t, newer, cache.statuses["o1"])
	assert.True(t, cache.seen["notifier:"+mustEventID(t, m)])
}

func mustEventID(t *testing.T, m kafkago.Message) string {
	t.Helper()
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(m.Value, &env))
	return env.EventID
}
