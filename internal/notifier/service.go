// Package notifier consumes order events and keeps the order status cache warm.
// Customer-facing delivery (email, SMS) is out of scope; each notification is logged instead.
package notifier

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

// Cache is the part of redisx.OrderCache the notifier needs.
type Cache interface {
	Seen(ctx context.Context, service, eventID string) (bool, error)
	MarkSeen(ctx context.Context, service, eventID string) error
	Status(ctx context.Context, orderID string) (redisx.CachedStatus, bool, error)
	PutStatus(ctx context.Context, orderID string, s redisx.CachedStatus) error
}

type Service struct {
	Cache       Cache
	Log         *zap.Logger
	ServiceName string
}

// HandleEvent is installed as the consumer handler. Malformed messages are logged
// and acknowledged so they do not block the partition.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.Log.Warn("drop undecodable event", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	log := s.Log.With(
		zap.String("event_id", env.EventID),
		zap.String("event_type", env.EventType),
		zap.String("trace_id", env.TraceID))

	seen, err := s.Cache.Seen(ctx, s.ServiceName, env.EventID)
	if err != nil {
		// Redis down: handle anyway, a repeated notification is acceptable.
		log.Warn("dedup check failed", zap.Error(err))
	}
	if seen {
		log.Debug("duplicate event skipped")
		return nil
	}
	if err := s.handle(ctx, log, env); err != nil {
		return err
	}
	if err := s.Cache.MarkSeen(ctx, s.ServiceName, env.EventID); err != nil {
		log.Warn("mark event seen", zap.Error(err))
	}
	return nil
}

// handle returns an error only for failures worth a redelivery.
func (s *Service) handle(ctx context.Context, log *zap.Logger, env orders.Envelope) error {
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			log.Warn("drop malformed payload", zap.Error(err))
			return nil
		}
		log.Info("notify customer: order received",
			zap.String("order_id", p.OrderID),
			zap.String("order_number", p.OrderNumber),
			zap.String("user_id", p.UserID),
			zap.String("total", p.Total))
		return s.cache(ctx, p.OrderID, p.UserID, orders.StatusNew, env.OccurredAt)

	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			log.Warn("drop malformed payload", zap.Error(err))
			return nil
		}
		log.Info("notify customer: status changed",
			zap.String("order_id", p.OrderID),
			zap.String("order_number", p.OrderNumber),
			zap.String("from", string(p.From)),
			zap.String("to", string(p.To)),
			zap.String("track_number", p.TrackNumber))
		return s.cache(ctx, p.OrderID, p.UserID, p.To, env.OccurredAt)
	}
	return nil // ignore
}

// cache skips events older than the cached entry. The two topics are not ordered
// relative to each other, so a late order.created must not overwrite a newer status.
func (s *Service) cache(ctx context.Context, orderID, userID string, st orders.Status, at time.Time) error {
	if !st.Valid() {
		return nil
	}
	if cur, ok, err := s.Cache.Status(ctx, orderID); err == nil && ok && cur.UpdatedAt.After(at) {
		return nil
	}
	return s.Cache.PutStatus(ctx, orderID, redisx.CachedStatus{Status: st, UserID: userID, UpdatedAt: at})
}
