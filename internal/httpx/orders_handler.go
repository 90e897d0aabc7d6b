package httpx

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logger"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
)

// OrderCache is implemented by redisx.OrderCache.
type OrderCache interface {
	Remember(ctx context.Context, userID, key, orderID string) error
	Lookup(ctx context.Context, userID, key string) (string, bool, error)
	PutStatus(ctx context.Context, orderID string, s redisx.CachedStatus) error
	Status(ctx context.Context, orderID string) (redisx.CachedStatus, bool, error)
	Invalidate(ctx context.Context, orderID string) error
}

// Publisher is implemented by kafka.Producer.
type Publisher interface {
	Publish(topic string, key, value []byte, headers ...kafkago.Header)
}

// OrdersHandler serves checkout and order management. Cache and Producer are optional;
// without them the handler answers from the database and publishes nothing.
type OrdersHandler struct {
	Service     *orders.Service
	Cache       OrderCache
	Producer    Publisher
	ServiceName string
}

const idempotencyHeader = "Idempotency-Key"

func (h *OrdersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/orders/{id}/status", h.getStatus)
	})
	r.With(requireStaff).Patch("/orders/{id}", h.updateOrder)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	viewer := identity(r)
	log := logger.FromContext(r.Context())

	var req orders.PlaceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis; the database stays the source of truth.
	idemKey := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	if idemKey != "" && h.Cache != nil {
		orderID, ok, err := h.Cache.Lookup(ctx, viewer.UserID, idemKey)
		if err != nil {
			log.Warn("idempotency lookup failed", zap.Error(err))
		}
		if ok {
			o, err := h.Service.Get(ctx, viewer, orderID)
			if err == nil {
				w.Header().Set("Idempotent-Replayed", "true")
				writeData(w, http.StatusOK, o, "order already created")
				return
			}
			log.Warn("idempotent replay failed, placing again", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	o, err := h.Service.Place(ctx, viewer.UserID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if h.Cache != nil {
		if idemKey != "" {
			if err := h.Cache.Remember(ctx, viewer.UserID, idemKey, o.ID); err != nil {
				log.Warn("remember idempotency key", zap.Error(err))
			}
		}
		h.cacheStatus(ctx, o)
	}
	h.publish(r, orders.EventOrderCreated, o.ID, orders.CreatedPayload(o))

	writeData(w, http.StatusCreated, o, "order created")
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	f, err := parseOrderFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	page, err := h.Service.List(ctx, identity(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Data:       page.Orders,
		Pagination: &pagination{Page: page.Page, Limit: page.Limit, Total: page.Total, Pages: page.Pages},
	})
}

func parseOrderFilter(r *http.Request) (orders.ListFilter, error) {
	q := r.URL.Query()
	f := orders.ListFilter{
		Status: orders.Status(strings.ToUpper(strings.TrimSpace(q.Get("status")))),
		UserID: strings.TrimSpace(q.Get("userId")),
		Search: q.Get("search"),
	}
	var err error
	if f.Page, err = queryInt(q.Get("page")); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(q.Get("limit")); err != nil {
		return f, err
	}
	if f.From, err = queryDate(q.Get("dateFrom"), false); err != nil {
		return f, err
	}
	if f.To, err = queryDate(q.Get("dateTo"), true); err != nil {
		return f, err
	}
	return f, nil
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperr.Validation("invalid_query", "page and limit must be positive integers")
	}
	return n, nil
}

// queryDate accepts RFC 3339 or a bare date; a bare upper bound covers the whole day.
func queryDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperr.Validation("invalid_query", "dates must be YYYY-MM-DD or RFC 3339")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Service.Get(ctx, identity(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, o, "")
}

type statusView struct {
	OrderID   string        `json:"orderId"`
	Status    orders.Status `json:"status"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Cached    bool          `json:"cached"`
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	viewer := identity(r)

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache, only when it can prove the viewer may see the order
	if h.Cache != nil {
		cs, ok, err := h.Cache.Status(ctx, orderID)
		if err != nil {
			logger.FromContext(ctx).Warn("status cache read", zap.Error(err))
		}
		if ok && (viewer.IsStaff() || cs.UserID == viewer.UserID) {
			writeData(w, http.StatusOK, statusView{OrderID: orderID, Status: cs.Status, UpdatedAt: cs.UpdatedAt, Cached: true}, "")
			return
		}
	}

	// 2) fallback DB
	o, err := h.Service.Get(ctx, viewer, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Cache != nil {
		h.cacheStatus(ctx, o)
	}
	writeData(w, http.StatusOK, statusView{OrderID: o.ID, Status: o.Status, UpdatedAt: o.UpdatedAt}, "")
}

func (h *OrdersHandler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var p orders.Patch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, prev, err := h.Service.UpdateStatus(ctx, identity(r), chi.URLParam(r, "id"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if h.Cache != nil {
		h.cacheStatus(ctx, o)
	}
	if prev != o.Status {
		h.publish(r, orders.EventOrderStatusChanged, o.ID, orders.StatusChangedPayload(o, prev, p.Comment))
	}
	writeData(w, http.StatusOK, o, "order updated")
}

// cacheStatus overwrites the cached status; on failure the stale entry is dropped instead.
func (h *OrdersHandler) cacheStatus(ctx context.Context, o orders.Order) {
	log := logger.FromContext(ctx)
	cs := redisx.CachedStatus{Status: o.Status, UserID: o.UserID, UpdatedAt: o.UpdatedAt}
	if err := h.Cache.PutStatus(ctx, o.ID, cs); err != nil {
		log.Warn("status cache write", zap.String("order_id", o.ID), zap.Error(err))
		if err := h.Cache.Invalidate(ctx, o.ID); err != nil {
			log.Warn("status cache invalidate", zap.String("order_id", o.ID), zap.Error(err))
		}
	}
}

func (h *OrdersHandler) publish(r *http.Request, eventType, orderID string, payload any) {
	if h.Producer == nil {
		return
	}
	env, err := orders.NewEnvelope(eventType, h.ServiceName, orderID, middleware.GetReqID(r.Context()), payload, time.Now())
	if err != nil {
		logger.FromContext(r.Context()).Error("encode event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	h.Producer.Publish(orders.Topic(eventType), orders.PartitionKey(orderID), kafkax.MustMarshal(env),
		kafkax.EventHeaders(eventType, env.EventVersion)...)
}

