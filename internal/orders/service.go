package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/auth"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/metrics"
)

// Rejection codes surfaced to clients next to the message.
const (
	CodeCartEmpty         = "cart_empty"
	CodeInvalidItem       = "invalid_item"
	CodeItemUnavailable   = "item_unavailable"
	CodeInsufficientStock = "insufficient_stock"
	CodeAddressNotFound   = "address_not_found"
	CodeNotAuthenticated  = "not_authenticated"
	CodeInvalidContact    = "invalid_contact"
	CodeNumberExhausted   = "order_number_exhausted"
	CodeInvalidTransition = "invalid_transition"
)

const (
	defaultNumberAttempts = 3
	defaultPageLimit      = 20
	maxPageLimit          = 100
	createdComment        = "order created"
	defaultUpdateComment  = "status updated"
)

type Service struct {
	Store    Store
	Pricing  Pricing
	Attempts int
	Log      *zap.Logger

	// NewNumber and Now are replaceable for tests.
	NewNumber func() string
	Now       func() time.Time
}

func NewService(store Store, pricing Pricing, attempts int, log *zap.Logger) *Service {
	if attempts <= 0 {
		attempts = defaultNumberAttempts
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{Store: store, Pricing: pricing, Attempts: attempts, Log: log, Now: time.Now}
	s.NewNumber = func() string { return NewOrderNumber(s.Now()) }
	return s
}

// Place validates the cart, re-prices it from current catalog state and persists the order.
// Product locks, stock decrement, order insert and the NEW log row share one transaction;
// an order-number collision rolls that transaction back and the whole unit is retried.
func (s *Service) Place(ctx context.Context, userID string, req PlaceRequest) (Order, error) {
	items, err := validatePlace(req)
	if err != nil {
		return Order{}, s.reject(err)
	}
	if userID == "" {
		return Order{}, s.reject(apperr.Auth(CodeNotAuthenticated, "sign in to place an order"))
	}

	if _, err := s.Store.UserByID(ctx, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, s.reject(apperr.Auth(CodeNotAuthenticated, "user not found"))
		}
		return Order{}, s.storage("load user", err)
	}

	var addressID *string
	if req.AddressID != "" {
		ok, err := s.Store.AddressOwnedBy(ctx, req.AddressID, userID)
		if err != nil {
			return Order{}, s.storage("load address", err)
		}
		if !ok {
			return Order{}, s.reject(apperr.Validation(CodeAddressNotFound, "delivery address not found"))
		}
		addressID = &req.AddressID
	}

	for attempt := 1; attempt <= s.Attempts; attempt++ {
		number := s.NewNumber()
		order, err := s.placeOnce(ctx, userID, addressID, number, items, req)
		if err == nil {
			metrics.OrdersPlaced.Inc()
			s.Log.Info("order placed",
				zap.String("order_id", order.ID),
				zap.String("order_number", order.OrderNumber),
				zap.String("user_id", userID),
				zap.String("total", order.Total.String()),
				zap.Int("attempt", attempt))
			return s.readBack(ctx, order), nil
		}
		if errors.Is(err, ErrDuplicateOrderNumber) {
			metrics.OrderNumberCollisions.Inc()
			s.Log.Warn("order number collision, retrying",
				zap.String("order_number", number),
				zap.Int("attempt", attempt))
			continue
		}
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return Order{}, s.reject(ae)
		}
		return Order{}, s.storage("create order", err)
	}
	return Order{}, s.reject(apperr.Conflict(CodeNumberExhausted, "could not allocate a unique order number"))
}

func (s *Service) placeOnce(ctx context.Context, userID string, addressID *string, number string, items []ItemInput, req PlaceRequest) (Order, error) {
	now := s.Now().UTC()
	order := Order{
		ID:           uuid.NewString(),
		OrderNumber:  number,
		UserID:       userID,
		Status:       StatusNew,
		DeliveryType: req.DeliveryType,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Company:      strings.TrimSpace(req.Company),
		Phone:        strings.TrimSpace(req.Phone),
		Email:        strings.TrimSpace(req.Email),
		Notes:        strings.TrimSpace(req.Notes),
		AddressID:    addressID,
		PromoCode:    strings.TrimSpace(req.PromoCode),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.Store.WithinTx(ctx, func(r Repository) error {
		// Lock in id order so concurrent checkouts over the same products cannot deadlock.
		ids := make([]string, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ProductID)
		}
		sort.Strings(ids)
		locked := make(map[string]catalog.Product, len(ids))
		for _, id := range ids {
			p, err := r.LockProduct(ctx, id)
			if errors.Is(err, catalog.ErrNotFound) {
				return apperr.Validation(CodeItemUnavailable, fmt.Sprintf("product %s is unavailable", id))
			}
			if err != nil {
				return err
			}
			locked[id] = p
		}

		subtotal := decimal.Zero
		order.Items = make([]Item, 0, len(items))
		for _, it := range items {
			p := locked[it.ProductID]
			if !p.Available() {
				return apperr.Validation(CodeItemUnavailable, fmt.Sprintf("product %s is unavailable", p.Title))
			}
			if p.Stock < it.Quantity {
				return apperr.Validation(CodeInsufficientStock, fmt.Sprintf("not enough %s in stock", p.Title))
			}
			line := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
			subtotal = subtotal.Add(line)
			order.Items = append(order.Items, Item{
				ID:        uuid.NewString(),
				OrderID:   order.ID,
				ProductID: p.ID,
				Quantity:  it.Quantity,
				Price:     p.Price,
				Total:     line,
				Product:   &ProductSummary{ID: p.ID, Title: p.Title, SKU: p.SKU, Images: p.Images},
			})
		}

		order.Subtotal = subtotal
		order.Delivery = s.Pricing.DeliveryFee(order.DeliveryType, subtotal)
		order.Discount = s.Pricing.Discount(order.PromoCode, subtotal)
		order.Total = subtotal.Add(order.Delivery).Sub(order.Discount)

		if err := r.InsertOrder(ctx, &order); err != nil {
			return err
		}
		for _, it := range order.Items {
			ok, err := r.DecrementStock(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.Validation(CodeInsufficientStock, fmt.Sprintf("not enough %s in stock", it.Product.Title))
			}
		}
		actor := userID
		return r.AppendLog(ctx, &Log{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			Status:    StatusNew,
			Comment:   createdComment,
			CreatedBy: &actor,
			CreatedAt: now,
		})
	})
	return order, err
}

// readBack returns the stored order with joined address; the in-memory copy is used if that fails.
func (s *Service) readBack(ctx context.Context, placed Order) Order {
	stored, err := s.Store.OrderByID(ctx, placed.ID)
	if err != nil {
		s.Log.Warn("read back placed order", zap.String("order_id", placed.ID), zap.Error(err))
		return placed
	}
	return stored
}

// Get enforces owner-or-staff visibility.
func (s *Service) Get(ctx context.Context, viewer auth.Identity, id string) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, apperr.NotFound("order not found")
	}
	o, err := s.Store.OrderByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Order{}, apperr.NotFound("order not found")
	}
	if err != nil {
		return Order{}, s.storage("load order", err)
	}
	if !viewer.IsStaff() && o.UserID != viewer.UserID {
		return Order{}, apperr.Forbidden("not allowed to view this order")
	}
	return o, nil
}

// List restricts non-staff viewers to their own orders.
func (s *Service) List(ctx context.Context, viewer auth.Identity, f ListFilter) (Page, error) {
	if !viewer.IsStaff() {
		f.UserID = viewer.UserID
	}
	if f.Status != "" && !f.Status.Valid() {
		return Page{}, apperr.Validation("invalid_filter", "unknown order status")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
	f.Search = strings.TrimSpace(f.Search)

	list, total, err := s.Store.ListOrders(ctx, f)
	if err != nil {
		return Page{}, s.storage("list orders", err)
	}
	if list == nil {
		list = []Order{}
	}
	return Page{
		Orders: list,
		Page:   f.Page,
		Limit:  f.Limit,
		Total:  total,
		Pages:  int(math.Ceil(float64(total) / float64(f.Limit))),
	}, nil
}

// UpdateStatus applies a staff patch and appends an audit row. It returns the previous status.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Identity, id string, p Patch) (Order, Status, error) {
	if !actor.IsStaff() {
		return Order{}, "", apperr.Forbidden("insufficient role")
	}
	if p.Status == nil && p.TrackNumber == nil {
		return Order{}, "", apperr.Validation("empty_patch", "nothing to update")
	}
	if p.Status != nil && !p.Status.Valid() {
		return Order{}, "", apperr.Validation("invalid_status", "unknown order status")
	}
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, "", apperr.NotFound("order not found")
	}

	var prev Status
	err := s.Store.WithinTx(ctx, func(r Repository) error {
		o, err := r.OrderByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("order not found")
		}
		if err != nil {
			return err
		}
		prev = o.Status
		next := o.Status
		if p.Status != nil && *p.Status != o.Status {
			if !CanTransition(o.Status, *p.Status) {
				return apperr.Validation(CodeInvalidTransition,
					fmt.Sprintf("cannot change status from %s to %s", o.Status, *p.Status))
			}
			next = *p.Status
		}
		track := o.TrackNumber
		if p.TrackNumber != nil {
			track = strings.TrimSpace(*p.TrackNumber)
		}
		if err := r.SaveStatus(ctx, id, next, track); err != nil {
			return err
		}
		comment := strings.TrimSpace(p.Comment)
		if comment == "" {
			comment = defaultUpdateComment
		}
		by := actor.UserID
		return r.AppendLog(ctx, &Log{
			ID:        uuid.NewString(),
			OrderID:   id,
			Status:    next,
			Comment:   comment,
			CreatedBy: &by,
			CreatedAt: s.Now().UTC(),
		})
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return Order{}, "", ae
		}
		return Order{}, "", s.storage("update order", err)
	}

	o, err := s.Store.OrderByID(ctx, id)
	if err != nil {
		return Order{}, "", s.storage("load order", err)
	}
	s.Log.Info("order updated",
		zap.String("order_id", id),
		zap.String("from", string(prev)),
		zap.String("to", string(o.Status)),
		zap.String("actor", actor.UserID))
	return o, prev, nil
}

func (s *Service) reject(err *apperr.Error) *apperr.Error {
	metrics.CheckoutRejections.WithLabelValues(err.Code).Inc()
	return err
}

func (s *Service) storage(op string, err error) *apperr.Error {
	s.Log.Error("order storage failure", zap.String("op", op), zap.Error(err))
	return apperr.Storage("could not process the order", err)
}

// MaxItemQuantity bounds one cart line after merging; order_items.quantity is an int4.
const MaxItemQuantity = math.MaxInt32

// validatePlace checks the request shape and merges repeated product ids, keeping first-seen order.
func validatePlace(req PlaceRequest) ([]ItemInput, *apperr.Error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validation(CodeCartEmpty, "cart is empty")
	}
	merged := make([]ItemInput, 0, len(req.Items))
	index := make(map[string]int, len(req.Items))
	for _, it := range req.Items {
		if _, err := uuid.Parse(it.ProductID); err != nil {
			return nil, apperr.Validation(CodeInvalidItem, "malformed product id in cart")
		}
		if it.Quantity <= 0 || it.Quantity > MaxItemQuantity {
			return nil, apperr.Validation(CodeInvalidItem,
				fmt.Sprintf("quantity must be between 1 and %d", MaxItemQuantity))
		}
		if i, ok := index[it.ProductID]; ok {
			// Both sides are at most MaxItemQuantity, so the sum cannot wrap.
			if merged[i].Quantity+it.Quantity > MaxItemQuantity {
				return nil, apperr.Validation(CodeInvalidItem,
					fmt.Sprintf("quantity must be between 1 and %d", MaxItemQuantity))
			}
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}

	if !req.DeliveryType.Valid() {
		return nil, apperr.Validation(CodeInvalidContact, "unknown delivery type")
	}
	if strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "" {
		return nil, apperr.Validation(CodeInvalidContact, "first and last name are required")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return nil, apperr.Validation(CodeInvalidContact, "phone is required")
	}
	if e := strings.TrimSpace(req.Email); e != "" {
		if _, err := mail.ParseAddress(e); err != nil {
			return nil, apperr.Validation(CodeInvalidContact, "email is not valid")
		}
	}
	if req.AddressID != "" {
		if _, err := uuid.Parse(req.AddressID); err != nil {
			return nil, apperr.Validation(CodeAddressNotFound, "delivery address not found")
		}
	}
	return merged, nil
}
