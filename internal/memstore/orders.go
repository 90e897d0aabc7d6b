package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

type ordersRepo struct {
	s  *Store
	tx *state
}

func (r ordersRepo) WithinTx(ctx context.Context, fn func(orders.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	return r.s.within(func(tx *state) error {
		return fn(ordersRepo{s: r.s, tx: tx})
	})
}

func (r ordersRepo) UserByID(ctx context.Context, id string) (orders.User, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("UserByID"); err != nil {
		return orders.User{}, err
	}
	u, ok := st.users[id]
	if !ok {
		return orders.User{}, orders.ErrNotFound
	}
	return u, nil
}

func (r ordersRepo) AddressOwnedBy(ctx context.Context, addressID, userID string) (bool, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	a, ok := st.addresses[addressID]
	return ok && a.UserID == userID, nil
}

// LockProduct is a plain read here; the transaction already holds the store lock.
func (r ordersRepo) LockProduct(ctx context.Context, id string) (catalog.Product, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("LockProduct"); err != nil {
		return catalog.Product{}, err
	}
	p, ok := st.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (r ordersRepo) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("DecrementStock"); err != nil {
		return false, err
	}
	p, ok := st.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now().UTC()
	st.products[productID] = p
	return true, nil
}

func (r ordersRepo) InsertOrder(ctx context.Context, o *orders.Order) error {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("InsertOrder"); err != nil {
		return err
	}
	for _, other := range st.orders {
		if other.OrderNumber == o.OrderNumber {
			return orders.ErrDuplicateOrderNumber
		}
	}
	stored := *o
	stored.Items = append([]orders.Item(nil), o.Items...)
	st.orders[o.ID] = stored
	return nil
}

func (r ordersRepo) AppendLog(ctx context.Context, l *orders.Log) error {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("AppendLog"); err != nil {
		return err
	}
	if _, ok := st.orders[l.OrderID]; !ok {
		return orders.ErrNotFound
	}
	st.logs = append(st.logs, *l)
	return nil
}

func (r ordersRepo) Logs(ctx context.Context, orderID string) ([]orders.Log, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	var out []orders.Log
	for _, l := range st.logs {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r ordersRepo) OrderByID(ctx context.Context, id string) (orders.Order, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("OrderByID"); err != nil {
		return orders.Order{}, err
	}
	o, ok := st.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return st.hydrate(o), nil
}

// hydrate joins live product summaries and the address, like the SQL read path does.
func (st *state) hydrate(o orders.Order) orders.Order {
	items := make([]orders.Item, len(o.Items))
	for i, it := range o.Items {
		if p, ok := st.products[it.ProductID]; ok {
			it.Product = &orders.ProductSummary{ID: p.ID, Title: p.Title, SKU: p.SKU, Images: p.Images}
		}
		items[i] = it
	}
	o.Items = items
	o.Address = nil
	if o.AddressID != nil {
		if a, ok := st.addresses[*o.AddressID]; ok {
			o.Address = &a
		}
	}
	return o
}

func (r ordersRepo) ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.Order, int, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("ListOrders"); err != nil {
		return nil, 0, err
	}
	search := strings.ToLower(f.Search)
	var matched []orders.Order
	for _, o := range st.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			continue
		}
		if search != "" && !containsAny(search, o.OrderNumber, o.FirstName, o.LastName, o.Email) {
			continue
		}
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].OrderNumber > matched[j].OrderNumber
	})

	total := len(matched)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	out := make([]orders.Order, 0, end-start)
	for _, o := range matched[start:end] {
		out = append(out, st.hydrate(o))
	}
	return out, total, nil
}

func containsAny(needle string, haystack ...string) bool {
	for _, h := range haystack {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

func (r ordersRepo) SaveStatus(ctx context.Context, id string, status orders.Status, trackNumber string) error {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("SaveStatus"); err != nil {
		return err
	}
	o, ok := st.orders[id]
	if !ok {
		return orders.ErrNotFound
	}
	o.Status = status
	o.TrackNumber = trackNumber
	o.UpdatedAt = time.Now().UTC()
	st.orders[id] = o
	return nil
}
