package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

type ordersRepo struct {
	db   querier
	pool *pgxpool.Pool
}

func (r ordersRepo) WithinTx(ctx context.Context, fn func(orders.Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return withinTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ordersRepo{db: tx})
	})
}

func (r ordersRepo) UserByID(ctx context.Context, id string) (orders.User, error) {
	if !isUUID(id) {
		return orders.User{}, orders.ErrNotFound
	}
	var u orders.User
	err := r.db.QueryRow(ctx, `SELECT id, email, first_name, last_name, role FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.User{}, orders.ErrNotFound
	}
	return u, err
}

func (r ordersRepo) AddressOwnedBy(ctx context.Context, addressID, userID string) (bool, error) {
	if !isUUID(addressID) || !isUUID(userID) {
		return false, nil
	}
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM addresses WHERE id=$1 AND user_id=$2)`,
		addressID, userID).Scan(&ok)
	return ok, err
}

// LockProduct takes a row lock that holds until the surrounding transaction ends.
func (r ordersRepo) LockProduct(ctx context.Context, id string) (catalog.Product, error) {
	if !isUUID(id) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 FOR UPDATE`, id))
}

func (r ordersRepo) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	ct, err := r.db.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id=$1 AND stock >= $2`, productID, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r ordersRepo) InsertOrder(ctx context.Context, o *orders.Order) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders(id, order_number, user_id, status, subtotal, delivery, discount, total,
			delivery_type, first_name, last_name, company, phone, email, notes, address_id,
			promo_code, track_number, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		o.ID, o.OrderNumber, o.UserID, o.Status, o.Subtotal, o.Delivery, o.Discount, o.Total,
		o.DeliveryType, o.FirstName, o.LastName, o.Company, o.Phone, o.Email, o.Notes, o.AddressID,
		o.PromoCode, o.TrackNumber, o.CreatedAt, o.UpdatedAt)
	if uniqueViolationOn(err, "orders_order_number_key") {
		return orders.ErrDuplicateOrderNumber
	}
	if err != nil {
		return err
	}

	for i, it := range o.Items {
		_, err := r.db.Exec(ctx, `
			INSERT INTO order_items(id, order_id, position, product_id, quantity, price, total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			it.ID, o.ID, i, it.ProductID, it.Quantity, it.Price, it.Total)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r ordersRepo) AppendLog(ctx context.Context, l *orders.Log) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO order_logs(id, order_id, status, comment, created_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		l.ID, l.OrderID, l.Status, l.Comment, l.CreatedBy, l.CreatedAt)
	return err
}

func (r ordersRepo) Logs(ctx context.Context, orderID string) ([]orders.Log, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, status, comment, created_by, created_at
		FROM order_logs WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Log
	for rows.Next() {
		var l orders.Log
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Status, &l.Comment, &l.CreatedBy, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

const orderSelect = `
	SELECT o.id, o.order_number, o.user_id, o.status, o.subtotal, o.delivery, o.discount, o.total,
		o.delivery_type, o.first_name, o.last_name, o.company, o.phone, o.email, o.notes, o.address_id,
		o.promo_code, o.track_number, o.created_at, o.updated_at,
		a.id, a.user_id, a.city, a.street, a.building, a.apartment, a.postal_code
	FROM orders o
	LEFT JOIN addresses a ON a.id = o.address_id`

func scanOrder(row pgx.Row) (orders.Order, error) {
	var (
		o    orders.Order
		addr struct {
			id, userID, city, street, building, apartment, postal *string
		}
	)
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.Subtotal, &o.Delivery, &o.Discount, &o.Total,
		&o.DeliveryType, &o.FirstName, &o.LastName, &o.Company, &o.Phone, &o.Email, &o.Notes, &o.AddressID,
		&o.PromoCode, &o.TrackNumber, &o.CreatedAt, &o.UpdatedAt,
		&addr.id, &addr.userID, &addr.city, &addr.street, &addr.building, &addr.apartment, &addr.postal)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrNotFound
	}
	if err != nil {
		return orders.Order{}, err
	}
	if addr.id != nil {
		o.Address = &orders.Address{
			ID:         *addr.id,
			UserID:     deref(addr.userID),
			City:       deref(addr.city),
			Street:     deref(addr.street),
			Building:   deref(addr.building),
			Apartment:  deref(addr.apartment),
			PostalCode: deref(addr.postal),
		}
	}
	return o, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r ordersRepo) OrderByID(ctx context.Context, id string) (orders.Order, error) {
	if !isUUID(id) {
		return orders.Order{}, orders.ErrNotFound
	}
	o, err := scanOrder(r.db.QueryRow(ctx, orderSelect+` WHERE o.id=$1`, id))
	if err != nil {
		return orders.Order{}, err
	}
	list := []orders.Order{o}
	if err := r.attachItems(ctx, list); err != nil {
		return orders.Order{}, err
	}
	return list[0], nil
}

// attachItems loads the items of every order in one query, joined with a product summary.
func (r ordersRepo) attachItems(ctx context.Context, list []orders.Order) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	index := make(map[string]int, len(list))
	for i, o := range list {
		ids[i] = o.ID
		index[o.ID] = i
		list[i].Items = []orders.Item{}
	}
	rows, err := r.db.Query(ctx, `
		SELECT i.id, i.order_id, i.product_id, i.quantity, i.price, i.total, p.title, p.sku, p.images
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id::text = ANY($1)
		ORDER BY i.order_id, i.position`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it  orders.Item
			sum orders.ProductSummary
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price, &it.Total,
			&sum.Title, &sum.SKU, &sum.Images); err != nil {
			return err
		}
		sum.ID = it.ProductID
		it.Product = &sum
		i := index[it.OrderID]
		list[i].Items = append(list[i].Items, it)
	}
	return rows.Err()
}

func (r ordersRepo) ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.Order, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.UserID != "" {
		where = append(where, "o.user_id::text = "+arg(f.UserID))
	}
	if f.Status != "" {
		where = append(where, "o.status = "+arg(string(f.Status)))
	}
	if f.From != nil {
		where = append(where, "o.created_at >= "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "o.created_at <= "+arg(*f.To))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, fmt.Sprintf(
			"(o.order_number ILIKE %[1]s OR o.first_name ILIKE %[1]s OR o.last_name ILIKE %[1]s OR o.email ILIKE %[1]s)", p))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM orders o`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := arg(f.Limit), arg((f.Page-1)*f.Limit)
	rows, err := r.db.Query(ctx, orderSelect+cond+
		` ORDER BY o.created_at DESC, o.order_number DESC LIMIT `+limit+` OFFSET `+offset, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	if err := r.attachItems(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r ordersRepo) SaveStatus(ctx context.Context, id string, status orders.Status, trackNumber string) error {
	ct, err := r.db.Exec(ctx, `
		UPDATE orders SET status=$2, track_number=$3, updated_at=now() WHERE id=$1`,
		id, status, trackNumber)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrNotFound
	}
	return nil
}
