package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-storefront/internal/catalog"
)

// catalogRepo runs on the pool, or on a transaction when pool is nil.
type catalogRepo struct {
	db   querier
	pool *pgxpool.Pool
}

func (r catalogRepo) WithinTx(ctx context.Context, fn func(catalog.Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return withinTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(catalogRepo{db: tx})
	})
}

const productColumns = `id, sku, title, slug, description, price, old_price, currency, stock,
	is_active, is_in_stock, visibility, category_id, material, size, dimensions, weight,
	tags, images, seo_title, seo_description, created_at, updated_at`

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Title, &p.Slug, &p.Description, &p.Price, &p.OldPrice, &p.Currency, &p.Stock,
		&p.IsActive, &p.IsInStock, &p.Visibility, &p.CategoryID, &p.Material, &p.Size, &p.Dimensions, &p.Weight,
		&p.Tags, &p.Images, &p.SEOTitle, &p.SEODescription, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, err
}

func (r catalogRepo) ProductByID(ctx context.Context, id string) (catalog.Product, error) {
	if !isUUID(id) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

func (r catalogRepo) ProductBySKU(ctx context.Context, sku string) (catalog.Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE sku=$1`, sku))
}

func (r catalogRepo) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE slug=$1 AND ($2 = '' OR id::text <> $2))`,
		slug, exceptID).Scan(&taken)
	return taken, err
}

func (r catalogRepo) CreateProduct(ctx context.Context, p *catalog.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := r.db.Exec(ctx, `
		INSERT INTO products(`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		p.ID, p.SKU, p.Title, p.Slug, p.Description, p.Price, p.OldPrice, p.Currency, p.Stock,
		p.IsActive, p.IsInStock, p.Visibility, p.CategoryID, p.Material, p.Size, p.Dimensions, p.Weight,
		strs(p.Tags), strs(p.Images), p.SEOTitle, p.SEODescription, p.CreatedAt, p.UpdatedAt)
	if uniqueViolationOn(err, "products_sku_key") {
		return catalog.ErrSKUConflict
	}
	return err
}

func (r catalogRepo) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	err := r.db.QueryRow(ctx, `
		UPDATE products SET sku=$2, title=$3, slug=$4, description=$5, price=$6, old_price=$7,
			currency=$8, stock=$9, is_active=$10, is_in_stock=$11, visibility=$12, category_id=$13,
			material=$14, size=$15, dimensions=$16, weight=$17, tags=$18, images=$19,
			seo_title=$20, seo_description=$21, updated_at=now()
		WHERE id=$1
		RETURNING created_at, updated_at`,
		p.ID, p.SKU, p.Title, p.Slug, p.Description, p.Price, p.OldPrice,
		p.Currency, p.Stock, p.IsActive, p.IsInStock, p.Visibility, p.CategoryID,
		p.Material, p.Size, p.Dimensions, p.Weight, strs(p.Tags), strs(p.Images),
		p.SEOTitle, p.SEODescription,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return catalog.ErrNotFound
	case uniqueViolationOn(err, "products_sku_key"):
		return catalog.ErrSKUConflict
	}
	return err
}

func (r catalogRepo) ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if len(f.IDs) > 0 {
		where = append(where, "id::text = ANY("+arg(f.IDs)+")")
	}
	if f.CategoryID != "" {
		where = append(where, "category_id::text = "+arg(f.CategoryID))
	}
	if f.Active != nil {
		where = append(where, "is_active = "+arg(*f.Active))
	}
	if f.Visibility != "" {
		where = append(where, "visibility = "+arg(string(f.Visibility)))
	}
	if f.InStock != nil {
		where = append(where, "(stock > 0) = "+arg(*f.InStock))
	}
	if f.From != nil {
		where = append(where, "created_at >= "+arg(*f.From))
	}
	if f.To != nil {
		where = append(where, "created_at <= "+arg(*f.To))
	}

	sql := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY created_at, sku`

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r catalogRepo) Variants(ctx context.Context, productID string) ([]catalog.Variant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, product_id, color, size, sku, price, stock, is_active
		FROM product_variants WHERE product_id=$1 ORDER BY position`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Variant
	for rows.Next() {
		var v catalog.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Color, &v.Size, &v.SKU, &v.Price, &v.Stock, &v.IsActive); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r catalogRepo) ReplaceVariants(ctx context.Context, productID string, vs []catalog.Variant) error {
	return atomically(ctx, r.pool, r.db, func(q querier) error {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, productID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return catalog.ErrNotFound
		}
		if _, err := q.Exec(ctx, `DELETE FROM product_variants WHERE product_id=$1`, productID); err != nil {
			return err
		}
		for i := range vs {
			v := &vs[i]
			if v.ID == "" {
				v.ID = uuid.NewString()
			}
			v.ProductID = productID
			_, err := q.Exec(ctx, `
				INSERT INTO product_variants(id, product_id, position, color, size, sku, price, stock, is_active)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				v.ID, productID, i, v.Color, v.Size, v.SKU, v.Price, v.Stock, v.IsActive)
			if isUniqueViolation(err) {
				return catalog.ErrSKUConflict
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r catalogRepo) CategoryByID(ctx context.Context, id string) (catalog.Category, error) {
	return scanCategory(r.db.QueryRow(ctx, `SELECT id, name, slug FROM categories WHERE id::text=$1`, id))
}

func (r catalogRepo) CategoryByName(ctx context.Context, name string) (catalog.Category, error) {
	return scanCategory(r.db.QueryRow(ctx,
		`SELECT id, name, slug FROM categories WHERE lower(name) = lower($1)`, strings.TrimSpace(name)))
}

func scanCategory(row pgx.Row) (catalog.Category, error) {
	var c catalog.Category
	err := row.Scan(&c.ID, &c.Name, &c.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Category{}, catalog.ErrNotFound
	}
	return c, err
}

func (r catalogRepo) CreateCategory(ctx context.Context, c *catalog.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Slug == "" {
		c.Slug = catalog.Slugify(c.Name)
	}
	_, err := r.db.Exec(ctx, `INSERT INTO categories(id, name, slug) VALUES ($1,$2,$3)`, c.ID, c.Name, c.Slug)
	return err
}

func (r catalogRepo) Categories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
