package memstore

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-storefront/internal/catalog"
)

type catalogRepo struct {
	s  *Store
	tx *state
}

func (r catalogRepo) WithinTx(ctx context.Context, fn func(catalog.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	return r.s.within(func(tx *state) error {
		return fn(catalogRepo{s: r.s, tx: tx})
	})
}

func (r catalogRepo) ProductByID(ctx context.Context, id string) (catalog.Product, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("ProductByID"); err != nil {
		return catalog.Product{}, err
	}
	p, ok := st.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (r catalogRepo) ProductBySKU(ctx context.Context, sku string) (catalog.Product, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("ProductBySKU"); err != nil {
		return catalog.Product{}, err
	}
	for _, p := range st.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (r catalogRepo) SlugTaken(ctx context.Context, slug, exceptID string) (bool, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	for _, p := range st.products {
		if p.Slug == slug && p.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (r catalogRepo) CreateProduct(ctx context.Context, p *catalog.Product) error {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("CreateProduct"); err != nil {
		return err
	}
	for _, other := range st.products {
		if other.SKU == p.SKU {
			return catalog.ErrSKUConflict
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	st.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r catalogRepo) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("UpdateProduct"); err != nil {
		return err
	}
	old, ok := st.products[p.ID]
	if !ok {
		return catalog.ErrNotFound
	}
	for _, other := range st.products {
		if other.SKU == p.SKU && other.ID != p.ID {
			return catalog.ErrSKUConflict
		}
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	st.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r catalogRepo) ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("ListProducts"); err != nil {
		return nil, err
	}
	var out []catalog.Product
	for _, p := range st.products {
		if matchProduct(p, f) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].SKU < out[j].SKU
	})
	return out, nil
}

func matchProduct(p catalog.Product, f catalog.Filter) bool {
	if len(f.IDs) > 0 && !slices.Contains(f.IDs, p.ID) {
		return false
	}
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}
	if f.Active != nil && p.IsActive != *f.Active {
		return false
	}
	if f.Visibility != "" && p.Visibility != f.Visibility {
		return false
	}
	if f.InStock != nil && (p.Stock > 0) != *f.InStock {
		return false
	}
	if f.From != nil && p.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && p.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func (r catalogRepo) Variants(ctx context.Context, productID string) ([]catalog.Variant, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	return append([]catalog.Variant(nil), st.variants[productID]...), nil
}

func (r catalogRepo) ReplaceVariants(ctx context.Context, productID string, vs []catalog.Variant) error {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("ReplaceVariants"); err != nil {
		return err
	}
	if _, ok := st.products[productID]; !ok {
		return catalog.ErrNotFound
	}
	seen := make(map[[2]string]bool, len(vs))
	out := make([]catalog.Variant, 0, len(vs))
	for _, v := range vs {
		key := [2]string{v.Color, v.Size}
		if seen[key] {
			return catalog.ErrSKUConflict
		}
		seen[key] = true
		for pid, others := range st.variants {
			if pid == productID {
				continue
			}
			for _, o := range others {
				if o.SKU == v.SKU {
					return catalog.ErrSKUConflict
				}
			}
		}
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		v.ProductID = productID
		out = append(out, v)
	}
	if len(out) == 0 {
		delete(st.variants, productID)
		return nil
	}
	st.variants[productID] = out
	return nil
}

func (r catalogRepo) CategoryByID(ctx context.Context, id string) (catalog.Category, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	c, ok := st.categories[id]
	if !ok {
		return catalog.Category{}, catalog.ErrNotFound
	}
	return c, nil
}

func (r catalogRepo) CategoryByName(ctx context.Context, name string) (catalog.Category, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	for _, c := range st.categories {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c, nil
		}
	}
	return catalog.Category{}, catalog.ErrNotFound
}

func (r catalogRepo) CreateCategory(ctx context.Context, c *catalog.Category) error {
	st, done := r.s.acquire(r.tx)
	defer done()
	if err := r.s.fail("CreateCategory"); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Slug == "" {
		c.Slug = catalog.Slugify(c.Name)
	}
	st.categories[c.ID] = *c
	return nil
}

func (r catalogRepo) Categories(ctx context.Context) ([]catalog.Category, error) {
	st, done := r.s.acquire(r.tx)
	defer done()
	out := make([]catalog.Category, 0, len(st.categories))
	for _, c := range st.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func cloneProduct(p catalog.Product) catalog.Product {
	p.Tags = slices.Clone(p.Tags)
	p.Images = slices.Clone(p.Images)
	if p.OldPrice != nil {
		v := *p.OldPrice
		p.OldPrice = &v
	}
	return p
}
