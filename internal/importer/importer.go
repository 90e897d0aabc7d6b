// Package importer loads catalog data from CSV sheets and WordPress WXR exports.
//
// Both paths validate everything before touching storage and then write in a single
// transaction, so a run either lands completely or not at all.
package importer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
)

const (
	defaultCurrency         = "RUB"
	defaultFallbackCategory = "Без категории"
)

type Importer struct {
	Store            catalog.Store
	Log              *zap.Logger
	DefaultCurrency  string
	FallbackCategory string
	MaxFileBytes     int64
}

func New(store catalog.Store, cfg config.ImportConfig, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	im := &Importer{
		Store:            store,
		Log:              log,
		DefaultCurrency:  cfg.DefaultCurrency,
		FallbackCategory: cfg.FallbackCategory,
		MaxFileBytes:     cfg.MaxFileBytes,
	}
	if im.DefaultCurrency == "" {
		im.DefaultCurrency = defaultCurrency
	}
	if im.FallbackCategory == "" {
		im.FallbackCategory = defaultFallbackCategory
	}
	return im
}

func (im *Importer) storage(op string, err error) error {
	im.Log.Error("import storage failure", zap.String("op", op), zap.Error(err))
	if errors.Is(err, catalog.ErrSKUConflict) {
		return apperr.Conflict("sku_conflict", "a product or variant SKU is already taken")
	}
	return apperr.Storage("import failed, nothing was saved", err)
}

// categories resolves category names within one run. Names compare case-insensitively.
type categories struct {
	repo    catalog.Repository
	mapping map[string]string
	cache   map[string]string
}

func newCategories(repo catalog.Repository, mapping map[string]string) *categories {
	m := make(map[string]string, len(mapping))
	for name, id := range mapping {
		m[normName(name)] = strings.TrimSpace(id)
	}
	return &categories{repo: repo, mapping: m, cache: map[string]string{}}
}

func normName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// mapped returns the id the mapping assigns to name and whether that category exists.
func (c *categories) mapped(ctx context.Context, name string) (id string, ok bool, err error) {
	id, has := c.mapping[normName(name)]
	if !has {
		return "", false, nil
	}
	if _, err := c.repo.CategoryByID(ctx, id); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return id, false, nil
		}
		return "", false, err
	}
	return id, true, nil
}

// existing looks name up through the mapping first, then by name.
func (c *categories) existing(ctx context.Context, name string) (string, bool, error) {
	key := normName(name)
	if id, ok := c.cache[key]; ok {
		return id, true, nil
	}
	if id, ok, err := c.mapped(ctx, name); err != nil || ok {
		if ok {
			c.cache[key] = id
		}
		return id, ok, err
	}
	cat, err := c.repo.CategoryByName(ctx, name)
	if errors.Is(err, catalog.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	c.cache[key] = cat.ID
	return cat.ID, true, nil
}

// ensure returns the id for name, creating the category when nothing matches.
func (c *categories) ensure(ctx context.Context, name string) (string, error) {
	id, ok, err := c.existing(ctx, name)
	if err != nil || ok {
		return id, err
	}
	cat := catalog.Category{Name: strings.TrimSpace(name), Slug: catalog.Slugify(name)}
	if err := c.repo.CreateCategory(ctx, &cat); err != nil {
		return "", err
	}
	c.cache[normName(name)] = cat.ID
	return cat.ID, nil
}

// uniqueSlug returns base, or base-sku, or base-sku-N, whichever no other product holds.
func uniqueSlug(ctx context.Context, repo catalog.Repository, base, sku, exceptID string) (string, error) {
	if base == "" {
		base = catalog.Slugify(sku)
	}
	candidate := base
	for n := 1; ; n++ {
		taken, err := repo.SlugTaken(ctx, candidate, exceptID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		switch n {
		case 1:
			candidate = base + "-" + catalog.Slugify(sku)
		default:
			candidate = fmt.Sprintf("%s-%s-%d", base, catalog.Slugify(sku), n)
		}
	}
}

func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == '|' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// CheckFile applies the upload limits shared by the HTTP and CLI entry points.
func (im *Importer) CheckFile(name string, size int64, exts ...string) error {
	ok := len(exts) == 0
	for _, ext := range exts {
		if strings.EqualFold(filepath.Ext(name), ext) {
			ok = true
			break
		}
	}
	if !ok {
		return apperr.Validation("unsupported_file", fmt.Sprintf("%s: only %s files are supported", name, strings.Join(exts, ", ")))
	}
	if im.MaxFileBytes > 0 && size > im.MaxFileBytes {
		return apperr.Validation("file_too_large",
			fmt.Sprintf("%s: file exceeds the %d MB limit", name, im.MaxFileBytes>>20))
	}
	return nil
}
