package importer_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/importer"
	"github.com/ariefcatur/go-storefront/internal/memstore"
)

func fixture(t *testing.T, name string) importer.Source {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return importer.Source{Name: name, Reader: strings.NewReader(string(data))}
}

func wxrDoc(items string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<rss xmlns:wp="http://wordpress.org/export/1.2/"><channel>` + items + `</channel></rss>`
}

func simpleProduct(id, title, price string) string {
	return `<item><title>` + title + `</title><wp:post_id>` + id + `</wp:post_id>
<wp:status>publish</wp:status><wp:post_type>product</wp:post_type>
<wp:postmeta><wp:meta_key>_price</wp:meta_key><wp:meta_value>` + price + `</wp:meta_value></wp:postmeta></item>`
}

func TestImportWXR_ExpandsVariants(t *testing.T) {
	im, store := newImporter(t)
	ctx := context.Background()

	res, err := im.ImportWXR(ctx, []importer.Source{fixture(t, "bedding.xml")}, importer.WXROptions{
		SkipInvalid:          true,
		AutoCreateCategories: true,
		CreateAllVariants:    true,
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 6, res.VariantsCreated)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], "no positive price")
	assert.Contains(t, res.Warnings[1], "in trash")

	p, err := store.ProductBySKU(ctx, "SAT")
	require.NoError(t, err)
	assert.Equal(t, "Комплект Сатин", p.Title)
	assert.Equal(t, "komplekt-satin", p.Slug)
	assert.Equal(t, "<p>Сатиновый комплект постельного белья.</p>", p.Description)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(3900)), "base is the lowest price point, got %s", p.Price)
	require.NotNil(t, p.OldPrice)
	assert.True(t, p.OldPrice.Equal(decimal.NewFromInt(6100)))
	assert.Equal(t, 20, p.Stock)
	assert.Equal(t, "RUB", p.Currency)
	assert.True(t, p.IsActive)
	assert.Equal(t, []string{
		"https://shop.example/uploads/sat-front.jpg",
		"https://shop.example/uploads/sat-side.jpg",
		"https://shop.example/uploads/sat-pack.jpg",
	}, p.Images)

	cat, err := store.CategoryByID(ctx, p.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "Постельное бельё", cat.Name)

	vs, err := store.Variants(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, vs, 6)
	bySKU := map[string]catalog.Variant{}
	total := 0
	for _, v := range vs {
		bySKU[v.SKU] = v
		total += v.Stock
	}
	grey := bySKU["SAT-GREY-EURO"]
	assert.Equal(t, "Серый", grey.Color)
	assert.Equal(t, "Евро", grey.Size)
	assert.Equal(t, 5, grey.Stock)
	assert.True(t, grey.Price.Equal(decimal.NewFromInt(3900)))
	assert.Contains(t, bySKU, "SAT-BELYY-1-5")
	assert.Equal(t, 3, bySKU["SAT-BELYY-1-5"].Stock)
	assert.Equal(t, 20, total)
}

func TestImportWXR_InvalidNodeAbortsFile(t *testing.T) {
	im, store := newImporter(t)

	res, err := im.ImportWXR(context.Background(), []importer.Source{fixture(t, "bedding.xml")}, importer.WXROptions{CreateAllVariants: true})
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], `bedding.xml: product 200 "Плед без цены"`)
	assert.Empty(t, products(t, store))
}

func TestImportWXR_ExplicitVariationsOnly(t *testing.T) {
	im, store := newImporter(t)
	ctx := context.Background()

	res, err := im.ImportWXR(ctx, []importer.Source{fixture(t, "bedding.xml")}, importer.WXROptions{SkipInvalid: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.VariantsCreated)

	p, err := store.ProductBySKU(ctx, "SAT")
	require.NoError(t, err)
	vs, err := store.Variants(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "SAT-GREY-EURO", vs[0].SKU)

	cat, err := store.CategoryByID(ctx, p.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "Без категории", cat.Name, "unknown categories fall back without auto creation")
}

func TestImportWXR_UpdateReplacesVariantSet(t *testing.T) {
	im, store := newImporter(t)
	ctx := context.Background()
	opts := importer.WXROptions{SkipInvalid: true, CreateAllVariants: true, AutoCreateCategories: true}

	_, err := im.ImportWXR(ctx, []importer.Source{fixture(t, "bedding.xml")}, opts)
	require.NoError(t, err)

	opts.CreateAllVariants = false
	opts.UpdateExisting = true
	res, err := im.ImportWXR(ctx, []importer.Source{fixture(t, "bedding.xml")}, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Updated)

	p, err := store.ProductBySKU(ctx, "SAT")
	require.NoError(t, err)
	vs, err := store.Variants(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, vs, 1, "variants missing from the new import are removed")

	opts.UpdateExisting = false
	res, err = im.ImportWXR(ctx, []importer.Source{fixture(t, "bedding.xml")}, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Updated)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "SKU SAT already exists")
}

func TestImportWXR_FoldsFilesInOrder(t *testing.T) {
	im, store := newImporter(t)
	ctx := context.Background()

	first := importer.Source{Name: "a.xml", Reader: strings.NewReader(wxrDoc(simpleProduct("1", "Towel", "300")))}
	broken := importer.Source{Name: "b.xml", Reader: strings.NewReader(wxrDoc(simpleProduct("2", "Free", "0")))}
	third := importer.Source{Name: "c.xml", Reader: strings.NewReader(wxrDoc(simpleProduct("3", "Robe", "2000")))}

	res, err := im.ImportWXR(ctx, []importer.Source{first, broken, third}, importer.WXROptions{DefaultCurrency: "usd"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Created)
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasPrefix(res.Errors[0], "b.xml:"))

	towel, err := store.ProductBySKU(ctx, "WP-1")
	require.NoError(t, err)
	assert.Equal(t, "USD", towel.Currency)
	_, err = store.ProductBySKU(ctx, "WP-3")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

// readHook runs hook before the first read of r.
type readHook struct {
	r    io.Reader
	hook func()
	once sync.Once
}

func (h *readHook) Read(p []byte) (int, error) {
	h.once.Do(h.hook)
	return h.r.Read(p)
}

func TestImportWXR_StorageFailureKeepsEarlierFiles(t *testing.T) {
	mem := memstore.New()
	store := mem.Catalog()
	im := importer.New(store, config.ImportConfig{MaxFileBytes: 10 << 20}, nil)
	ctx := context.Background()

	first := importer.Source{Name: "a.xml", Reader: strings.NewReader(wxrDoc(simpleProduct("1", "Towel", "300")))}
	second := importer.Source{Name: "b.xml", Reader: &readHook{
		r:    strings.NewReader(wxrDoc(simpleProduct("2", "Robe", "2000"))),
		hook: func() { mem.FailOn("CreateProduct", errors.New("disk full")) },
	}}
	third := importer.Source{Name: "c.xml", Reader: strings.NewReader(wxrDoc(simpleProduct("3", "Sheet", "900")))}

	res, err := im.ImportWXR(ctx, []importer.Source{first, second, third}, importer.WXROptions{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 1, res.Created)
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasPrefix(res.Errors[0], "b.xml: storage failure"))
	assert.NotContains(t, res.Errors[0], "disk full")

	_, err = store.ProductBySKU(ctx, "WP-1")
	require.NoError(t, err)
	_, err = store.ProductBySKU(ctx, "WP-3")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestImportWXR_StorageFailureOnFirstFileIsAnError(t *testing.T) {
	mem := memstore.New()
	mem.FailOn("CreateProduct", errors.New("disk full"))
	im := importer.New(mem.Catalog(), config.ImportConfig{MaxFileBytes: 10 << 20}, nil)

	_, err := im.ImportWXR(context.Background(), []importer.Source{
		{Name: "a.xml", Reader: strings.NewReader(wxrDoc(simpleProduct("1", "Towel", "300")))},
	}, importer.WXROptions{})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindStorage))
}

func TestImportWXR_UnparseableFile(t *testing.T) {
	im, _ := newImporter(t)
	ctx := context.Background()
	bad := func() importer.Source {
		return importer.Source{Name: "bad.xml", Reader: strings.NewReader("<rss><channel><item>")}
	}

	res, err := im.ImportWXR(ctx, []importer.Source{bad()}, importer.WXROptions{})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Errors[0], "bad.xml: cannot parse XML")

	res, err = im.ImportWXR(ctx, []importer.Source{bad()}, importer.WXROptions{SkipInvalid: true})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.Warnings, 1)
}
