package importer_test

import (
	"context"
	"errors"
	"strings"
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

func newImporter(t *testing.T) (*importer.Importer, catalog.Store) {
	t.Helper()
	store := memstore.New().Catalog()
	return importer.New(store, config.ImportConfig{MaxFileBytes: 10 << 20}, nil), store
}

func importCSV(t *testing.T, im *importer.Importer, body string, opts importer.CSVOptions) importer.Result {
	t.Helper()
	res, err := im.ImportCSV(context.Background(), strings.NewReader(body), opts)
	require.NoError(t, err)
	return res
}

func products(t *testing.T, store catalog.Store) []catalog.Product {
	t.Helper()
	list, err := store.ListProducts(context.Background(), catalog.Filter{})
	require.NoError(t, err)
	return list
}

const classicSet = "sku,title,category,price,stock\nBED001,\"Classic Set\",Bedding,2500,15\n"

func TestImportCSV_CreateThenUpdate(t *testing.T) {
	im, store := newImporter(t)

	first := importCSV(t, im, classicSet, importer.CSVOptions{})
	assert.True(t, first.Success)
	assert.Equal(t, 1, first.Processed)
	assert.Equal(t, 1, first.Created)
	assert.Equal(t, 0, first.Updated)

	second := importCSV(t, im, classicSet, importer.CSVOptions{UpdateExisting: true})
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Updated)

	list := products(t, store)
	require.Len(t, list, 1)
	p := list[0]
	assert.Equal(t, "Classic Set", p.Title)
	assert.Equal(t, "classic-set", p.Slug)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(2500)))
	assert.Equal(t, 15, p.Stock)
	assert.True(t, p.IsInStock)
	assert.True(t, p.IsActive)
	assert.Equal(t, "RUB", p.Currency)
	assert.Equal(t, catalog.VisibilityVisible, p.Visibility)

	cat, err := store.CategoryByName(context.Background(), "bedding")
	require.NoError(t, err)
	assert.Equal(t, cat.ID, p.CategoryID)
}

func TestImportCSV_ExistingWithoutUpdateIsWarning(t *testing.T) {
	im, _ := newImporter(t)
	importCSV(t, im, classicSet, importer.CSVOptions{})

	res := importCSV(t, im, classicSet, importer.CSVOptions{})
	assert.True(t, res.Success)
	assert.Zero(t, res.Created+res.Updated)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "BED001 already exists")
}

func TestImportCSV_StructuralGate(t *testing.T) {
	im, store := newImporter(t)

	_, err := im.ImportCSV(context.Background(), strings.NewReader("sku,title,price\nA,B,10\n"), importer.CSVOptions{})
	require.Error(t, err)
	ae := apperr.As(err)
	assert.Equal(t, apperr.KindStructural, ae.Kind)
	assert.Equal(t, []string{"missing required column: category", "missing required column: stock"}, ae.Details)
	assert.Equal(t, 400, apperr.Status(err))

	_, err = im.ImportCSV(context.Background(), strings.NewReader(""), importer.CSVOptions{})
	assert.True(t, apperr.IsKind(err, apperr.KindStructural))
	assert.Empty(t, products(t, store))
}

const mixedRows = `sku,title,category,price,stock
OK1,Pillow,Pillows,900,4
BAD1,Blanket,Blankets,abc,2
OK2,Towel,Towels,300,10
BAD2,,Towels,300,-1
`

func TestImportCSV_InvalidRowsAbortEverything(t *testing.T) {
	im, store := newImporter(t)

	res := importCSV(t, im, mixedRows, importer.CSVOptions{})
	assert.False(t, res.Success)
	assert.Equal(t, 4, res.Processed)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "row 3:")
	assert.Contains(t, res.Errors[0], `price "abc" must be a positive number`)
	assert.Contains(t, res.Errors[1], "row 5:")
	assert.Contains(t, res.Errors[1], "title is required")
	assert.Contains(t, res.Errors[1], "stock")
	assert.Zero(t, res.Created)

	assert.Empty(t, products(t, store))
	cats, err := store.Categories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestImportCSV_SkipInvalidImportsTheRest(t *testing.T) {
	im, store := newImporter(t)

	res := importCSV(t, im, mixedRows, importer.CSVOptions{SkipInvalid: true})
	assert.True(t, res.Success)
	assert.Empty(t, res.Errors)
	assert.Len(t, res.Warnings, 2)
	assert.Equal(t, 2, res.Created)
	assert.Len(t, products(t, store), 2)
}

const badQuoteRow = `sku,title,category,price,stock
BED001,Classic Set,Bedding,2500,15
BED002,Bad "quote" set,Bedding,100,1
BED003,Summer Set,Bedding,1800,3
`

func TestImportCSV_MalformedRowIsRowError(t *testing.T) {
	t.Run("skip invalid", func(t *testing.T) {
		im, store := newImporter(t)
		res := importCSV(t, im, badQuoteRow, importer.CSVOptions{SkipInvalid: true})
		assert.True(t, res.Success)
		assert.Equal(t, 3, res.Processed)
		assert.Equal(t, 2, res.Created)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "row 3:")
		assert.Contains(t, res.Warnings[0], "(skipped)")
		assert.Len(t, products(t, store), 2)
	})

	t.Run("strict", func(t *testing.T) {
		im, store := newImporter(t)
		res := importCSV(t, im, badQuoteRow, importer.CSVOptions{})
		assert.False(t, res.Success)
		assert.Equal(t, 3, res.Processed)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], "row 3:")
		assert.Zero(t, res.Created)
		assert.Empty(t, products(t, store))
	})
}

func TestImportCSV_ValidateOnlyWritesNothing(t *testing.T) {
	im, store := newImporter(t)
	importCSV(t, im, classicSet, importer.CSVOptions{})

	body := classicSet + "BED002,Second,Bedding,100,1\n"
	res := importCSV(t, im, body, importer.CSVOptions{ValidateOnly: true, UpdateExisting: true})
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Len(t, products(t, store), 1)
}

func TestImportCSV_OptionalColumnsAndBOM(t *testing.T) {
	im, store := newImporter(t)
	body := "\uFEFFSKU, Title ,category,price,stock,old_price,tags,images,visibility,currency,description\n" +
		"T-1,Towel,Towels,\"299,50\",3,350,soft|cotton; bath,https://a/1.jpg;https://a/2.jpg,hidden,eur,\"Big, soft\"\n"

	res := importCSV(t, im, body, importer.CSVOptions{})
	require.True(t, res.Success, res.Errors)

	p, err := store.ProductBySKU(context.Background(), "T-1")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.RequireFromString("299.50")))
	require.NotNil(t, p.OldPrice)
	assert.True(t, p.OldPrice.Equal(decimal.NewFromInt(350)))
	assert.Equal(t, []string{"soft", "cotton", "bath"}, p.Tags)
	assert.Equal(t, []string{"https://a/1.jpg", "https://a/2.jpg"}, p.Images)
	assert.Equal(t, catalog.VisibilityHidden, p.Visibility)
	assert.Equal(t, "EUR", p.Currency)
	assert.Equal(t, "Big, soft", p.Description)
}

func TestImportCSV_SlugCollisionAppendsSKU(t *testing.T) {
	im, store := newImporter(t)
	body := "sku,title,category,price,stock\nA-1,Плед,Пледы,100,1\nB-2,Плед,Пледы,100,1\n"

	res := importCSV(t, im, body, importer.CSVOptions{})
	require.True(t, res.Success)

	a, err := store.ProductBySKU(context.Background(), "A-1")
	require.NoError(t, err)
	b, err := store.ProductBySKU(context.Background(), "B-2")
	require.NoError(t, err)
	assert.Equal(t, "pled", a.Slug)
	assert.Equal(t, "pled-b-2", b.Slug)
}

func TestImportCSV_RepeatedSKULaterRowWins(t *testing.T) {
	im, store := newImporter(t)
	body := "sku,title,category,price,stock\nD-1,First,Misc,100,1\nD-1,Second,Misc,200,2\n"

	res := importCSV(t, im, body, importer.CSVOptions{UpdateExisting: true})
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Updated)

	p, err := store.ProductBySKU(context.Background(), "D-1")
	require.NoError(t, err)
	assert.Equal(t, "Second", p.Title)
	assert.Equal(t, 2, p.Stock)
}

func TestImportCSV_CategoryMapping(t *testing.T) {
	im, store := newImporter(t)
	ctx := context.Background()
	target := catalog.Category{Name: "Домашний текстиль"}
	require.NoError(t, store.CreateCategory(ctx, &target))

	body := "sku,title,category,price,stock\nM-1,Mapped,Textile,100,1\n"
	res := importCSV(t, im, body, importer.CSVOptions{CategoryMapping: map[string]string{"textile": target.ID}})
	require.True(t, res.Success, res.Errors)

	p, err := store.ProductBySKU(ctx, "M-1")
	require.NoError(t, err)
	assert.Equal(t, target.ID, p.CategoryID)
	cats, err := store.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 1)

	res = importCSV(t, im, "sku,title,category,price,stock\nM-2,Lost,Ghost,100,1\n",
		importer.CSVOptions{CategoryMapping: map[string]string{"Ghost": "00000000-0000-0000-0000-000000000000"}})
	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "mapped to unknown id")
}

func TestImportCSV_StorageFailureRollsBack(t *testing.T) {
	mem := memstore.New()
	store := mem.Catalog()
	im := importer.New(store, config.ImportConfig{}, nil)
	mem.FailOn("CreateProduct", errors.New("connection lost"))

	body := "sku,title,category,price,stock\nR-1,One,Rolls,100,1\n"
	_, err := im.ImportCSV(context.Background(), strings.NewReader(body), importer.CSVOptions{})
	require.Error(t, err)
	assert.Equal(t, 500, apperr.Status(err))

	cats, err := store.Categories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cats, "category created inside the failed transaction must be rolled back")
}

func TestImportCSV_SampleImportsCleanly(t *testing.T) {
	im, store := newImporter(t)
	res := importCSV(t, im, string(importer.SampleCSV()), importer.CSVOptions{})
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, 3, res.Created)

	hidden, err := store.ProductBySKU(context.Background(), "BLK005")
	require.NoError(t, err)
	assert.False(t, hidden.IsInStock)
	assert.Equal(t, catalog.VisibilityHidden, hidden.Visibility)
}
