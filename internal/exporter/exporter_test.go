package exporter_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/exporter"
	"github.com/ariefcatur/go-storefront/internal/importer"
	"github.com/ariefcatur/go-storefront/internal/memstore"
)

const (
	bedID     = "11111111-1111-1111-1111-111111111111"
	pillowID  = "22222222-2222-2222-2222-222222222222"
	beddingID = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
)

func seed(t *testing.T) catalog.Store {
	t.Helper()
	ctx := context.Background()
	store := memstore.New().Catalog()

	require.NoError(t, store.CreateCategory(ctx, &catalog.Category{ID: beddingID, Name: "Постельное бельё", Slug: "postelnoe-bele"}))

	old := decimal.NewFromInt(3000)
	bed := catalog.Product{
		ID: bedID, SKU: "BED001", Title: "Classic Set", Slug: "classic-set", Description: "Satin, 120 TC",
		Price: decimal.NewFromInt(2500), OldPrice: &old, Currency: "RUB", Stock: 15,
		IsActive: true, IsInStock: true, Visibility: catalog.VisibilityVisible, CategoryID: beddingID,
		Material: "сатин", Tags: []string{"хит", "новинка"}, Images: []string{"https://img.example/bed001.jpg"},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	pillow := catalog.Product{
		ID: pillowID, SKU: "PIL010", Title: "Подушка", Slug: "podushka",
		Price: decimal.NewFromInt(1200), Currency: "RUB", Stock: 0,
		Visibility: catalog.VisibilityHidden, CategoryID: beddingID,
		CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateProduct(ctx, &bed))
	require.NoError(t, store.CreateProduct(ctx, &pillow))
	require.NoError(t, store.ReplaceVariants(ctx, bedID, []catalog.Variant{
		{Color: "Белый", Size: "Евро", SKU: "BED001-BELYY-EVRO", Price: decimal.NewFromInt(2500), Stock: 7, IsActive: true},
		{Color: "Серый", Size: "Евро", SKU: "BED001-SERYY-EVRO", Price: decimal.NewFromInt(2700), Stock: 8, IsActive: true},
	}))
	return store
}

func newExporter(store catalog.Store) *exporter.Exporter {
	e := exporter.New(store, nil)
	e.Now = func() time.Time { return time.Date(2026, 1, 19, 10, 0, 0, 0, time.UTC) }
	return e
}

func TestExport_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, f := range []exporter.Format{exporter.FormatCSV, exporter.FormatXML} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			n, err := newExporter(seed(t)).Export(context.Background(), exporter.Selection{}, f, &buf)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			g.Assert(t, "products_"+string(f), buf.Bytes())
		})
	}
}

func TestExport_SelectionAndFilter(t *testing.T) {
	store := seed(t)
	e := newExporter(store)
	ctx := context.Background()

	var buf bytes.Buffer
	n, err := e.Export(ctx, exporter.Selection{ProductIDs: []string{pillowID}}, exporter.FormatCSV, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), "PIL010")
	assert.NotContains(t, buf.String(), "BED001")

	inStock := true
	buf.Reset()
	n, err = e.Export(ctx, exporter.Selection{Filter: catalog.Filter{InStock: &inStock}}, exporter.FormatXML, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, buf.String(), `sku="BED001"`)
}

func TestExport_CSVRoundTripsThroughImporter(t *testing.T) {
	store := seed(t)
	var buf bytes.Buffer
	_, err := newExporter(store).Export(context.Background(), exporter.Selection{}, exporter.FormatCSV, &buf)
	require.NoError(t, err)

	im := importer.New(store, config.ImportConfig{}, nil)
	res, err := im.ImportCSV(context.Background(), &buf, importer.CSVOptions{UpdateExisting: true})
	require.NoError(t, err)
	require.True(t, res.Success, res.Errors)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 2, res.Updated)

	bed, err := store.ProductByID(context.Background(), bedID)
	require.NoError(t, err)
	assert.Equal(t, "classic-set", bed.Slug)
	assert.Equal(t, []string{"хит", "новинка"}, bed.Tags)
	assert.Equal(t, beddingID, bed.CategoryID)
}

func TestParseFormat(t *testing.T) {
	f, err := exporter.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, exporter.FormatCSV, f)

	f, err = exporter.ParseFormat("XML")
	require.NoError(t, err)
	assert.Equal(t, exporter.FormatXML, f)
	assert.True(t, strings.HasPrefix(f.ContentType(), "application/xml"))

	_, err = exporter.ParseFormat("xlsx")
	assert.Equal(t, 400, apperr.Status(err))

	assert.Equal(t, "products_export_2026-01-19.csv",
		exporter.Filename(exporter.FormatCSV, time.Date(2026, 1, 19, 23, 0, 0, 0, time.UTC)))
}
