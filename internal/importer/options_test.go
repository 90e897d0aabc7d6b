package importer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/importer"
)

func TestParseFlag(t *testing.T) {
	tests := []struct {
		raw     string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"TRUE", true, false},
		{"1", true, false},
		{"false", false, false},
		{"0", false, false},
		{"", false, false},
		{"yes", false, true},
		{"on", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := importer.ParseFlag("skipInvalid", tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, 400, apperr.Status(err))
				assert.Contains(t, err.Error(), "skipInvalid")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCategoryMapping(t *testing.T) {
	m, err := importer.ParseCategoryMapping(`{"Bedding":"c1","Пледы":"c2"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Bedding": "c1", "Пледы": "c2"}, m)

	m, err = importer.ParseCategoryMapping("  ")
	require.NoError(t, err)
	assert.Nil(t, m)

	for _, bad := range []string{`["a"]`, `{"a":1}`, `{`} {
		_, err := importer.ParseCategoryMapping(bad)
		assert.Error(t, err, bad)
	}
}

func TestResultMerge(t *testing.T) {
	a := importer.Result{Processed: 2, Created: 1, Errors: []string{}, Warnings: []string{"w1"}, Success: true}
	a.Merge(importer.Result{Processed: 3, Updated: 2, VariantsCreated: 6, Errors: []string{"e1"}, Warnings: []string{"w2"}})

	assert.Equal(t, 5, a.Processed)
	assert.Equal(t, 1, a.Created)
	assert.Equal(t, 2, a.Updated)
	assert.Equal(t, 6, a.VariantsCreated)
	assert.Equal(t, []string{"e1"}, a.Errors)
	assert.Equal(t, []string{"w1", "w2"}, a.Warnings)
	assert.False(t, a.Success)
}

func TestCheckFile(t *testing.T) {
	im := importer.New(nil, config.ImportConfig{MaxFileBytes: 10 << 20}, nil)

	assert.NoError(t, im.CheckFile("products.csv", 1024, ".csv"))
	assert.NoError(t, im.CheckFile("PRODUCTS.CSV", 10<<20, ".csv"))
	assert.NoError(t, im.CheckFile("export.xml", 1, ".xml"))

	var ae *apperr.Error
	require.ErrorAs(t, im.CheckFile("products.xlsx", 1, ".csv"), &ae)
	assert.Equal(t, "unsupported_file", ae.Code)

	require.ErrorAs(t, im.CheckFile("products.csv", 10<<20+1, ".csv"), &ae)
	assert.Equal(t, "file_too_large", ae.Code)
	assert.Contains(t, ae.Msg, "10 MB")
}
