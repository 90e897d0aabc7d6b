package httpx_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/auth"
)

func TestExport_GetWithFilters(t *testing.T) {
	e := newEnv(t)

	rec := e.do(call{method: http.MethodGet, path: "/admin/export?format=csv&inStock=true", as: e.staff, role: auth.RoleAdmin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="products_export_2026-01-19.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", rec.Header().Get("X-Export-Count"))
	body := strings.TrimPrefix(rec.Body.String(), "\ufeff")
	assert.True(t, strings.HasPrefix(body, "sku,title,category,price,stock"))
	assert.Contains(t, body, "BLK005")

	rec = e.do(call{method: http.MethodGet, path: "/admin/export?inStock=false", as: e.staff, role: auth.RoleAdmin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-Export-Count"))
}

func TestExport_PostSelectedAsXML(t *testing.T) {
	e := newEnv(t)

	body := jsonBody(t, map[string]any{"productIds": []string{e.product.ID}, "format": "xml"})
	rec := e.do(call{method: http.MethodPost, path: "/admin/export", body: body, ctype: "application/json",
		as: e.staff, role: auth.RoleManager})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "products_export_2026-01-19.xml")
	assert.Contains(t, rec.Body.String(), `sku="BLK005"`)
}

func TestExport_BadRequests(t *testing.T) {
	e := newEnv(t)

	for _, path := range []string{"/admin/export?format=pdf", "/admin/export?active=maybe", "/admin/export?visibility=SECRET"} {
		rec := e.do(call{method: http.MethodGet, path: path, as: e.staff, role: auth.RoleAdmin})
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec := e.do(call{method: http.MethodPost, path: "/admin/export", body: jsonBody(t, map[string]any{"productIds": []string{}}),
		ctype: "application/json", as: e.staff, role: auth.RoleAdmin})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_selection", decode(t, rec).Code)

	rec = e.do(call{method: http.MethodGet, path: "/admin/export", as: e.customer, role: auth.RoleCustomer})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
