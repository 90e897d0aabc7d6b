package httpx_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront/internal/auth"
)

func TestLeads(t *testing.T) {
	e := newEnv(t)

	rec := e.do(call{method: http.MethodPost, path: "/leads", body: jsonBody(t, map[string]any{"name": "Anna", "phone": "+7 900"}),
		ctype: "application/json"})
	require.Equal(t, http.StatusCreated, rec.Code)
	r := decode(t, rec)
	assert.True(t, r.Success)
	assert.Contains(t, string(r.Data), `"source":"website"`)

	rec = e.do(call{method: http.MethodPost, path: "/leads", body: jsonBody(t, map[string]any{"name": "A"}),
		ctype: "application/json"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_name", decode(t, rec).Code)

	rec = e.do(call{method: http.MethodGet, path: "/admin/leads?page=1&limit=10", as: e.staff, role: auth.RoleAdmin})
	require.Equal(t, http.StatusOK, rec.Code)
	r = decode(t, rec)
	require.NotNil(t, r.Pagination)
	assert.Equal(t, 1, r.Pagination.Total)
	assert.Equal(t, 10, r.Pagination.Limit)
}
