package httpx

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/exporter"
)

type ExportHandler struct {
	Exporter *exporter.Exporter
}

func (h *ExportHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(requireStaff)
		r.Get("/admin/export", h.exportFiltered)
		r.Post("/admin/export", h.exportSelected)
	})
}

func (h *ExportHandler) exportFiltered(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := exporter.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	f, err := parseProductFilter(q.Get)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.export(w, r, exporter.Selection{Filter: f}, format)
}

type exportRequest struct {
	ProductIDs []string `json:"productIds"`
	Format     string   `json:"format"`
}

func (h *ExportHandler) exportSelected(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	format, err := exporter.ParseFormat(req.Format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.ProductIDs) == 0 {
		writeError(w, r, apperr.Validation("empty_selection", "productIds must not be empty"))
		return
	}
	h.export(w, r, exporter.Selection{ProductIDs: req.ProductIDs}, format)
}

// export renders into memory first so a failure still produces a JSON error response.
func (h *ExportHandler) export(w http.ResponseWriter, r *http.Request, sel exporter.Selection, f exporter.Format) {
	var buf bytes.Buffer
	n, err := h.Exporter.Export(r.Context(), sel, f, &buf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+exporter.Filename(f, h.Exporter.Now())+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Export-Count", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func parseProductFilter(get func(string) string) (catalog.Filter, error) {
	f := catalog.Filter{CategoryID: strings.TrimSpace(get("categoryId"))}
	var err error
	if f.Active, err = queryBool("active", get("active")); err != nil {
		return f, err
	}
	if f.InStock, err = queryBool("inStock", get("inStock")); err != nil {
		return f, err
	}
	if v := strings.ToUpper(strings.TrimSpace(get("visibility"))); v != "" {
		f.Visibility = catalog.Visibility(v)
		if !f.Visibility.Valid() {
			return f, apperr.Validation("invalid_query", "visibility must be VISIBLE or HIDDEN")
		}
	}
	if f.From, err = queryDate(get("dateFrom"), false); err != nil {
		return f, err
	}
	if f.To, err = queryDate(get("dateTo"), true); err != nil {
		return f, err
	}
	return f, nil
}

// queryBool leaves the filter unset for an empty value.
func queryBool(name, raw string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return nil, nil
	case "true", "1":
		v := true
		return &v, nil
	case "false", "0":
		v := false
		return &v, nil
	}
	return nil, apperr.Validation("invalid_query", name+" must be true or false")
}

