package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront/internal/leads"
)

type LeadsHandler struct {
	Service *leads.Service
}

func (h *LeadsHandler) Register(r chi.Router) {
	r.Post("/leads", h.createLead)
	r.With(requireStaff).Get("/admin/leads", h.listLeads)
}

func (h *LeadsHandler) createLead(w http.ResponseWriter, r *http.Request) {
	var req leads.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.Service.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, l, "")
}

func (h *LeadsHandler) listLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Service.List(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Data:       p.Leads,
		Pagination: &pagination{Page: p.Page, Limit: p.Limit, Total: p.Total, Pages: p.Pages},
	})
}
