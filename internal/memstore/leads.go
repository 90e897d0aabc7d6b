package memstore

import (
	"context"
	"sort"

	"github.com/ariefcatur/go-storefront/internal/leads"
)

type leadsRepo struct {
	s *Store
}

func (r leadsRepo) CreateLead(ctx context.Context, l *leads.Lead) error {
	st, done := r.s.acquire(nil)
	defer done()
	if err := r.s.fail("CreateLead"); err != nil {
		return err
	}
	st.leads = append(st.leads, *l)
	return nil
}

func (r leadsRepo) ListLeads(ctx context.Context, offset, limit int) ([]leads.Lead, int, error) {
	st, done := r.s.acquire(nil)
	defer done()
	if err := r.s.fail("ListLeads"); err != nil {
		return nil, 0, err
	}
	sorted := append([]leads.Lead(nil), st.leads...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })

	total := len(sorted)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return sorted[offset:end], total, nil
}
