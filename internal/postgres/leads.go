package postgres

import (
	"context"

	"github.com/ariefcatur/go-storefront/internal/leads"
)

type leadsRepo struct {
	db querier
}

func (r leadsRepo) CreateLead(ctx context.Context, l *leads.Lead) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO leads(id, name, phone, email, company, message, source, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		l.ID, l.Name, l.Phone, l.Email, l.Company, l.Message, l.Source, l.CreatedAt)
	return err
}

func (r leadsRepo) ListLeads(ctx context.Context, offset, limit int) ([]leads.Lead, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM leads`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, name, phone, email, company, message, source, created_at
		FROM leads ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []leads.Lead{}
	for rows.Next() {
		var l leads.Lead
		if err := rows.Scan(&l.ID, &l.Name, &l.Phone, &l.Email, &l.Company, &l.Message, &l.Source, &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}
