package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/leads"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

// Store hands out repositories backed by one pool.
type Store struct {
	Pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

func (s *Store) Catalog() catalog.Store  { return catalogRepo{db: s.Pool, pool: s.Pool} }
func (s *Store) Orders() orders.Store    { return ordersRepo{db: s.Pool, pool: s.Pool} }
func (s *Store) Leads() leads.Repository { return leadsRepo{db: s.Pool} }
func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}
