// Package memstore keeps the whole storefront in process memory. The API falls back to it
// when Postgres is unreachable, and the service tests use it as their store.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/leads"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

type state struct {
	categories map[string]catalog.Category
	products   map[string]catalog.Product
	variants   map[string][]catalog.Variant
	users      map[string]orders.User
	addresses  map[string]orders.Address
	orders     map[string]orders.Order
	logs       []orders.Log
	leads      []leads.Lead
}

func newState() *state {
	return &state{
		categories: map[string]catalog.Category{},
		products:   map[string]catalog.Product{},
		variants:   map[string][]catalog.Variant{},
		users:      map[string]orders.User{},
		addresses:  map[string]orders.Address{},
		orders:     map[string]orders.Order{},
	}
}

// clone copies the containers; stored values are replaced, never mutated in place.
func (s *state) clone() *state {
	return &state{
		categories: maps.Clone(s.categories),
		products:   maps.Clone(s.products),
		variants:   maps.Clone(s.variants),
		users:      maps.Clone(s.users),
		addresses:  maps.Clone(s.addresses),
		orders:     maps.Clone(s.orders),
		logs:       append([]orders.Log(nil), s.logs...),
		leads:      append([]leads.Lead(nil), s.leads...),
	}
}

type Store struct {
	mu       sync.Mutex
	st       *state
	failures map[string]error
}

func New() *Store {
	return &Store{st: newState(), failures: map[string]error{}}
}

// FailOn makes the named repository operation return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) Catalog() catalog.Store { return catalogRepo{s: s} }
func (s *Store) Orders() orders.Store   { return ordersRepo{s: s} }
func (s *Store) Leads() leads.Repository {
	return leadsRepo{s: s}
}

// AddUser and AddAddress seed identities; accounts are managed outside this service.
func (s *Store) AddUser(u orders.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

func (s *Store) AddAddress(a orders.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.addresses[a.ID] = a
}

func (s *Store) RemoveUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.st.users, id)
}

// OrderCount and LogsFor are inspection helpers for tests.
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.st.orders)
}

func (s *Store) LogsFor(orderID string) []orders.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Log
	for _, l := range s.st.logs {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out
}

// acquire returns the state to operate on. Inside a transaction the caller already holds the lock.
func (s *Store) acquire(tx *state) (*state, func()) {
	if tx != nil {
		return tx, func() {}
	}
	s.mu.Lock()
	return s.st, s.mu.Unlock
}

// within runs fn against a copy of the state and publishes the copy only when fn succeeds.
func (s *Store) within(fn func(tx *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := s.st.clone()
	if err := fn(tx); err != nil {
		return err
	}
	s.st = tx
	return nil
}

// fail is called with the state lock held.
func (s *Store) fail(op string) error {
	return s.failures[op]
}

// Ping always succeeds; it lets the API health check treat both stores alike.
func (s *Store) Ping(context.Context) error { return nil }
