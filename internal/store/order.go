package store

import (
	"sync"

	"github.com/efreitasn/matchbook/internal/domain"
)

// OrderStore is a thread-safe in-memory index of every order ever
// submitted, keyed by order number. The engine's registry only keeps
// live orders; this store retains terminal ones too, and is how amend,
// cancel and lookup requests are routed to the right instrument's book.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[uint64]*domain.Order
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[uint64]*domain.Order),
	}
}

// Create adds an order to the store.
func (s *OrderStore) Create(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[o.OrderNo] = o
}

// Get retrieves an order by number. It returns domain.ErrOrderNotFound
// if the order was never submitted.
func (s *OrderStore) Get(orderNo uint64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[orderNo]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}
