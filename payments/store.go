package payments

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Payment statuses.
const (
	StatusPending     = "PENDING"
	StatusNotRequired = "NOT_REQUIRED"
)

// ErrDuplicateOrder reports that a payment already exists for the order.
// This is the distinguishable outcome that makes at-least-once delivery safe:
// a redelivered order.created hits the duplicate guard instead of creating a
// second row.
var ErrDuplicateOrder = errors.New("payments: order already has a payment")

// Payment is one payment record.
type Payment struct {
	ID        string
	OrderID   string
	UserID    string
	Amount    float64
	Currency  string
	Method    string
	Status    string
	CreatedAt time.Time
}

// Store persists payment records. Insert must be idempotent under
// redelivery: a second insert for the same OrderID returns ErrDuplicateOrder
// rather than erroring or writing a second row.
type Store interface {
	Insert(ctx context.Context, p Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)
}

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	byOrder map[string]Payment
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byOrder: make(map[string]Payment),
	}
}

// Insert implements Store.
func (s *MemoryStore) Insert(ctx context.Context, p Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byOrder[p.OrderID]; exists {
		return ErrDuplicateOrder
	}
	s.byOrder[p.OrderID] = p
	return nil
}

// GetByOrderID implements Store.
func (s *MemoryStore) GetByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byOrder[orderID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}
