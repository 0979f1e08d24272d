package payments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists payments in Postgres. Idempotence rests on the
// unique order_id constraint: the insert is a no-op for an order that already
// has a payment, which surfaces as ErrDuplicateOrder.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store over the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Insert implements Store.
func (s *PostgresStore) Insert(ctx context.Context, p Payment) error {
	tag, err := s.pool.Exec(ctx, `
INSERT INTO payments (id, order_id, user_id, amount, currency, method, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (order_id) DO NOTHING`,
		p.ID, p.OrderID, p.UserID, p.Amount, p.Currency, p.Method, p.Status, p.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateOrder
	}
	return nil
}

// GetByOrderID implements Store. Returns (nil, nil) when no payment exists.
func (s *PostgresStore) GetByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	var p Payment
	err := s.pool.QueryRow(ctx, `
SELECT id, order_id, user_id, amount, currency, method, status, created_at
FROM payments WHERE order_id = $1`, orderID).
		Scan(&p.ID, &p.OrderID, &p.UserID, &p.Amount, &p.Currency, &p.Method, &p.Status, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// EnsureSchema creates the payments table if it is missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS payments (
  id         text PRIMARY KEY,
  order_id   text NOT NULL UNIQUE,
  user_id    text NOT NULL,
  amount     numeric NOT NULL,
  currency   text NOT NULL,
  method     text NOT NULL,
  status     text NOT NULL,
  created_at timestamptz NOT NULL
);`)
	return err
}
