package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gameverse/tradecore/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL. Orders are keyed
// by the client ID assigned before submission; the exchange ID is filled in
// once the CLOB accepts the order.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create inserts a new order.
func (s *OrderStore) Create(ctx context.Context, o domain.Order) error {
	const query = `
		INSERT INTO orders (
			client_id, exchange_id, token_id, owner, maker, side, order_type,
			price, size, maker_amount, taker_amount, neg_risk,
			status, signature, created_at, cancelled_at, updated_at
		) VALUES (
			$1, NULLIF($2, ''), $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		o.ClientID, o.ID, o.TokenID, o.Owner, o.Maker,
		string(o.Side), string(o.Type),
		o.Price, o.Size, o.MakerAmount, o.TakerAmount, o.NegRisk,
		string(o.Status), o.Signature, o.CreatedAt, o.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create order %s: %w", o.ClientID, err)
	}
	return nil
}

// UpdateStatus changes the status of an existing order, records the exchange
// ID when provided, and stamps cancelled_at on cancellation.
func (s *OrderStore) UpdateStatus(ctx context.Context, clientID string, status domain.OrderStatus, exchangeID string) error {
	var query string
	switch status {
	case domain.OrderStatusCancelled:
		query = `UPDATE orders
			SET status = $1, exchange_id = COALESCE(NULLIF($2, ''), exchange_id),
			    cancelled_at = NOW(), updated_at = NOW()
			WHERE client_id = $3`
	default:
		query = `UPDATE orders
			SET status = $1, exchange_id = COALESCE(NULLIF($2, ''), exchange_id),
			    updated_at = NOW()
			WHERE client_id = $3`
	}

	tag, err := s.pool.Exec(ctx, query, string(status), exchangeID, clientID)
	if err != nil {
		return fmt.Errorf("postgres: update order status %s: %w", clientID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const orderSelectCols = `client_id, COALESCE(exchange_id, ''), token_id, owner, maker,
	side, order_type, price, size, maker_amount, taker_amount, neg_risk,
	status, signature, created_at, cancelled_at`

func scanOrderFromRow(
	scanner interface{ Scan(dest ...any) error },
) (domain.Order, error) {
	var o domain.Order
	var side, orderType, status string

	err := scanner.Scan(
		&o.ClientID, &o.ID, &o.TokenID, &o.Owner, &o.Maker,
		&side, &orderType,
		&o.Price, &o.Size, &o.MakerAmount, &o.TakerAmount, &o.NegRisk,
		&status, &o.Signature, &o.CreatedAt, &o.CancelledAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	o.Side = domain.OrderSide(side)
	o.Type = domain.OrderType(orderType)
	o.Status = domain.OrderStatus(status)
	return o, nil
}

func scanOrderRows(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrderFromRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetByClientID retrieves a single order by its client ID.
func (s *OrderStore) GetByClientID(ctx context.Context, clientID string) (domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderSelectCols+` FROM orders WHERE client_id = $1`, clientID)

	o, err := scanOrderFromRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("postgres: get order %s: %w", clientID, err)
	}
	return o, nil
}

// ListByOwner returns the most recent orders for an owner address.
func (s *OrderStore) ListByOwner(ctx context.Context, owner string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+orderSelectCols+` FROM orders
		 WHERE owner = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders by owner: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan orders by owner: %w", err)
	}
	return orders, nil
}

// ListBefore returns all orders created before the cutoff, oldest first.
func (s *OrderStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderSelectCols+` FROM orders
		 WHERE created_at < $1
		 ORDER BY created_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	orders, err := scanOrderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan orders before cutoff: %w", err)
	}
	return orders, nil
}

// DeleteBefore removes orders created before the cutoff and returns the
// number of rows deleted.
func (s *OrderStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM orders WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete orders before %s: %w", before.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}
