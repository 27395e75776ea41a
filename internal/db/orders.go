package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const orderColumns = `order_number, parent_order_number, line_item_index, channel,
	race_name, race_year, runner_name,
	race_name_override, race_year_override, runner_name_override,
	status, researched_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.OrderNumber, &o.ParentOrderNumber, &o.LineItemIndex, &o.Channel,
		&o.RaceName, &o.RaceYear, &o.RunnerName,
		&o.RaceNameOverride, &o.RaceYearOverride, &o.RunnerNameOverride,
		&o.Status, &o.ResearchedAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder inserts an ingested order. Orders without a race year start in
// missing_year so status-based batch research skips them.
func (db *DB) CreateOrder(ctx context.Context, input *OrderInput) (*Order, error) {
	status := OrderStatusPending
	if input.RaceYear == nil {
		status = OrderStatusMissingYear
	}

	o, err := scanOrder(db.pool.QueryRow(ctx,
		`INSERT INTO orders (order_number, parent_order_number, line_item_index, channel,
		                     race_name, race_year, runner_name, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+orderColumns,
		input.OrderNumber, nullIfEmpty(input.ParentOrderNumber), input.LineItemIndex, input.Channel,
		nullIfEmpty(input.RaceName), input.RaceYear, nullIfEmpty(input.RunnerName), status,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create order %s: %w", input.OrderNumber, err)
	}
	return o, nil
}

// GetOrder retrieves an order by its order number
func (db *DB) GetOrder(ctx context.Context, orderNumber string) (*Order, error) {
	o, err := scanOrder(db.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`,
		orderNumber,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order %s: %w", orderNumber, err)
	}
	return o, nil
}

// ListOrderNumbersByStatus returns order numbers with the given status, oldest first
func (db *DB) ListOrderNumbersByStatus(ctx context.Context, status string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT order_number FROM orders WHERE status = $1
		 ORDER BY created_at ASC, order_number ASC LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan order number: %w", err)
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// UpdateOrderOverrides stores the complete override set for an order. Ingested
// values and status are left untouched.
func (db *DB) UpdateOrderOverrides(ctx context.Context, orderNumber string, overrides OrderOverrides) (*Order, error) {
	o, err := scanOrder(db.pool.QueryRow(ctx,
		`UPDATE orders
		 SET race_name_override = $2,
		     race_year_override = $3,
		     runner_name_override = $4,
		     updated_at = NOW()
		 WHERE order_number = $1
		 RETURNING `+orderColumns,
		orderNumber, overrides.RaceName, overrides.RaceYear, overrides.RunnerName,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update overrides for order %s: %w", orderNumber, err)
	}
	return o, nil
}

// MarkOrderReady sets an order's status to ready and stamps researched_at
func (db *DB) MarkOrderReady(ctx context.Context, orderNumber string, researchedAt time.Time) (*Order, error) {
	o, err := scanOrder(db.pool.QueryRow(ctx,
		`UPDATE orders SET status = $2, researched_at = $3, updated_at = NOW()
		 WHERE order_number = $1
		 RETURNING `+orderColumns,
		orderNumber, OrderStatusReady, researchedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to mark order %s ready: %w", orderNumber, err)
	}
	return o, nil
}

// DeleteOrder removes an order and its research rows
func (db *DB) DeleteOrder(ctx context.Context, orderNumber string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM orders WHERE order_number = $1`, orderNumber)
	if err != nil {
		return fmt.Errorf("failed to delete order %s: %w", orderNumber, err)
	}
	return nil
}
