package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kedaipos-backend/internal/db"
	"kedaipos-backend/internal/domain"
	"kedaipos-backend/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type OrderRepository struct {
	DB *db.Postgres
}

// NewOrderNumber generates a human-readable order number.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d", now.UnixNano()/1e6)
}

// ApplyOrderMutation applies a locally originated order to the ledger,
// idempotent on localID. A replayed mutation, including one whose first
// attempt succeeded but was never acknowledged, returns the original
// result without inserting a second order.
//
// A rejection comes back as *domain.SyncRejectedError so callers can
// distinguish it from transient faults.
func (r OrderRepository) ApplyOrderMutation(ctx context.Context, localID string, m ports.OrderMutation) (ports.ApplyResult, error) {
	var res ports.ApplyResult

	if localID == "" {
		return res, &domain.SyncRejectedError{Reason: "missing localId"}
	}
	if m.Number == "" {
		return res, &domain.SyncRejectedError{Reason: "missing order number"}
	}
	if len(m.Items) == 0 {
		return res, &domain.SyncRejectedError{Reason: "order has no items"}
	}
	if m.Total != m.Subtotal+m.Tax-m.Discount {
		return res, &domain.SyncRejectedError{
			Reason: fmt.Sprintf("total %d does not match subtotal %d + tax %d - discount %d", m.Total, m.Subtotal, m.Tax, m.Discount),
		}
	}
	switch m.Status {
	case domain.OrderPending, domain.OrderProcessing, domain.OrderCompleted, domain.OrderCancelled:
	default:
		return res, &domain.SyncRejectedError{Reason: "unknown order status " + string(m.Status)}
	}

	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return res, err
	}
	defer tx.Rollback(ctx)

	// Replay check first: local_id is the idempotency key.
	err = tx.QueryRow(ctx, `
		SELECT id, number, status FROM orders WHERE local_id=$1
	`, localID).Scan(&res.ServerID, &res.Number, &res.Status)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return res, err
	}

	if m.ShiftID != nil {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM shifts WHERE id=$1`, *m.ShiftID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return res, &domain.SyncRejectedError{Reason: fmt.Sprintf("shift %d does not exist", *m.ShiftID)}
		}
		if err != nil {
			return res, err
		}
		if domain.ShiftStatus(status) != domain.ShiftOpen {
			return res, &domain.SyncRejectedError{Reason: fmt.Sprintf("shift %d is already closed", *m.ShiftID)}
		}
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders
		(local_id, number, user_id, shift_id, operator_name, subtotal, tax, discount, total,
		 payment_method, status, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12, now(), now())
		ON CONFLICT (local_id) DO NOTHING
		RETURNING id
	`, localID, m.Number, m.UserID, m.ShiftID, m.OperatorName, m.Subtotal, m.Tax, m.Discount, m.Total,
		m.PaymentMethod, m.Status, m.Notes).Scan(&res.ServerID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost a race with a concurrent replay of the same localID.
		err = tx.QueryRow(ctx, `
			SELECT id, number, status FROM orders WHERE local_id=$1
		`, localID).Scan(&res.ServerID, &res.Number, &res.Status)
		if err != nil {
			return res, err
		}
		return res, tx.Commit(ctx)
	}
	if err != nil {
		return res, err
	}

	for _, item := range m.Items {
		if item.Qty <= 0 {
			return res, &domain.SyncRejectedError{Reason: fmt.Sprintf("item %q has non-positive quantity", item.Name)}
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, menu_id, name, price, qty, note, created_at)
			VALUES ($1,$2,$3,$4,$5,$6, now())
		`, res.ServerID, item.MenuID, item.Name, item.Price, item.Qty, item.Note)
		if err != nil {
			return res, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return res, err
	}

	res.Number = m.Number
	res.Status = m.Status
	return res, nil
}

func (r OrderRepository) List(ctx context.Context, limit int) ([]domain.Order, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, local_id, number, user_id, shift_id, operator_name, subtotal, tax, discount, total,
		       payment_method, status, notes, created_at, updated_at
		FROM orders
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []int64
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		ids = append(ids, o.ID)
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return orders, nil
	}

	itemRows, err := r.DB.Pool.Query(ctx, `
		SELECT order_id, id, menu_id, name, price, qty, note, created_at
		FROM order_items
		WHERE order_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	itemsByOrder := make(map[int64][]domain.OrderItem)
	for itemRows.Next() {
		var it domain.OrderItem
		var orderID int64
		if err := itemRows.Scan(&orderID, &it.ID, &it.MenuID, &it.Name, &it.Price.Amount, &it.Qty, &it.Note, &it.CreatedAt); err != nil {
			return nil, err
		}
		it.OrderID = orderID
		itemsByOrder[orderID] = append(itemsByOrder[orderID], it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Items = itemsByOrder[orders[i].ID]
	}
	return orders, nil
}

func (r OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, local_id, number, user_id, shift_id, operator_name, subtotal, tax, discount, total,
		       payment_method, status, notes, created_at, updated_at
		FROM orders
		WHERE id=$1 AND deleted_at IS NULL
	`, id)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

// UpdateStatus moves an order along its lifecycle. Illegal transitions
// are rejected without touching the row.
func (r OrderRepository) UpdateStatus(ctx context.Context, id int64, next domain.OrderStatus) (*domain.Order, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, `
		SELECT status FROM orders WHERE id=$1 AND deleted_at IS NULL FOR UPDATE
	`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !domain.OrderStatus(current).CanTransition(next) {
		return nil, fmt.Errorf("order %d cannot transition from %s to %s", id, current, next)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$1, updated_at=now() WHERE id=$2
	`, next, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func scanOrder(row interface {
	Scan(dest ...any) error
}) (*domain.Order, error) {
	var (
		o       domain.Order
		userID  pgtype.Int8
		shiftID pgtype.Int8
		status  string
		method  string
	)
	if err := row.Scan(
		&o.ID, &o.LocalID, &o.Number, &userID, &shiftID, &o.OperatorName,
		&o.Subtotal.Amount, &o.Tax.Amount, &o.Discount.Amount, &o.Total.Amount,
		&method, &status, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if userID.Valid {
		o.UserID = &userID.Int64
	}
	if shiftID.Valid {
		o.ShiftID = &shiftID.Int64
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	o.Status = domain.OrderStatus(status)
	return &o, nil
}
