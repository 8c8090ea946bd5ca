package repository

import (
	"context"
	"time"

	"kedaipos-backend/internal/db"
	"kedaipos-backend/internal/domain"
)

type ReportRepository struct {
	DB *db.Postgres
}

type SalesSummary struct {
	TotalSales  int64
	TotalCash   int64
	TotalCard   int64
	TotalQR     int64
	OrderCount  int64
	CancelCount int64
}

type MenuSales struct {
	Name   string
	Amount int64
	Qty    int64
}

// Summary aggregates completed orders in [from, to).
func (r ReportRepository) Summary(ctx context.Context, from, to time.Time) (SalesSummary, error) {
	var s SalesSummary
	err := r.DB.Pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(total) FILTER (WHERE status=$3),0),
			COALESCE(SUM(total) FILTER (WHERE status=$3 AND payment_method=$4),0),
			COALESCE(SUM(total) FILTER (WHERE status=$3 AND payment_method=$5),0),
			COALESCE(SUM(total) FILTER (WHERE status=$3 AND payment_method=$6),0),
			COUNT(*) FILTER (WHERE status=$3),
			COUNT(*) FILTER (WHERE status=$7)
		FROM orders
		WHERE deleted_at IS NULL AND created_at >= $1 AND created_at < $2
	`, from, to, domain.OrderCompleted, domain.PaymentCash, domain.PaymentCard, domain.PaymentQR, domain.OrderCancelled).
		Scan(&s.TotalSales, &s.TotalCash, &s.TotalCard, &s.TotalQR, &s.OrderCount, &s.CancelCount)
	return s, err
}

// TopMenus returns the best-selling menu lines in [from, to).
func (r ReportRepository) TopMenus(ctx context.Context, from, to time.Time, limit int) ([]MenuSales, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT i.name, COALESCE(SUM(i.price*i.qty),0) AS amount, COALESCE(SUM(i.qty),0) AS qty
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE o.deleted_at IS NULL AND o.status=$3 AND o.created_at >= $1 AND o.created_at < $2
		GROUP BY i.name
		ORDER BY amount DESC
		LIMIT $4
	`, from, to, domain.OrderCompleted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []MenuSales
	for rows.Next() {
		var it MenuSales
		if err := rows.Scan(&it.Name, &it.Amount, &it.Qty); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ClosedShifts lists shift closings in [from, to), newest first.
func (r ReportRepository) ClosedShifts(ctx context.Context, from, to time.Time) ([]domain.Shift, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, user_id, operator_name, status, starting_cash, ending_cash, expected_cash,
		       discrepancy, notes, opened_at, closed_at
		FROM shifts
		WHERE status=$3 AND closed_at >= $1 AND closed_at < $2
		ORDER BY closed_at DESC
	`, from, to, domain.ShiftClosed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []domain.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, *s)
	}
	return shifts, rows.Err()
}
