package repository

import (
	"context"
	"errors"

	"kedaipos-backend/internal/db"
	"kedaipos-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

// ErrOpenShiftExists is returned when a cashier tries to open a second
// shift while one is still open.
var ErrOpenShiftExists = errors.New("an open shift already exists for this user")

type ShiftRepository struct {
	DB *db.Postgres
}

// ShiftOrder is the order projection used for shift accounting.
type ShiftOrder struct {
	ID            int64
	Number        string
	Status        domain.OrderStatus
	Total         int64
	PaymentMethod domain.PaymentMethod
}

func (r ShiftRepository) Open(ctx context.Context, userID int64, operatorName string, startingCash int64) (*domain.Shift, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var existing int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM shifts WHERE user_id=$1 AND status=$2 FOR UPDATE
	`, userID, domain.ShiftOpen).Scan(&existing)
	if err == nil {
		return nil, ErrOpenShiftExists
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var s domain.Shift
	err = tx.QueryRow(ctx, `
		INSERT INTO shifts (user_id, operator_name, status, starting_cash, opened_at)
		VALUES ($1,$2,$3,$4, now())
		RETURNING id, user_id, operator_name, status, starting_cash, opened_at
	`, userID, operatorName, domain.ShiftOpen, startingCash).
		Scan(&s.ID, &s.UserID, &s.OperatorName, &s.Status, &s.StartingCash, &s.OpenedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r ShiftRepository) GetByID(ctx context.Context, id int64) (*domain.Shift, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, user_id, operator_name, status, starting_cash, ending_cash, expected_cash,
		       discrepancy, notes, opened_at, closed_at
		FROM shifts
		WHERE id=$1
	`, id)
	s, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrShiftNotFound
		}
		return nil, err
	}
	return s, nil
}

// CurrentOpen returns the cashier's open shift, or ErrShiftNotFound.
func (r ShiftRepository) CurrentOpen(ctx context.Context, userID int64) (*domain.Shift, error) {
	row := r.DB.Pool.QueryRow(ctx, `
		SELECT id, user_id, operator_name, status, starting_cash, ending_cash, expected_cash,
		       discrepancy, notes, opened_at, closed_at
		FROM shifts
		WHERE user_id=$1 AND status=$2
	`, userID, domain.ShiftOpen)
	s, err := scanShift(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrShiftNotFound
		}
		return nil, err
	}
	return s, nil
}

// OrdersForShift returns every order bound to the shift.
func (r ShiftRepository) OrdersForShift(ctx context.Context, shiftID int64) ([]ShiftOrder, error) {
	rows, err := r.DB.Pool.Query(ctx, `
		SELECT id, number, status, total, payment_method
		FROM orders
		WHERE shift_id=$1 AND deleted_at IS NULL
		ORDER BY id ASC
	`, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanShiftOrders(rows)
}

// Close performs the guarded OPEN -> CLOSED transition. The unresolved
// check, the cash-sales sum, and the closing write run in one
// transaction with the shift row locked, so an order completing
// concurrently cannot slip between check and write, and a concurrent
// close loses the lock race and sees status CLOSED.
func (r ShiftRepository) Close(ctx context.Context, shiftID int64, endingCash int64, notes string) (*domain.Shift, error) {
	tx, err := r.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var (
		status       string
		startingCash int64
	)
	err = tx.QueryRow(ctx, `
		SELECT status, starting_cash FROM shifts WHERE id=$1 FOR UPDATE
	`, shiftID).Scan(&status, &startingCash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrShiftNotFound
	}
	if err != nil {
		return nil, err
	}
	if domain.ShiftStatus(status) != domain.ShiftOpen {
		return nil, &domain.AlreadyClosedError{ShiftID: shiftID}
	}

	rows, err := tx.Query(ctx, `
		SELECT id, number, status, total, payment_method
		FROM orders
		WHERE shift_id=$1 AND deleted_at IS NULL
		  AND status NOT IN ($2, $3)
		ORDER BY id ASC
	`, shiftID, domain.OrderCompleted, domain.OrderCancelled)
	if err != nil {
		return nil, err
	}
	unresolved, err := scanShiftOrders(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(unresolved) > 0 {
		e := &domain.UnresolvedOrdersError{ShiftID: shiftID}
		for _, o := range unresolved {
			e.Orders = append(e.Orders, domain.UnresolvedOrder{
				ID:          o.ID,
				OrderNumber: o.Number,
				Status:      o.Status,
			})
		}
		return nil, e
	}

	// Cash float arithmetic counts only completed cash sales; card and
	// QR money never touched the drawer.
	var cashSales int64
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(total), 0)
		FROM orders
		WHERE shift_id=$1 AND deleted_at IS NULL AND status=$2 AND payment_method=$3
	`, shiftID, domain.OrderCompleted, domain.PaymentCash).Scan(&cashSales)
	if err != nil {
		return nil, err
	}

	expectedCash := startingCash + cashSales
	discrepancy := endingCash - expectedCash

	row := tx.QueryRow(ctx, `
		UPDATE shifts
		SET status=$1, ending_cash=$2, expected_cash=$3, discrepancy=$4, notes=$5, closed_at=now()
		WHERE id=$6 AND status=$7
		RETURNING id, user_id, operator_name, status, starting_cash, ending_cash, expected_cash,
		          discrepancy, notes, opened_at, closed_at
	`, domain.ShiftClosed, endingCash, expectedCash, discrepancy, notes, shiftID, domain.ShiftOpen)
	s, err := scanShift(row)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func scanShift(row interface {
	Scan(dest ...any) error
}) (*domain.Shift, error) {
	var (
		s      domain.Shift
		status string
	)
	if err := row.Scan(
		&s.ID, &s.UserID, &s.OperatorName, &status, &s.StartingCash,
		&s.EndingCash, &s.ExpectedCash, &s.Discrepancy, &s.Notes,
		&s.OpenedAt, &s.ClosedAt,
	); err != nil {
		return nil, err
	}
	s.Status = domain.ShiftStatus(status)
	return &s, nil
}

func scanShiftOrders(rows pgx.Rows) ([]ShiftOrder, error) {
	var out []ShiftOrder
	for rows.Next() {
		var (
			o      ShiftOrder
			status string
			method string
		)
		if err := rows.Scan(&o.ID, &o.Number, &status, &o.Total, &method); err != nil {
			return nil, err
		}
		o.Status = domain.OrderStatus(status)
		o.PaymentMethod = domain.PaymentMethod(method)
		out = append(out, o)
	}
	return out, rows.Err()
}
