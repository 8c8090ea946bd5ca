package service

import (
	"context"
	"log/slog"

	"kedaipos-backend/internal/domain"
	"kedaipos-backend/internal/repository"
)

// ShiftLedger is the shift-accounting contract against the
// authoritative ledger. Satisfied by repository.ShiftRepository;
// faked in tests.
type ShiftLedger interface {
	Open(ctx context.Context, userID int64, operatorName string, startingCash int64) (*domain.Shift, error)
	GetByID(ctx context.Context, id int64) (*domain.Shift, error)
	CurrentOpen(ctx context.Context, userID int64) (*domain.Shift, error)
	OrdersForShift(ctx context.Context, shiftID int64) ([]repository.ShiftOrder, error)
	Close(ctx context.Context, shiftID int64, endingCash int64, notes string) (*domain.Shift, error)
}

// ShiftService is the cashier shift state machine: a shift opens with a
// starting cash float, accepts orders while OPEN, and closes exactly
// once after every bound order is resolved.
type ShiftService struct {
	Shifts ShiftLedger
	Logger *slog.Logger
}

// Open starts a new shift. startingCash is in the smallest currency
// unit and must not be negative.
func (s ShiftService) Open(ctx context.Context, userID int64, operatorName string, startingCash int64) (*domain.Shift, error) {
	if startingCash < 0 {
		return nil, &domain.ValidationError{Field: "startingCash", Reason: "must not be negative"}
	}
	shift, err := s.Shifts.Open(ctx, userID, operatorName, startingCash)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("shift opened", "shiftId", shift.ID, "userId", userID, "startingCash", startingCash)
	return shift, nil
}

// Close performs the guarded OPEN -> CLOSED transition. Validation
// failures abort before any write; an unresolved order aborts the whole
// close with the complete blocking list.
func (s ShiftService) Close(ctx context.Context, shiftID int64, endingCash int64, notes string) (*domain.Shift, error) {
	if endingCash < 0 {
		return nil, &domain.ValidationError{Field: "endingCash", Reason: "must not be negative"}
	}
	shift, err := s.Shifts.Close(ctx, shiftID, endingCash, notes)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("shift closed",
		"shiftId", shift.ID,
		"expectedCash", *shift.ExpectedCash,
		"endingCash", *shift.EndingCash,
		"discrepancy", *shift.Discrepancy)
	return shift, nil
}

// Current returns the cashier's open shift.
func (s ShiftService) Current(ctx context.Context, userID int64) (*domain.Shift, error) {
	return s.Shifts.CurrentOpen(ctx, userID)
}

// Get returns a shift with its bound orders.
func (s ShiftService) Get(ctx context.Context, shiftID int64) (*domain.Shift, []repository.ShiftOrder, error) {
	shift, err := s.Shifts.GetByID(ctx, shiftID)
	if err != nil {
		return nil, nil, err
	}
	orders, err := s.Shifts.OrdersForShift(ctx, shiftID)
	if err != nil {
		return nil, nil, err
	}
	return shift, orders, nil
}
