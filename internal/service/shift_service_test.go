package service

import (
	"context"
	"io"
	"testing"
	"time"

	"log/slog"

	"kedaipos-backend/internal/domain"
	"kedaipos-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeShiftLedger keeps one shift in memory and reproduces the ledger's
// close arithmetic over a fixed set of orders.
type fakeShiftLedger struct {
	shift  *domain.Shift
	orders []repository.ShiftOrder
}

func (f *fakeShiftLedger) Open(ctx context.Context, userID int64, operatorName string, startingCash int64) (*domain.Shift, error) {
	if f.shift != nil && f.shift.Status == domain.ShiftOpen {
		return nil, repository.ErrOpenShiftExists
	}
	f.shift = &domain.Shift{
		ID:           1,
		UserID:       userID,
		OperatorName: operatorName,
		Status:       domain.ShiftOpen,
		StartingCash: startingCash,
		OpenedAt:     time.Unix(1000, 0),
	}
	return f.shift, nil
}

func (f *fakeShiftLedger) GetByID(ctx context.Context, id int64) (*domain.Shift, error) {
	if f.shift == nil || f.shift.ID != id {
		return nil, domain.ErrShiftNotFound
	}
	return f.shift, nil
}

func (f *fakeShiftLedger) CurrentOpen(ctx context.Context, userID int64) (*domain.Shift, error) {
	if f.shift == nil || f.shift.Status != domain.ShiftOpen {
		return nil, domain.ErrShiftNotFound
	}
	return f.shift, nil
}

func (f *fakeShiftLedger) OrdersForShift(ctx context.Context, shiftID int64) ([]repository.ShiftOrder, error) {
	return f.orders, nil
}

func (f *fakeShiftLedger) Close(ctx context.Context, shiftID int64, endingCash int64, notes string) (*domain.Shift, error) {
	if f.shift == nil || f.shift.ID != shiftID {
		return nil, domain.ErrShiftNotFound
	}
	if f.shift.Status != domain.ShiftOpen {
		return nil, &domain.AlreadyClosedError{ShiftID: shiftID}
	}
	var unresolved []domain.UnresolvedOrder
	for _, o := range f.orders {
		if !o.Status.Resolved() {
			unresolved = append(unresolved, domain.UnresolvedOrder{ID: o.ID, OrderNumber: o.Number, Status: o.Status})
		}
	}
	if len(unresolved) > 0 {
		return nil, &domain.UnresolvedOrdersError{ShiftID: shiftID, Orders: unresolved}
	}
	var cashSales int64
	for _, o := range f.orders {
		if o.Status == domain.OrderCompleted && o.PaymentMethod == domain.PaymentCash {
			cashSales += o.Total
		}
	}
	expected := f.shift.StartingCash + cashSales
	discrepancy := endingCash - expected
	closedAt := time.Unix(2000, 0)
	f.shift.Status = domain.ShiftClosed
	f.shift.EndingCash = &endingCash
	f.shift.ExpectedCash = &expected
	f.shift.Discrepancy = &discrepancy
	f.shift.Notes = notes
	f.shift.ClosedAt = &closedAt
	return f.shift, nil
}

func newShiftService(ledger *fakeShiftLedger) ShiftService {
	return ShiftService{
		Shifts: ledger,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestShiftService_OpenRejectsNegativeStartingCash(t *testing.T) {
	svc := newShiftService(&fakeShiftLedger{})

	_, err := svc.Open(context.Background(), 1, "budi@kedai.id", -1)
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "startingCash", validation.Field)
}

func TestShiftService_OpenRejectsSecondOpenShift(t *testing.T) {
	ledger := &fakeShiftLedger{}
	svc := newShiftService(ledger)
	ctx := context.Background()

	_, err := svc.Open(ctx, 1, "budi@kedai.id", 500000)
	require.NoError(t, err)

	_, err = svc.Open(ctx, 1, "budi@kedai.id", 500000)
	require.ErrorIs(t, err, repository.ErrOpenShiftExists)
}

func TestShiftService_CloseComputesDiscrepancy(t *testing.T) {
	ledger := &fakeShiftLedger{
		orders: []repository.ShiftOrder{
			{ID: 1, Number: "ORD-1", Status: domain.OrderCompleted, Total: 33000, PaymentMethod: domain.PaymentCash},
			{ID: 2, Number: "ORD-2", Status: domain.OrderCompleted, Total: 27500, PaymentMethod: domain.PaymentCard},
			{ID: 3, Number: "ORD-3", Status: domain.OrderCancelled, Total: 12000, PaymentMethod: domain.PaymentCash},
		},
	}
	svc := newShiftService(ledger)
	ctx := context.Background()

	shift, err := svc.Open(ctx, 1, "budi@kedai.id", 500000)
	require.NoError(t, err)

	closed, err := svc.Close(ctx, shift.ID, 535000, "")
	require.NoError(t, err)

	// Card sales and cancelled orders never enter the cash drawer.
	require.NotNil(t, closed.ExpectedCash)
	assert.Equal(t, int64(533000), *closed.ExpectedCash)
	require.NotNil(t, closed.Discrepancy)
	assert.Equal(t, int64(2000), *closed.Discrepancy)
	assert.Equal(t, domain.ShiftClosed, closed.Status)
}

func TestShiftService_CloseRejectsNegativeEndingCash(t *testing.T) {
	svc := newShiftService(&fakeShiftLedger{})

	_, err := svc.Close(context.Background(), 1, -500, "")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "endingCash", validation.Field)
}

func TestShiftService_CloseBlocksOnUnresolvedOrders(t *testing.T) {
	ledger := &fakeShiftLedger{
		orders: []repository.ShiftOrder{
			{ID: 1, Number: "ORD-1", Status: domain.OrderCompleted, Total: 10000, PaymentMethod: domain.PaymentCash},
			{ID: 2, Number: "ORD-2", Status: domain.OrderPending, Total: 5000, PaymentMethod: domain.PaymentCash},
			{ID: 3, Number: "ORD-3", Status: domain.OrderProcessing, Total: 7000, PaymentMethod: domain.PaymentCard},
		},
	}
	svc := newShiftService(ledger)
	ctx := context.Background()

	shift, err := svc.Open(ctx, 1, "budi@kedai.id", 100000)
	require.NoError(t, err)

	_, err = svc.Close(ctx, shift.ID, 110000, "")
	var unresolved *domain.UnresolvedOrdersError
	require.ErrorAs(t, err, &unresolved)
	assert.Len(t, unresolved.Orders, 2, "every blocking order is reported")
	assert.Equal(t, domain.ShiftOpen, ledger.shift.Status, "a blocked close leaves the shift open")

	// Once the blockers resolve, the identical call goes through.
	ledger.orders[1].Status = domain.OrderCompleted
	ledger.orders[2].Status = domain.OrderCancelled

	closed, err := svc.Close(ctx, shift.ID, 110000, "")
	require.NoError(t, err)
	require.NotNil(t, closed.ExpectedCash)
	assert.Equal(t, int64(115000), *closed.ExpectedCash)
	require.NotNil(t, closed.Discrepancy)
	assert.Equal(t, int64(-5000), *closed.Discrepancy, "shortage keeps its sign")
}

func TestShiftService_CloseTwiceFails(t *testing.T) {
	ledger := &fakeShiftLedger{}
	svc := newShiftService(ledger)
	ctx := context.Background()

	shift, err := svc.Open(ctx, 1, "budi@kedai.id", 100000)
	require.NoError(t, err)

	_, err = svc.Close(ctx, shift.ID, 100000, "")
	require.NoError(t, err)

	_, err = svc.Close(ctx, shift.ID, 100000, "")
	var closed *domain.AlreadyClosedError
	require.ErrorAs(t, err, &closed)
}

func TestShiftService_GetReturnsShiftWithOrders(t *testing.T) {
	ledger := &fakeShiftLedger{
		orders: []repository.ShiftOrder{
			{ID: 1, Number: "ORD-1", Status: domain.OrderCompleted, Total: 10000, PaymentMethod: domain.PaymentCash},
		},
	}
	svc := newShiftService(ledger)
	ctx := context.Background()

	opened, err := svc.Open(ctx, 1, "budi@kedai.id", 100000)
	require.NoError(t, err)

	shift, orders, err := svc.Get(ctx, opened.ID)
	require.NoError(t, err)
	assert.Equal(t, opened.ID, shift.ID)
	assert.Len(t, orders, 1)

	_, _, err = svc.Get(ctx, 99)
	require.ErrorIs(t, err, domain.ErrShiftNotFound)
}
