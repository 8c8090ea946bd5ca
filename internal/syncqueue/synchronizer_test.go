package syncqueue

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"log/slog"

	"kedaipos-backend/internal/domain"
	"kedaipos-backend/internal/localstore"
	"kedaipos-backend/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLedger scripts ApplyOrderMutation responses and records calls.
type fakeLedger struct {
	results map[string]ports.ApplyResult
	errs    map[string]error
	calls   []string
}

func (f *fakeLedger) ApplyOrderMutation(ctx context.Context, localID string, m ports.OrderMutation) (ports.ApplyResult, error) {
	f.calls = append(f.calls, localID)
	if err, ok := f.errs[localID]; ok {
		return ports.ApplyResult{}, err
	}
	return f.results[localID], nil
}

func newTestSync(t *testing.T, ledger *fakeLedger, now time.Time) *Synchronizer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := localstore.Open(t.TempDir(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return &Synchronizer{
		Store:  store,
		Ledger: ledger,
		Log:    logger,
		Now:    func() time.Time { return now },
	}
}

func TestBackoffFor(t *testing.T) {
	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 0},
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 120 * time.Second},
		{7, 1920 * time.Second},
		{8, time.Hour},
		{40, time.Hour},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, backoffFor(tc.retryCount), "retryCount=%d", tc.retryCount)
	}
}

func TestEnqueueOrder_InitializesSyncState(t *testing.T) {
	now := time.Unix(1000, 0)
	s := newTestSync(t, &fakeLedger{}, now)
	ctx := context.Background()

	o, err := s.EnqueueOrder(ctx, localstore.OfflineOrder{
		Number:        "ORD-1",
		Total:         33000,
		PaymentMethod: domain.PaymentCash,
		Status:        domain.OrderCompleted,
	}, []localstore.OfflineOrderItem{
		{Name: "Nasi Goreng", Price: 33000, Qty: 1},
	})
	require.NoError(t, err)
	require.NotEmpty(t, o.LocalID)
	assert.Equal(t, domain.SyncPending, o.SyncStatus)
	assert.Zero(t, o.RetryCount)
	assert.Nil(t, o.SyncedAt)
	assert.Equal(t, now.Unix(), o.CreatedAt)

	orders := localstore.Orders{Store: s.Store}
	stored, ok, err := orders.Get(ctx, o.LocalID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ORD-1", stored.Number)

	items, err := orders.ItemsByOrder(ctx, o.LocalID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, o.LocalID, items[0].OrderLocalID)

	entries, err := (localstore.Queue{Store: s.Store}).ByEntityType(ctx, domain.EntityOrder)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, o.LocalID, entries[0].EntityKey)
}

func TestDrain_SuccessMarksSyncedAndDrainsQueue(t *testing.T) {
	now := time.Unix(1000, 0)
	ledger := &fakeLedger{results: map[string]ports.ApplyResult{}}
	s := newTestSync(t, ledger, now)
	ctx := context.Background()

	o, err := s.EnqueueOrder(ctx, localstore.OfflineOrder{Number: "ORD-1"}, nil)
	require.NoError(t, err)
	ledger.results[o.LocalID] = ports.ApplyResult{ServerID: 42, Number: "ORD-1", Status: domain.OrderPending}

	stats, err := s.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)

	stored, ok, err := (localstore.Orders{Store: s.Store}).Get(ctx, o.LocalID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.SyncSynced, stored.SyncStatus)
	assert.Equal(t, int64(42), stored.ServerID)
	require.NotNil(t, stored.SyncedAt)
	assert.Equal(t, now.Unix(), *stored.SyncedAt)

	entries, err := (localstore.Queue{Store: s.Store}).ByEntityType(ctx, domain.EntityOrder)
	require.NoError(t, err)
	assert.Empty(t, entries, "acknowledged entry must leave the queue")

	// Nothing left to transmit.
	stats, err = s.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Synced)
	assert.Len(t, ledger.calls, 1)
}

func TestDrain_RetryableFailureBacksOff(t *testing.T) {
	now := time.Unix(1000, 0)
	ledger := &fakeLedger{errs: map[string]error{}}
	s := newTestSync(t, ledger, now)
	ctx := context.Background()

	o, err := s.EnqueueOrder(ctx, localstore.OfflineOrder{Number: "ORD-1"}, nil)
	require.NoError(t, err)
	ledger.errs[o.LocalID] = errors.New("connection refused")

	stats, err := s.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Retried)

	stored, _, err := (localstore.Orders{Store: s.Store}).Get(ctx, o.LocalID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncPending, stored.SyncStatus, "a retryable fault is not terminal")
	assert.Equal(t, 1, stored.RetryCount)

	entries, err := (localstore.Queue{Store: s.Store}).ByEntityType(ctx, domain.EntityOrder)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, now.Unix()+30, entries[0].NextRetryAt)
	assert.Contains(t, entries[0].LastError, "connection refused")

	// Before the backoff elapses the entry is skipped, not retried.
	stats, err = s.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Len(t, ledger.calls, 1)

	// After the backoff it goes out again and succeeds.
	s.Now = func() time.Time { return now.Add(31 * time.Second) }
	delete(ledger.errs, o.LocalID)
	ledger.results = map[string]ports.ApplyResult{o.LocalID: {ServerID: 7}}

	stats, err = s.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)
}

func TestDrain_RejectionParksAsConflict(t *testing.T) {
	now := time.Unix(1000, 0)
	ledger := &fakeLedger{errs: map[string]error{}}
	s := newTestSync(t, ledger, now)
	ctx := context.Background()

	o, err := s.EnqueueOrder(ctx, localstore.OfflineOrder{Number: "ORD-1"}, nil)
	require.NoError(t, err)
	ledger.errs[o.LocalID] = &domain.SyncRejectedError{Reason: "shift 9 is not open"}

	stats, err := s.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Conflicts)

	stored, _, err := (localstore.Orders{Store: s.Store}).Get(ctx, o.LocalID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncConflict, stored.SyncStatus)
	assert.Equal(t, "shift 9 is not open", stored.ConflictReason)

	entries, err := (localstore.Queue{Store: s.Store}).ByEntityType(ctx, domain.EntityOrder)
	require.NoError(t, err)
	assert.Empty(t, entries, "conflicts wait for operator action, not retries")
}

func TestDrain_ExhaustedRetriesParkAsFailed(t *testing.T) {
	now := time.Unix(1000, 0)
	ledger := &fakeLedger{errs: map[string]error{}}
	s := newTestSync(t, ledger, now)
	s.MaxRetries = 2
	ctx := context.Background()

	o, err := s.EnqueueOrder(ctx, localstore.OfflineOrder{Number: "ORD-1"}, nil)
	require.NoError(t, err)
	ledger.errs[o.LocalID] = errors.New("boom")

	stats, err := s.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Retried)

	s.Now = func() time.Time { return now.Add(time.Minute) }
	stats, err = s.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	stored, _, err := (localstore.Orders{Store: s.Store}).Get(ctx, o.LocalID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncFailed, stored.SyncStatus)
	assert.Equal(t, 2, stored.RetryCount)

	entries, err := (localstore.Queue{Store: s.Store}).ByEntityType(ctx, domain.EntityOrder)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDrain_DropsOrphanedEntries(t *testing.T) {
	now := time.Unix(1000, 0)
	ledger := &fakeLedger{}
	s := newTestSync(t, ledger, now)
	ctx := context.Background()

	queue := localstore.Queue{Store: s.Store}
	require.NoError(t, queue.Put(ctx, localstore.QueueEntry{
		ID:         "orphan",
		EntityType: domain.EntityOrder,
		EntityKey:  "no-such-order",
		CreatedAt:  now.Unix(),
	}))

	_, err := s.Drain(ctx)
	require.NoError(t, err)

	entries, err := queue.ByEntityType(ctx, domain.EntityOrder)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, ledger.calls, "an orphan never reaches the ledger")
}

func TestRetryOrder_ReenqueuesTerminalOrder(t *testing.T) {
	now := time.Unix(1000, 0)
	ledger := &fakeLedger{errs: map[string]error{}}
	s := newTestSync(t, ledger, now)
	ctx := context.Background()

	o, err := s.EnqueueOrder(ctx, localstore.OfflineOrder{Number: "ORD-1"}, nil)
	require.NoError(t, err)
	ledger.errs[o.LocalID] = &domain.SyncRejectedError{Reason: "rejected"}

	_, err = s.Drain(ctx)
	require.NoError(t, err)

	require.NoError(t, s.RetryOrder(ctx, o.LocalID))

	stored, _, err := (localstore.Orders{Store: s.Store}).Get(ctx, o.LocalID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncPending, stored.SyncStatus)
	assert.Empty(t, stored.ConflictReason)
	assert.Zero(t, stored.RetryCount)

	entries, err := (localstore.Queue{Store: s.Store}).ByEntityType(ctx, domain.EntityOrder)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRetryOrder_RejectsNonTerminalOrder(t *testing.T) {
	now := time.Unix(1000, 0)
	s := newTestSync(t, &fakeLedger{}, now)
	ctx := context.Background()

	o, err := s.EnqueueOrder(ctx, localstore.OfflineOrder{Number: "ORD-1"}, nil)
	require.NoError(t, err)

	err = s.RetryOrder(ctx, o.LocalID)
	require.Error(t, err, "a pending order is already queued")

	err = s.RetryOrder(ctx, "missing")
	require.Error(t, err)
}
