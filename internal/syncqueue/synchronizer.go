// Package syncqueue reconciles locally originated order mutations with
// the authoritative ledger. The queue is the only trigger for outbound
// sync; nothing else moves a record toward synced.
package syncqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kedaipos-backend/internal/domain"
	"kedaipos-backend/internal/localstore"
	"kedaipos-backend/internal/ports"

	"github.com/google/uuid"
)

const (
	// DefaultMaxRetries bounds how many passes retry a transient
	// failure before the entry is parked as failed.
	DefaultMaxRetries = 8

	backoffBase = 30 * time.Second
	backoffCap  = time.Hour
)

// backoffFor returns the delay before the next attempt after
// retryCount failures: backoffBase * 2^(retryCount-1), capped.
func backoffFor(retryCount int) time.Duration {
	if retryCount < 1 {
		return 0
	}
	d := backoffBase << uint(retryCount-1)
	if d <= 0 || d > backoffCap {
		return backoffCap
	}
	return d
}

// Stats summarizes one drain pass.
type Stats struct {
	Synced    int
	Retried   int
	Conflicts int
	Failed    int
	Skipped   int
}

// Synchronizer drains the sync queue against the authoritative ledger.
type Synchronizer struct {
	Store  *localstore.Store
	Ledger ports.OrderLedger
	Log    *slog.Logger

	MaxRetries int
	Now        func() time.Time
}

func (s *Synchronizer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Synchronizer) maxRetries() int {
	if s.MaxRetries > 0 {
		return s.MaxRetries
	}
	return DefaultMaxRetries
}

func (s *Synchronizer) orders() localstore.Orders { return localstore.Orders{Store: s.Store} }
func (s *Synchronizer) queue() localstore.Queue   { return localstore.Queue{Store: s.Store} }

// EnqueueOrder stores a locally created or edited order, its items,
// and the queue entry that will carry it to the ledger, in one local
// transaction. The order comes back with sync bookkeeping initialized.
func (s *Synchronizer) EnqueueOrder(ctx context.Context, o localstore.OfflineOrder, items []localstore.OfflineOrderItem) (*localstore.OfflineOrder, error) {
	now := s.now().Unix()
	if o.LocalID == "" {
		o.LocalID = uuid.NewString()
	}
	if o.CreatedAt == 0 {
		o.CreatedAt = now
	}
	o.SyncStatus = domain.SyncPending
	o.SyncedAt = nil
	o.RetryCount = 0
	o.UpdatedAt = now

	entry := localstore.QueueEntry{
		ID:         uuid.NewString(),
		EntityType: domain.EntityOrder,
		EntityKey:  o.LocalID,
		SyncStatus: domain.SyncPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].OrderLocalID = o.LocalID
	}

	err := s.Store.WithTx(ctx, func(tx *localstore.Tx) error {
		if err := s.orders().PutTx(ctx, tx, o); err != nil {
			return err
		}
		for _, it := range items {
			if err := s.orders().PutItemTx(ctx, tx, it); err != nil {
				return err
			}
		}
		return s.queue().PutTx(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("order enqueued for sync", "localId", o.LocalID, "number", o.Number)
	return &o, nil
}

// RetryOrder moves a conflict or failed order back to pending and
// re-enqueues it. Explicit operator action; the synchronizer itself
// never resurrects a terminal record.
func (s *Synchronizer) RetryOrder(ctx context.Context, localID string) error {
	o, ok, err := s.orders().Get(ctx, localID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("order %s not found in local store", localID)
	}
	if o.SyncStatus != domain.SyncConflict && o.SyncStatus != domain.SyncFailed {
		return fmt.Errorf("order %s is %s, only conflict or failed orders can be retried", localID, o.SyncStatus)
	}

	now := s.now().Unix()
	o.SyncStatus = domain.SyncPending
	o.ConflictReason = ""
	o.RetryCount = 0
	o.UpdatedAt = now

	entry := localstore.QueueEntry{
		ID:         uuid.NewString(),
		EntityType: domain.EntityOrder,
		EntityKey:  o.LocalID,
		SyncStatus: domain.SyncPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	return s.Store.WithTx(ctx, func(tx *localstore.Tx) error {
		if err := s.orders().PutTx(ctx, tx, *o); err != nil {
			return err
		}
		return s.queue().PutTx(ctx, tx, entry)
	})
}

// Drain processes due queue entries oldest-first. Sync faults are
// absorbed into record state rather than returned: a drain pass only
// errors on local storage failure.
func (s *Synchronizer) Drain(ctx context.Context) (Stats, error) {
	var stats Stats

	entries, err := s.queue().ByEntityType(ctx, domain.EntityOrder)
	if err != nil {
		return stats, err
	}

	now := s.now()
	for _, entry := range entries {
		if entry.NextRetryAt > now.Unix() {
			stats.Skipped++
			continue
		}
		if err := s.processOrderEntry(ctx, entry, &stats); err != nil {
			return stats, err
		}
	}

	if stats.Synced > 0 || stats.Conflicts > 0 || stats.Failed > 0 {
		s.Log.Info("sync pass finished",
			"synced", stats.Synced, "retried", stats.Retried,
			"conflicts", stats.Conflicts, "failed", stats.Failed)
	}
	return stats, nil
}

func (s *Synchronizer) processOrderEntry(ctx context.Context, entry localstore.QueueEntry, stats *Stats) error {
	o, ok, err := s.orders().Get(ctx, entry.EntityKey)
	if err != nil {
		return err
	}
	if !ok || o.SyncStatus == domain.SyncSynced {
		// Orphaned entry: its entity is gone or already acknowledged.
		s.Log.Warn("dropping orphaned queue entry", "id", entry.ID, "entityKey", entry.EntityKey)
		return s.queue().Delete(ctx, entry.ID)
	}

	items, err := s.orders().ItemsByOrder(ctx, o.LocalID)
	if err != nil {
		return err
	}

	res, applyErr := s.Ledger.ApplyOrderMutation(ctx, o.LocalID, mutationFromOrder(*o, items))
	now := s.now().Unix()

	if applyErr == nil {
		syncAttempts.WithLabelValues("synced").Inc()
		stats.Synced++
		o.MarkSynced(res.ServerID, now)
		return s.Store.WithTx(ctx, func(tx *localstore.Tx) error {
			if err := s.orders().PutTx(ctx, tx, *o); err != nil {
				return err
			}
			return tx.Delete(ctx, localstore.CollSyncQueue, entry.ID)
		})
	}

	var rejected *domain.SyncRejectedError
	if errors.As(applyErr, &rejected) {
		syncAttempts.WithLabelValues("conflict").Inc()
		stats.Conflicts++
		s.Log.Warn("order rejected by ledger", "localId", o.LocalID, "reason", rejected.Reason)
		o.SyncStatus = domain.SyncConflict
		o.ConflictReason = rejected.Reason
		o.LastSyncAttempt = &now
		o.UpdatedAt = now
		return s.Store.WithTx(ctx, func(tx *localstore.Tx) error {
			if err := s.orders().PutTx(ctx, tx, *o); err != nil {
				return err
			}
			return tx.Delete(ctx, localstore.CollSyncQueue, entry.ID)
		})
	}

	// Retryable: network, timeout, or server fault. Never treated as
	// success, never as terminal before MaxRetries.
	o.RetryCount++
	o.LastSyncAttempt = &now
	o.UpdatedAt = now

	if o.RetryCount >= s.maxRetries() {
		syncAttempts.WithLabelValues("failed").Inc()
		stats.Failed++
		s.Log.Error("order sync exhausted retries", "localId", o.LocalID, "retries", o.RetryCount, "err", applyErr)
		o.SyncStatus = domain.SyncFailed
		return s.Store.WithTx(ctx, func(tx *localstore.Tx) error {
			if err := s.orders().PutTx(ctx, tx, *o); err != nil {
				return err
			}
			return tx.Delete(ctx, localstore.CollSyncQueue, entry.ID)
		})
	}

	syncAttempts.WithLabelValues("retried").Inc()
	stats.Retried++
	entry.RetryCount = o.RetryCount
	entry.NextRetryAt = now + int64(backoffFor(o.RetryCount).Seconds())
	entry.LastError = applyErr.Error()
	entry.UpdatedAt = now
	s.Log.Warn("order sync failed, will retry",
		"localId", o.LocalID, "retry", o.RetryCount, "nextRetryAt", entry.NextRetryAt, "err", applyErr)

	return s.Store.WithTx(ctx, func(tx *localstore.Tx) error {
		if err := s.orders().PutTx(ctx, tx, *o); err != nil {
			return err
		}
		return s.queue().PutTx(ctx, tx, entry)
	})
}

func mutationFromOrder(o localstore.OfflineOrder, items []localstore.OfflineOrderItem) ports.OrderMutation {
	m := ports.OrderMutation{
		Number:        o.Number,
		UserID:        o.UserID,
		ShiftID:       o.ShiftID,
		OperatorName:  o.OperatorName,
		Subtotal:      o.Subtotal,
		Tax:           o.Tax,
		Discount:      o.Discount,
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		Notes:         o.Notes,
	}
	for _, it := range items {
		m.Items = append(m.Items, ports.OrderMutationItem{
			MenuID: it.MenuID,
			Name:   it.Name,
			Price:  it.Price,
			Qty:    it.Qty,
			Note:   it.Note,
		})
	}
	return m
}
