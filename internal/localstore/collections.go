package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"kedaipos-backend/internal/domain"
)

// OfflineOrder is the locally cached order shape. Keyed by LocalID,
// which is generated at creation time and stable for the record's life;
// ServerID is filled in once the ledger acknowledges the order.
//
// Invariant: SyncedAt is set exactly when SyncStatus is synced. Use
// MarkSynced so the two fields never disagree.
type OfflineOrder struct {
	LocalID         string               `json:"localId"`
	ServerID        int64                `json:"serverId,omitempty"`
	Number          string               `json:"number"`
	UserID          *int64               `json:"userId,omitempty"`
	ShiftID         *int64               `json:"shiftId,omitempty"`
	OperatorName    string               `json:"operatorName,omitempty"`
	Subtotal        int64                `json:"subtotal"`
	Tax             int64                `json:"tax"`
	Discount        int64                `json:"discount"`
	Total           int64                `json:"total"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod"`
	Status          domain.OrderStatus   `json:"status"`
	Notes           string               `json:"notes,omitempty"`
	SyncStatus      domain.SyncStatus    `json:"syncStatus"`
	SyncedAt        *int64               `json:"syncedAt,omitempty"`
	ConflictReason  string               `json:"conflictReason,omitempty"`
	RetryCount      int                  `json:"retryCount"`
	LastSyncAttempt *int64               `json:"lastSyncAttempt,omitempty"`
	CreatedAt       int64                `json:"createdAt"`
	UpdatedAt       int64                `json:"updatedAt"`
}

// MarkSynced records the ledger acknowledgement.
func (o *OfflineOrder) MarkSynced(serverID int64, at int64) {
	o.ServerID = serverID
	o.SyncStatus = domain.SyncSynced
	o.SyncedAt = &at
	o.ConflictReason = ""
	o.UpdatedAt = at
}

// OfflineOrderItem is one cached order line, stored separately from its
// order for indexed lookup. OrderLocalID binds it to the owning order.
type OfflineOrderItem struct {
	ID           string `json:"id"`
	OrderLocalID string `json:"orderId"`
	MenuID       *int64 `json:"menuId,omitempty"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	Qty          int    `json:"qty"`
	Note         string `json:"note,omitempty"`
}

// CachedMenu mirrors a server menu entry. Read-mostly: replaced
// wholesale on catalog refresh, never mutated locally.
type CachedMenu struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CategoryID int64  `json:"categoryId"`
	Price      int64  `json:"price"`
	Image      string `json:"image,omitempty"`
	Available  bool   `json:"available"`
	Version    int64  `json:"version"`
	CachedAt   int64  `json:"cachedAt"`
}

// CachedCategory mirrors a server category.
type CachedCategory struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	CachedAt int64  `json:"cachedAt"`
}

// QueueEntry is one pending local mutation awaiting transmission.
// EntityType selects the payload shape; EntityKey addresses the entity
// in its own collection.
type QueueEntry struct {
	ID          string                `json:"id"`
	EntityType  domain.SyncEntityType `json:"entityType"`
	EntityKey   string                `json:"entityKey"`
	SyncStatus  domain.SyncStatus     `json:"syncStatus"`
	RetryCount  int                   `json:"retryCount"`
	NextRetryAt int64                 `json:"nextRetryAt"`
	LastError   string                `json:"lastError,omitempty"`
	CreatedAt   int64                 `json:"createdAt"`
	UpdatedAt   int64                 `json:"updatedAt"`
}

// Orders is the typed accessor over the orders and orderItems
// collections.
type Orders struct {
	Store *Store
}

func orderRecord(o OfflineOrder) (Record, error) {
	payload, err := json.Marshal(o)
	if err != nil {
		return Record{}, fmt.Errorf("marshal order %s: %w", o.LocalID, err)
	}
	return Record{
		Key:     o.LocalID,
		Payload: payload,
		Indexes: map[string]string{
			IdxOrderSyncStatus: string(o.SyncStatus),
			IdxOrderCreatedAt:  strconv.FormatInt(o.CreatedAt, 10),
		},
	}, nil
}

func (a Orders) Put(ctx context.Context, o OfflineOrder) error {
	rec, err := orderRecord(o)
	if err != nil {
		return err
	}
	_, err = a.Store.Put(ctx, CollOrders, rec)
	return err
}

// PutTx writes the order inside an open transaction.
func (a Orders) PutTx(ctx context.Context, tx *Tx, o OfflineOrder) error {
	rec, err := orderRecord(o)
	if err != nil {
		return err
	}
	_, err = tx.Put(ctx, CollOrders, rec)
	return err
}

func (a Orders) Get(ctx context.Context, localID string) (*OfflineOrder, bool, error) {
	payload, ok, err := a.Store.Get(ctx, CollOrders, localID)
	if err != nil || !ok {
		return nil, ok, err
	}
	var o OfflineOrder
	if err := json.Unmarshal(payload, &o); err != nil {
		return nil, false, fmt.Errorf("unmarshal order %s: %w", localID, err)
	}
	return &o, true, nil
}

func (a Orders) All(ctx context.Context) ([]OfflineOrder, error) {
	payloads, err := a.Store.GetAll(ctx, CollOrders)
	if err != nil {
		return nil, err
	}
	return decodeOrders(payloads)
}

// BySyncStatus returns every order in the given sync state, oldest
// first.
func (a Orders) BySyncStatus(ctx context.Context, status domain.SyncStatus) ([]OfflineOrder, error) {
	payloads, err := a.Store.GetAllByIndex(ctx, CollOrders, IdxOrderSyncStatus, string(status))
	if err != nil {
		return nil, err
	}
	orders, err := decodeOrders(payloads)
	if err != nil {
		return nil, err
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt < orders[j].CreatedAt })
	return orders, nil
}

func decodeOrders(payloads [][]byte) ([]OfflineOrder, error) {
	out := make([]OfflineOrder, 0, len(payloads))
	for _, p := range payloads {
		var o OfflineOrder
		if err := json.Unmarshal(p, &o); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
		out = append(out, o)
	}
	return out, nil
}

func itemRecord(it OfflineOrderItem) (Record, error) {
	payload, err := json.Marshal(it)
	if err != nil {
		return Record{}, fmt.Errorf("marshal order item %s: %w", it.ID, err)
	}
	return Record{
		Key:     it.ID,
		Payload: payload,
		Indexes: map[string]string{IdxItemOrder: it.OrderLocalID},
	}, nil
}

func (a Orders) PutItems(ctx context.Context, items []OfflineOrderItem) error {
	recs := make([]Record, 0, len(items))
	for _, it := range items {
		rec, err := itemRecord(it)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}
	return a.Store.PutMany(ctx, CollOrderItems, recs)
}

// PutItemTx writes one order item inside an open transaction.
func (a Orders) PutItemTx(ctx context.Context, tx *Tx, it OfflineOrderItem) error {
	rec, err := itemRecord(it)
	if err != nil {
		return err
	}
	_, err = tx.Put(ctx, CollOrderItems, rec)
	return err
}

func (a Orders) ItemsByOrder(ctx context.Context, orderLocalID string) ([]OfflineOrderItem, error) {
	payloads, err := a.Store.GetAllByIndex(ctx, CollOrderItems, IdxItemOrder, orderLocalID)
	if err != nil {
		return nil, err
	}
	out := make([]OfflineOrderItem, 0, len(payloads))
	for _, p := range payloads {
		var it OfflineOrderItem
		if err := json.Unmarshal(p, &it); err != nil {
			return nil, fmt.Errorf("unmarshal order item: %w", err)
		}
		out = append(out, it)
	}
	return out, nil
}

// Catalog is the typed accessor over the menus and categories
// collections.
type Catalog struct {
	Store *Store
}

// ReplaceMenus swaps the whole cached menu set atomically.
func (c Catalog) ReplaceMenus(ctx context.Context, menus []CachedMenu) error {
	recs := make([]Record, 0, len(menus))
	for _, m := range menus {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal menu %d: %w", m.ID, err)
		}
		recs = append(recs, Record{
			Key:     strconv.FormatInt(m.ID, 10),
			Payload: payload,
			Indexes: map[string]string{
				IdxMenuCategory:  strconv.FormatInt(m.CategoryID, 10),
				IdxMenuAvailable: strconv.FormatBool(m.Available),
				IdxMenuVersion:   strconv.FormatInt(m.Version, 10),
			},
		})
	}
	return c.Store.replaceAll(ctx, CollMenus, recs)
}

func (c Catalog) MenusByCategory(ctx context.Context, categoryID int64) ([]CachedMenu, error) {
	return c.menusByIndex(ctx, IdxMenuCategory, strconv.FormatInt(categoryID, 10))
}

func (c Catalog) AvailableMenus(ctx context.Context) ([]CachedMenu, error) {
	return c.menusByIndex(ctx, IdxMenuAvailable, "true")
}

// MenusByVersion returns the cached menus at an exact catalog
// version. A refresh compares these against the server copy to decide
// whether the mirror is stale.
func (c Catalog) MenusByVersion(ctx context.Context, version int64) ([]CachedMenu, error) {
	return c.menusByIndex(ctx, IdxMenuVersion, strconv.FormatInt(version, 10))
}

func (c Catalog) menusByIndex(ctx context.Context, index, value string) ([]CachedMenu, error) {
	payloads, err := c.Store.GetAllByIndex(ctx, CollMenus, index, value)
	if err != nil {
		return nil, err
	}
	out := make([]CachedMenu, 0, len(payloads))
	for _, p := range payloads {
		var m CachedMenu
		if err := json.Unmarshal(p, &m); err != nil {
			return nil, fmt.Errorf("unmarshal menu: %w", err)
		}
		out = append(out, m)
	}
	return out, nil
}

// ReplaceCategories swaps the cached category set atomically.
func (c Catalog) ReplaceCategories(ctx context.Context, categories []CachedCategory) error {
	recs := make([]Record, 0, len(categories))
	for _, cat := range categories {
		payload, err := json.Marshal(cat)
		if err != nil {
			return fmt.Errorf("marshal category %d: %w", cat.ID, err)
		}
		recs = append(recs, Record{Key: strconv.FormatInt(cat.ID, 10), Payload: payload})
	}
	return c.Store.replaceAll(ctx, CollCategories, recs)
}

func (c Catalog) Categories(ctx context.Context) ([]CachedCategory, error) {
	payloads, err := c.Store.GetAll(ctx, CollCategories)
	if err != nil {
		return nil, err
	}
	out := make([]CachedCategory, 0, len(payloads))
	for _, p := range payloads {
		var cat CachedCategory
		if err := json.Unmarshal(p, &cat); err != nil {
			return nil, fmt.Errorf("unmarshal category: %w", err)
		}
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Queue is the typed accessor over the syncQueue collection.
type Queue struct {
	Store *Store
}

func queueRecord(e QueueEntry) (Record, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Record{}, fmt.Errorf("marshal queue entry %s: %w", e.ID, err)
	}
	return Record{
		Key:     e.ID,
		Payload: payload,
		Indexes: map[string]string{IdxQueueEntity: string(e.EntityType)},
	}, nil
}

func (q Queue) Put(ctx context.Context, e QueueEntry) error {
	rec, err := queueRecord(e)
	if err != nil {
		return err
	}
	_, err = q.Store.Put(ctx, CollSyncQueue, rec)
	return err
}

// PutTx writes a queue entry inside an open transaction.
func (q Queue) PutTx(ctx context.Context, tx *Tx, e QueueEntry) error {
	rec, err := queueRecord(e)
	if err != nil {
		return err
	}
	_, err = tx.Put(ctx, CollSyncQueue, rec)
	return err
}

// DeleteTx removes a queue entry inside an open transaction. The
// synchronizer deletes the entry in the same unit that marks its entity
// synced.
func (q Queue) DeleteTx(ctx context.Context, tx *Tx, id string) error {
	return tx.Delete(ctx, CollSyncQueue, id)
}

func (q Queue) Delete(ctx context.Context, id string) error {
	return q.Store.Delete(ctx, CollSyncQueue, id)
}

// ByEntityType returns queue entries for one entity type, oldest first.
// FIFO per entity type preserves the causal order of edits to the same
// record.
func (q Queue) ByEntityType(ctx context.Context, et domain.SyncEntityType) ([]QueueEntry, error) {
	payloads, err := q.Store.GetAllByIndex(ctx, CollSyncQueue, IdxQueueEntity, string(et))
	if err != nil {
		return nil, err
	}
	out := make([]QueueEntry, 0, len(payloads))
	for _, p := range payloads {
		var e QueueEntry
		if err := json.Unmarshal(p, &e); err != nil {
			return nil, fmt.Errorf("unmarshal queue entry: %w", err)
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

// Settings is the typed accessor over the settings collection, which
// holds a single cached business profile.
type Settings struct {
	Store *Store
}

const settingsKey = "settings"

func (s Settings) Put(ctx context.Context, v domain.Settings) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = s.Store.Put(ctx, CollSettings, Record{Key: settingsKey, Payload: payload})
	return err
}

func (s Settings) Get(ctx context.Context) (*domain.Settings, bool, error) {
	payload, ok, err := s.Store.Get(ctx, CollSettings, settingsKey)
	if err != nil || !ok {
		return nil, ok, err
	}
	var v domain.Settings
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, false, fmt.Errorf("unmarshal settings: %w", err)
	}
	return &v, true, nil
}
