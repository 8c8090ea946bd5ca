// Package localstore is the terminal-side offline cache: a durable,
// indexed store of named record collections over embedded SQLite. It
// keeps the point of sale usable while disconnected and carries the
// per-record sync bookkeeping the synchronizer depends on.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Collection names. Each collection is independently clearable.
const (
	CollOrders     = "orders"
	CollOrderItems = "orderItems"
	CollMenus      = "menus"
	CollCategories = "categories"
	CollSyncQueue  = "syncQueue"
	CollSettings   = "settings"
)

// Index names per collection.
const (
	IdxOrderSyncStatus = "syncStatus"
	IdxOrderCreatedAt  = "createdAt"
	IdxItemOrder       = "orderId"
	IdxMenuCategory    = "categoryId"
	IdxMenuAvailable   = "available"
	IdxMenuVersion     = "version"
	IdxQueueEntity     = "entityType"
)

// Record is one stored row: a JSON payload addressed by key, plus the
// secondary index values the accessor layer derived from it.
type Record struct {
	Key     string
	Payload []byte
	Indexes map[string]string
}

var schema = map[string][]string{
	CollOrders:     {IdxOrderSyncStatus, IdxOrderCreatedAt},
	CollOrderItems: {IdxItemOrder},
	CollMenus:      {IdxMenuCategory, IdxMenuAvailable, IdxMenuVersion},
	CollCategories: {},
	CollSyncQueue:  {IdxQueueEntity},
	CollSettings:   {},
}

// Store is the local offline database. It is owned by a single
// terminal process; no cross-process sharing is assumed.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if necessary) the local store under dataDir.
func Open(dataDir string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "kedaipos.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	// SQLite allows a single writer; serialize through one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	for _, q := range []string{
		`CREATE TABLE IF NOT EXISTS records (
			collection TEXT NOT NULL,
			key TEXT NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (collection, key)
		)`,
		`CREATE TABLE IF NOT EXISTS record_indexes (
			collection TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			key TEXT NOT NULL,
			PRIMARY KEY (collection, name, key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_record_indexes_lookup
			ON record_indexes (collection, name, value)`,
	} {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, fmt.Errorf("init local store schema: %w", err)
		}
	}

	return &Store{db: db, log: log}, nil
}

// Close releases the underlying database. Errors are logged and
// returned, never suppressed.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		s.log.Error("local store close failed", "err", err)
		return err
	}
	return nil
}

func knownCollection(collection string) error {
	if _, ok := schema[collection]; !ok {
		return fmt.Errorf("unknown collection %q", collection)
	}
	return nil
}

func knownIndex(collection, index string) error {
	for _, name := range schema[collection] {
		if name == index {
			return nil
		}
	}
	return fmt.Errorf("collection %q has no index %q", collection, index)
}

// Get returns the record payload for key, or ok=false when absent.
// A missing key is not an error.
func (s *Store) Get(ctx context.Context, collection, key string) ([]byte, bool, error) {
	if err := knownCollection(collection); err != nil {
		return nil, false, err
	}
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM records WHERE collection=? AND key=?`,
		collection, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", collection, key, err)
	}
	return payload, true, nil
}

// GetAll returns every payload in the collection. Order is storage
// order and carries no meaning.
func (s *Store) GetAll(ctx context.Context, collection string) ([][]byte, error) {
	if err := knownCollection(collection); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM records WHERE collection=?`, collection)
	if err != nil {
		return nil, fmt.Errorf("get all %s: %w", collection, err)
	}
	defer rows.Close()
	return collectPayloads(rows, collection)
}

// GetAllByIndex returns every payload whose index value matches value
// exactly.
func (s *Store) GetAllByIndex(ctx context.Context, collection, index, value string) ([][]byte, error) {
	if err := knownCollection(collection); err != nil {
		return nil, err
	}
	if err := knownIndex(collection, index); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.payload
		FROM record_indexes i
		JOIN records r ON r.collection = i.collection AND r.key = i.key
		WHERE i.collection=? AND i.name=? AND i.value=?
	`, collection, index, value)
	if err != nil {
		return nil, fmt.Errorf("get %s by %s: %w", collection, index, err)
	}
	defer rows.Close()
	return collectPayloads(rows, collection)
}

func collectPayloads(rows *sql.Rows, collection string) ([][]byte, error) {
	var out [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		out = append(out, payload)
	}
	return out, rows.Err()
}

// Put upserts the record by key and refreshes its index entries.
// Putting the same record twice leaves the stored state unchanged.
func (s *Store) Put(ctx context.Context, collection string, rec Record) (string, error) {
	var key string
	err := s.WithTx(ctx, func(tx *Tx) error {
		var err error
		key, err = tx.Put(ctx, collection, rec)
		return err
	})
	return key, err
}

// PutMany stores all records in one transaction: either every record is
// visible afterward or none are. Used for wholesale catalog refreshes
// so a reader never observes a half-replaced menu set.
func (s *Store) PutMany(ctx context.Context, collection string, recs []Record) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		for _, rec := range recs {
			if _, err := tx.Put(ctx, collection, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the record and its index entries. Deleting a missing
// key is a no-op.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	return s.WithTx(ctx, func(tx *Tx) error {
		return tx.Delete(ctx, collection, key)
	})
}

// Clear removes every record in the collection.
func (s *Store) Clear(ctx context.Context, collection string) error {
	if err := knownCollection(collection); err != nil {
		return err
	}
	return s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(ctx,
			`DELETE FROM record_indexes WHERE collection=?`, collection); err != nil {
			return fmt.Errorf("clear %s indexes: %w", collection, err)
		}
		if _, err := tx.tx.ExecContext(ctx,
			`DELETE FROM records WHERE collection=?`, collection); err != nil {
			return fmt.Errorf("clear %s: %w", collection, err)
		}
		return nil
	})
}

// replaceAll swaps a collection's entire contents in one transaction,
// so a reader or a crash never observes a half-replaced set.
func (s *Store) replaceAll(ctx context.Context, collection string, recs []Record) error {
	if err := knownCollection(collection); err != nil {
		return err
	}
	return s.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(ctx,
			`DELETE FROM record_indexes WHERE collection=?`, collection); err != nil {
			return fmt.Errorf("clear %s indexes: %w", collection, err)
		}
		if _, err := tx.tx.ExecContext(ctx,
			`DELETE FROM records WHERE collection=?`, collection); err != nil {
			return fmt.Errorf("clear %s: %w", collection, err)
		}
		for _, rec := range recs {
			if _, err := tx.Put(ctx, collection, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of records in the collection.
func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	if err := knownCollection(collection); err != nil {
		return 0, err
	}
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection=?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// Tx is a transaction over the local store. Writes across collections
// inside one Tx commit or roll back together.
type Tx struct {
	tx *sql.Tx
}

// WithTx runs fn inside a single local transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin local tx: %w", err)
	}
	if err := fn(&Tx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error("local tx rollback failed", "err", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit local tx: %w", err)
	}
	return nil
}

// Put upserts one record inside the transaction.
func (tx *Tx) Put(ctx context.Context, collection string, rec Record) (string, error) {
	if err := knownCollection(collection); err != nil {
		return "", err
	}
	if rec.Key == "" {
		return "", fmt.Errorf("put %s: empty key", collection)
	}
	for name := range rec.Indexes {
		if err := knownIndex(collection, name); err != nil {
			return "", err
		}
	}

	if _, err := tx.tx.ExecContext(ctx, `
		INSERT INTO records (collection, key, payload) VALUES (?, ?, ?)
		ON CONFLICT (collection, key) DO UPDATE SET payload = excluded.payload
	`, collection, rec.Key, rec.Payload); err != nil {
		return "", fmt.Errorf("put %s/%s: %w", collection, rec.Key, err)
	}

	if _, err := tx.tx.ExecContext(ctx,
		`DELETE FROM record_indexes WHERE collection=? AND key=?`,
		collection, rec.Key); err != nil {
		return "", fmt.Errorf("reindex %s/%s: %w", collection, rec.Key, err)
	}
	for name, value := range rec.Indexes {
		if _, err := tx.tx.ExecContext(ctx,
			`INSERT INTO record_indexes (collection, name, value, key) VALUES (?, ?, ?, ?)`,
			collection, name, value, rec.Key); err != nil {
			return "", fmt.Errorf("index %s/%s %s: %w", collection, rec.Key, name, err)
		}
	}
	return rec.Key, nil
}

// Delete removes one record inside the transaction.
func (tx *Tx) Delete(ctx context.Context, collection, key string) error {
	if err := knownCollection(collection); err != nil {
		return err
	}
	if _, err := tx.tx.ExecContext(ctx,
		`DELETE FROM record_indexes WHERE collection=? AND key=?`,
		collection, key); err != nil {
		return fmt.Errorf("delete %s/%s indexes: %w", collection, key, err)
	}
	if _, err := tx.tx.ExecContext(ctx,
		`DELETE FROM records WHERE collection=? AND key=?`,
		collection, key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, key, err)
	}
	return nil
}
