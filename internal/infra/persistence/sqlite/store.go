// Package sqlite persists the yard store to a single SQLite table holding one
// JSON array per collection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"yardops/internal/infra/persistence/memory"
	"yardops/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.PersistentStore = (*Store)(nil)

// Store keeps the working set in memory and writes each changed collection to
// SQLite inside the commit of the transaction that changed it.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at path and hydrates the store from it.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "yardops.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{db: db, path: path}
	s.Store = memory.NewStore(engine, memory.WithCommitHook(s.persist))
	snapshot, err := s.load()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.ImportState(snapshot)
	return s, nil
}

func (s *Store) load() (memory.Snapshot, error) {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	snapshot := memory.Snapshot{}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		kind, err := domain.ParseKind(bucket)
		if err != nil {
			continue
		}
		recs, err := memory.DecodeBucket(kind, payload)
		if err != nil {
			return nil, err
		}
		snapshot[kind] = recs
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state: %w", err)
	}
	return snapshot, nil
}

// persist runs as the memory store's commit hook, so it is already serialised
// by the store's write lock.
func (s *Store) persist(ctx context.Context, changed []domain.EntityKind, next memory.Snapshot) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreWriteError{Op: "begin", Err: err}
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, kind := range changed {
		data, err := memory.EncodeBucket(next.Records(kind))
		if err != nil {
			return domain.StoreWriteError{Op: "encode " + string(kind), Err: err}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, string(kind), data); err != nil {
			return domain.StoreWriteError{Op: "upsert " + string(kind), Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.StoreWriteError{Op: "commit", Err: err}
	}
	return nil
}

// Close ends subscriptions and closes the database.
func (s *Store) Close() error {
	_ = s.Store.Close()
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
