// Package postgres provides a Postgres-backed persistent store that mirrors
// the in-memory semantics, writing one JSONB document per collection.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"yardops/internal/infra/persistence/memory"
	"yardops/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/yardops?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists state to Postgres while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	db *sql.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN),
// ensures the state table exists, and hydrates the in-memory store from it.
func NewStore(dsn string, engine *domain.RulesEngine) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		return nil, err
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	s.Store = memory.NewStore(engine, memory.WithCommitHook(s.persist))
	s.ImportState(snapshot)
	return s, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close ends subscriptions and closes the pool.
func (s *Store) Close() error {
	_ = s.Store.Close()
	return s.db.Close()
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return nil, fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	snapshot := memory.Snapshot{}
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		kind, err := domain.ParseKind(bucket)
		if err != nil || len(payload) == 0 {
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

func (s *Store) persist(ctx context.Context, changed []domain.EntityKind, next memory.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.StoreWriteError{Op: "begin", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, kind := range changed {
		data, err := memory.EncodeBucket(next.Records(kind))
		if err != nil {
			return domain.StoreWriteError{Op: "encode " + string(kind), Err: err}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`, string(kind), data); err != nil {
			return domain.StoreWriteError{Op: "upsert " + string(kind), Err: err}
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.StoreWriteError{Op: "commit", Err: err}
	}
	committed = true
	return nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
