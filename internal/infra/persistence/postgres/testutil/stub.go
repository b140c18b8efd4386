// Package testutil provides a database/sql stub of the postgres state table
// (bucket TEXT PRIMARY KEY, payload JSONB) for store tests.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// StubConn is a single shared connection. Upserts issued inside a transaction
// only reach Buckets when the transaction commits.
type StubConn struct {
	mu sync.Mutex

	// Execs records every statement in order.
	Execs []string
	// Buckets holds the committed payload per bucket.
	Buckets map[string][]byte

	FailPing   bool
	FailExec   bool
	FailBegin  bool
	FailCommit bool
	FailQuery  bool
	RowsErr    error

	pending map[string][]byte
	inTx    bool
}

var seq atomic.Int64

// NewStubDB registers a fresh driver and returns a sql.DB bound to it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Buckets: make(map[string][]byte)}
	name := fmt.Sprintf("yardops-stubpg-%d", seq.Add(1))
	sql.Register(name, stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

// Payload returns the committed payload of bucket.
func (c *StubConn) Payload(bucket string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.Buckets[bucket]
	return p, ok
}

// BucketNames returns the committed bucket names, sorted.
func (c *StubConn) BucketNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.Buckets))
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn. Only the context fast paths are supported.
func (c *StubConn) Prepare(string) (driver.Stmt, error) {
	return nil, fmt.Errorf("prepare not supported")
}

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	c.inTx = true
	c.pending = make(map[string][]byte)
	return stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext for CREATE TABLE and the
// bucket upsert.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	stmt := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(stmt, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(stmt, "INSERT INTO STATE"):
		if len(args) != 2 {
			return nil, fmt.Errorf("upsert expects 2 args, got %d", len(args))
		}
		bucket, _ := args[0].Value.(string)
		payload, _ := args[1].Value.([]byte)
		if c.inTx {
			c.pending[bucket] = payload
		} else {
			c.Buckets[bucket] = payload
		}
		return driver.RowsAffected(1), nil
	}
	return nil, fmt.Errorf("unsupported statement: %s", query)
}

// QueryContext implements driver.QueryerContext for SELECT bucket, payload.
func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailQuery {
		return nil, fmt.Errorf("query fail")
	}
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT BUCKET, PAYLOAD FROM STATE") {
		return nil, fmt.Errorf("unsupported query: %s", query)
	}
	rows := &stubRows{err: c.RowsErr}
	for _, name := range slices.Sorted(maps.Keys(c.Buckets)) {
		rows.rows = append(rows.rows, []driver.Value{name, c.Buckets[name]})
	}
	return rows, nil
}

type stubTx struct{ conn *StubConn }

func (t stubTx) Commit() error {
	c := t.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.endTx()
	if c.FailCommit {
		return fmt.Errorf("commit fail")
	}
	maps.Copy(c.Buckets, c.pending)
	return nil
}

func (t stubTx) Rollback() error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	t.conn.endTx()
	return nil
}

func (c *StubConn) endTx() {
	c.inTx = false
	c.pending = nil
}

type stubRows struct {
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return []string{"bucket", "payload"} }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}
