package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn runs statements in one dialect and records their statistics.
type Conn struct {
	ExecQuerier
	dialect string
	stats   *QueryStats
}

// Exec rebinds and executes a statement.
func (c Conn) Exec(ctx context.Context, query string, args ...any) error {
	start := time.Now()
	_, err := c.ExecContext(ctx, rebind(c.dialect, query), args...)
	c.stats.record(ctx, query, start, err, false)
	if err != nil {
		return fmt.Errorf("export: exec: %w", err)
	}
	return nil
}

// Query rebinds and runs a query. The caller closes the rows.
func (c Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := c.QueryContext(ctx, rebind(c.dialect, query), args...)
	c.stats.record(ctx, query, start, err, true)
	if err != nil {
		return nil, fmt.Errorf("export: query: %w", err)
	}
	return rows, nil
}

// Driver is a database handle bound to one dialect.
type Driver struct {
	Conn
}

// Option configures a Driver.
type Option func(*Driver)

// WithSlowThreshold sets the duration above which a statement is logged
// as slow. Default is 100ms.
func WithSlowThreshold(d time.Duration) Option {
	return func(drv *Driver) {
		drv.stats.slowThreshold = d
	}
}

// Open opens a database of the given dialect.
func Open(dialect, source string, opts ...Option) (*Driver, error) {
	if !slices.Contains(Dialects(), dialect) {
		return nil, fmt.Errorf("export: unknown dialect %q; use one of %s", dialect, strings.Join(Dialects(), ", "))
	}
	db, err := sql.Open(dialect, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(dialect, db, opts...), nil
}

// OpenDB wraps the given database/sql.DB with a Driver.
func OpenDB(dialect string, db *sql.DB, opts ...Option) *Driver {
	d := &Driver{Conn: Conn{ExecQuerier: db, dialect: dialect, stats: newQueryStats()}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DB returns the underlying *sql.DB instance.
func (d *Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect returns the dialect name.
func (d *Driver) Dialect() string { return d.dialect }

// QueryStats returns the statistics of every statement run so far.
func (d *Driver) QueryStats() *QueryStats { return d.stats }

// Tx starts a transaction. Its statements share the driver statistics.
func (d *Driver) Tx(ctx context.Context) (*Tx, error) {
	tx, err := d.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("export: begin: %w", err)
	}
	return &Tx{Conn: Conn{ExecQuerier: tx, dialect: d.dialect, stats: d.stats}, tx: tx}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx is a transaction bound to one dialect.
type Tx struct {
	Conn
	tx *sql.Tx
}

// Commit commits the transaction.
func (tx *Tx) Commit() error { return tx.tx.Commit() }

// Rollback aborts the transaction. It joins the cause, if any, so the
// caller can return one error.
func (tx *Tx) Rollback(cause error) error {
	if err := tx.tx.Rollback(); err != nil {
		return errors.Join(cause, fmt.Errorf("export: rollback: %w", err))
	}
	return cause
}
