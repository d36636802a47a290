package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfeidau/authcore/internal/store"
)

const defaultTxTimeout = 10 * time.Second

// DB implements store.Datastore on PostgreSQL. Documents live in one JSONB
// table per collection; transactions are pgx transactions exposed to callers
// as opaque sessions.
type DB struct {
	pool      *pgxpool.Pool
	txTimeout time.Duration
}

var _ store.Datastore = (*DB)(nil)

// NewDB wraps an existing connection pool. The pool is shared by all
// collections.
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool, txTimeout: defaultTxTimeout}
}

// Open creates a pool from cfg, verifies connectivity, runs migrations when
// autoMigrate is set, and returns the datastore.
func Open(ctx context.Context, cfg *PoolConfig, autoMigrate bool) (*DB, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if autoMigrate {
		if err := runMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return NewDB(pool), nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

type session struct {
	tx pgx.Tx
}

func (*session) IsSession() {}

// WithinTx opens one transaction, runs fn, and commits iff fn returns nil.
// When the caller's context carries no deadline a default transaction
// timeout is imposed so a stalled transaction cannot hold locks forever;
// partial work is rolled back on any error.
func (d *DB) WithinTx(ctx context.Context, fn func(store.Session) error) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.txTimeout)
		defer cancel()
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	if err := fn(&session{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// WithinSession joins sess when non-nil so nested collaborators share the
// caller's transaction; otherwise it opens one via WithinTx.
func (d *DB) WithinSession(ctx context.Context, sess store.Session, fn func(store.Session) error) error {
	if sess != nil {
		return fn(sess)
	}
	return d.WithinTx(ctx, fn)
}

// WithinSavepoint runs fn inside a nested transaction scope (a savepoint) on
// sess, so a failed statement aborts only the savepoint and the outer
// transaction stays usable. With a nil sess it degrades to WithinTx.
func (d *DB) WithinSavepoint(ctx context.Context, sess store.Session, fn func(store.Session) error) error {
	if sess == nil {
		return d.WithinTx(ctx, fn)
	}

	tx, err := txOf(sess)
	if err != nil {
		return err
	}

	nested, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}
	defer nested.Rollback(ctx) //nolint:errcheck // rollback is safe to call after commit

	if err := fn(&session{tx: nested}); err != nil {
		return err
	}

	if err := nested.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}

	return nil
}

// Collection returns the raw JSONB collection backed by the table of the
// same name. Collection names come from the store package constants and are
// created by migrations.
func (d *DB) Collection(name string) store.RawCollection {
	return &collection{db: d, table: name}
}

// querier is satisfied by both the pool and a transaction, so collection
// operations run against whichever the session dictates.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (d *DB) querier(sess store.Session) (querier, error) {
	if sess == nil {
		return d.pool, nil
	}
	tx, err := txOf(sess)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func txOf(sess store.Session) (pgx.Tx, error) {
	s, ok := sess.(*session)
	if !ok {
		return nil, fmt.Errorf("session %T does not belong to this datastore", sess)
	}
	return s.tx, nil
}
