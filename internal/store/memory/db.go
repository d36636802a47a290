package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/wolfeidau/authcore/internal/store"
)

// DB implements store.Datastore in memory for testing. A single mutex
// serializes transactions; rollback is a copy-on-write snapshot restore, so
// a failed transaction leaves no partial writes behind.
type DB struct {
	mu          sync.Mutex
	collections map[string]map[uuid.UUID][]byte
}

var _ store.Datastore = (*DB)(nil)

// NewDB creates an empty in-memory datastore.
func NewDB() *DB {
	return &DB{collections: make(map[string]map[uuid.UUID][]byte)}
}

type session struct {
	db *DB
}

func (*session) IsSession() {}

// WithinTx serializes the transaction under the datastore lock, snapshots all
// collections, and restores the snapshot if fn fails.
func (d *DB) WithinTx(ctx context.Context, fn func(store.Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	snapshot := d.snapshotLocked()
	if err := fn(&session{db: d}); err != nil {
		d.collections = snapshot
		return err
	}
	return nil
}

// WithinSession joins sess when non-nil, otherwise opens a transaction.
func (d *DB) WithinSession(ctx context.Context, sess store.Session, fn func(store.Session) error) error {
	if sess != nil {
		return fn(sess)
	}
	return d.WithinTx(ctx, fn)
}

// WithinSavepoint snapshots inside an open transaction so fn can fail
// without aborting the outer transaction's work.
func (d *DB) WithinSavepoint(ctx context.Context, sess store.Session, fn func(store.Session) error) error {
	if sess == nil {
		return d.WithinTx(ctx, fn)
	}

	snapshot := d.snapshotLocked()
	if err := fn(sess); err != nil {
		d.collections = snapshot
		return err
	}
	return nil
}

// Collection returns the named raw collection, creating it on first use.
func (d *DB) Collection(name string) store.RawCollection {
	return &collection{db: d, name: name}
}

// snapshotLocked copies the collection maps. Documents themselves are
// immutable byte slices, replaced rather than mutated, so a shallow copy of
// each map is a full logical snapshot.
func (d *DB) snapshotLocked() map[string]map[uuid.UUID][]byte {
	snapshot := make(map[string]map[uuid.UUID][]byte, len(d.collections))
	for name, docs := range d.collections {
		copied := make(map[uuid.UUID][]byte, len(docs))
		for id, doc := range docs {
			copied[id] = doc
		}
		snapshot[name] = copied
	}
	return snapshot
}

// docsLocked returns the live document map for a collection.
func (d *DB) docsLocked(name string) map[uuid.UUID][]byte {
	docs, ok := d.collections[name]
	if !ok {
		docs = make(map[uuid.UUID][]byte)
		d.collections[name] = docs
	}
	return docs
}
