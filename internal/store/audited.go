package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/authcore/internal/models"
	"github.com/wolfeidau/authcore/internal/telemetry"
)

// AuditedCollection wraps a collection so every mutation writes exactly one
// audit record per affected document, in the same transaction as the
// mutation. The business mutation and its audit record are never visible
// independently: both commit or neither does.
//
// The audit ledger itself (and the security audit ledger) live outside the
// audit boundary and use a plain Collection.
type AuditedCollection[T Document] struct {
	ds    Datastore
	col   *Collection[T]
	audit *Collection[*models.AuditRecord]
}

// NewAuditedCollection binds an audited typed collection to the named raw
// collection, writing its audit trail to the audit records collection.
func NewAuditedCollection[T Document](ds Datastore, name string) *AuditedCollection[T] {
	return &AuditedCollection[T]{
		ds:    ds,
		col:   NewCollection[T](ds, name),
		audit: NewCollection[*models.AuditRecord](ds, CollectionAuditRecords),
	}
}

// Name returns the underlying collection name.
func (a *AuditedCollection[T]) Name() string { return a.col.Name() }

// InsertOne stores doc and writes a create audit record atomically.
func (a *AuditedCollection[T]) InsertOne(ctx context.Context, sess Session, doc T, actx models.AuditContext) (T, error) {
	var out T
	err := a.ds.WithinSession(ctx, sess, func(sess Session) error {
		var err error
		out, err = a.col.InsertOne(ctx, sess, doc)
		if err != nil {
			return err
		}
		return a.writeAudit(ctx, sess, out.DocID(), models.AuditActionCreate, actx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// FindOne returns the first document matching filter. Reads are not audited.
func (a *AuditedCollection[T]) FindOne(ctx context.Context, sess Session, filter Filter) (T, error) {
	return a.col.FindOne(ctx, sess, filter)
}

// Find returns all documents matching filter. Reads are not audited.
func (a *AuditedCollection[T]) Find(ctx context.Context, sess Session, filter Filter) ([]T, error) {
	return a.col.Find(ctx, sess, filter)
}

// Count returns the number of documents matching filter.
func (a *AuditedCollection[T]) Count(ctx context.Context, sess Session, filter Filter) (int64, error) {
	return a.col.Count(ctx, sess, filter)
}

// FindOneAndUpdate atomically updates the first match and writes an update
// audit record in the same transaction.
func (a *AuditedCollection[T]) FindOneAndUpdate(ctx context.Context, sess Session, filter Filter, update Update, actx models.AuditContext) (T, error) {
	var out T
	err := a.ds.WithinSession(ctx, sess, func(sess Session) error {
		var err error
		out, err = a.col.FindOneAndUpdate(ctx, sess, filter, update)
		if err != nil {
			return err
		}
		return a.writeAudit(ctx, sess, out.DocID(), models.AuditActionUpdate, actx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// UpsertOne inserts or updates and writes a single update audit record.
// Callers treat upsert as idempotent convergence, so the insert path is
// recorded as an update too.
func (a *AuditedCollection[T]) UpsertOne(ctx context.Context, sess Session, filter Filter, update Update, actx models.AuditContext) (T, error) {
	var out T
	err := a.ds.WithinSession(ctx, sess, func(sess Session) error {
		var err error
		out, err = a.col.UpsertOne(ctx, sess, filter, update)
		if err != nil {
			return err
		}
		return a.writeAudit(ctx, sess, out.DocID(), models.AuditActionUpdate, actx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// DeleteOne deletes the document with the given id and writes a delete audit
// record atomically. Returns ErrNotFound when the document does not exist.
func (a *AuditedCollection[T]) DeleteOne(ctx context.Context, sess Session, id uuid.UUID, actx models.AuditContext) error {
	return a.ds.WithinSession(ctx, sess, func(sess Session) error {
		if err := a.col.DeleteOne(ctx, sess, id); err != nil {
			return err
		}
		return a.writeAudit(ctx, sess, id, models.AuditActionDelete, actx)
	})
}

// DeleteMany deletes every document matching filter, writing one delete audit
// record per deleted document. If another writer removes a matched document
// between the read and the delete, the count mismatch is reported as
// ErrNotFound and the whole transaction rolls back.
func (a *AuditedCollection[T]) DeleteMany(ctx context.Context, sess Session, filter Filter, actx models.AuditContext) (int64, error) {
	var deleted int64
	err := a.ds.WithinSession(ctx, sess, func(sess Session) error {
		docs, err := a.col.Find(ctx, sess, filter)
		if err != nil {
			return err
		}

		deleted, err = a.col.DeleteMany(ctx, sess, filter)
		if err != nil {
			return err
		}

		if deleted != int64(len(docs)) {
			return fmt.Errorf("%w: %s: expected to delete %d documents, deleted %d",
				ErrNotFound, a.col.Name(), len(docs), deleted)
		}

		for _, doc := range docs {
			if err := a.writeAudit(ctx, sess, doc.DocID(), models.AuditActionDelete, actx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func (a *AuditedCollection[T]) writeAudit(ctx context.Context, sess Session, entityID uuid.UUID, action models.AuditAction, actx models.AuditContext) error {
	record := &models.AuditRecord{
		EntityID:   entityID,
		EntityType: a.col.Name(),
		Action:     action,
		Context:    actx,
	}

	if _, err := a.audit.InsertOne(ctx, sess, record); err != nil {
		return fmt.Errorf("failed to write audit record for %s %s: %w", a.col.Name(), entityID, err)
	}

	telemetry.GetMetrics().AuditRecordsTotal.Add(ctx, 1)

	log.Debug().
		Str("entity_type", a.col.Name()).
		Str("entity_id", entityID.String()).
		Str("action", string(action)).
		Bool("system", actx.System).
		Msg("Wrote audit record")

	return nil
}
