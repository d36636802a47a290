package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Collection provides typed access to one raw document collection. It stamps
// ids (UUIDv7) and timestamps, validates documents before they reach storage,
// and round-trips entities through JSON.
type Collection[T Document] struct {
	ds   Datastore
	raw  RawCollection
	name string
}

// NewCollection binds a typed collection to the named raw collection.
func NewCollection[T Document](ds Datastore, name string) *Collection[T] {
	return &Collection[T]{ds: ds, raw: ds.Collection(name), name: name}
}

// Name returns the collection name, used as the entity type in audit records.
func (c *Collection[T]) Name() string { return c.name }

// InsertOne validates and stores doc, assigning an id if none is set.
// Returns the stored document. A document failing validation never reaches
// storage and is reported as ErrEncoding.
func (c *Collection[T]) InsertOne(ctx context.Context, sess Session, doc T) (T, error) {
	var zero T
	if err := doc.Validate(); err != nil {
		return zero, fmt.Errorf("%w: %s: %s", ErrEncoding, c.name, err)
	}

	now := time.Now().UTC()
	if doc.DocID() == uuid.Nil {
		doc.SetDocID(uuid.Must(uuid.NewV7()))
	}
	doc.SetCreatedAt(now)
	doc.SetUpdatedAt(now)

	raw, err := json.Marshal(doc)
	if err != nil {
		return zero, fmt.Errorf("failed to encode %s document: %w", c.name, err)
	}

	if err := c.raw.InsertOne(ctx, sess, doc.DocID(), raw, now, now); err != nil {
		return zero, err
	}

	return doc, nil
}

// FindOne returns the first document matching filter, or ErrNotFound.
func (c *Collection[T]) FindOne(ctx context.Context, sess Session, filter Filter) (T, error) {
	var zero T
	fb, err := marshalFilter(c.name, filter)
	if err != nil {
		return zero, err
	}

	raw, err := c.raw.FindOne(ctx, sess, fb)
	if err != nil {
		return zero, err
	}

	return c.decode(raw)
}

// Find returns all documents matching filter, oldest first.
func (c *Collection[T]) Find(ctx context.Context, sess Session, filter Filter) ([]T, error) {
	fb, err := marshalFilter(c.name, filter)
	if err != nil {
		return nil, err
	}

	raws, err := c.raw.Find(ctx, sess, fb)
	if err != nil {
		return nil, err
	}

	docs := make([]T, 0, len(raws))
	for _, raw := range raws {
		doc, err := c.decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// FindOneAndUpdate atomically merges update into the first document matching
// filter, refreshing updated_at, and returns the post-update document.
// Returns ErrNotFound if nothing matches.
func (c *Collection[T]) FindOneAndUpdate(ctx context.Context, sess Session, filter Filter, update Update) (T, error) {
	var zero T
	fb, err := marshalFilter(c.name, filter)
	if err != nil {
		return zero, err
	}

	now := time.Now().UTC()
	merged := make(map[string]any, len(update)+1)
	for k, v := range update {
		merged[k] = v
	}
	merged["updated_at"] = now

	ub, err := json.Marshal(merged)
	if err != nil {
		return zero, fmt.Errorf("failed to encode %s update: %w", c.name, err)
	}

	raw, err := c.raw.FindOneAndUpdate(ctx, sess, fb, ub, now)
	if err != nil {
		return zero, err
	}

	return c.decode(raw)
}

// UpsertOne updates the first document matching filter or, when none exists,
// inserts a document assembled from filter plus update. created_at is only
// stamped on the insert path. The insert attempt is savepoint-scoped: when a
// concurrent upsert wins the race to insert, the unique-index conflict is
// absorbed and the update is re-applied to the winner's document, so both
// callers converge on the same entity.
func (c *Collection[T]) UpsertOne(ctx context.Context, sess Session, filter Filter, update Update) (T, error) {
	var out T
	err := c.ds.WithinSession(ctx, sess, func(sess Session) error {
		doc, err := c.FindOneAndUpdate(ctx, sess, filter, update)
		if err == nil {
			out = doc
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		merged := make(map[string]any, len(filter)+len(update))
		for k, v := range filter {
			merged[k] = v
		}
		for k, v := range update {
			merged[k] = v
		}

		b, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to encode %s upsert document: %w", c.name, err)
		}

		doc, err = c.decode(b)
		if err != nil {
			return err
		}

		insErr := c.ds.WithinSavepoint(ctx, sess, func(sess Session) error {
			var err error
			out, err = c.InsertOne(ctx, sess, doc)
			return err
		})
		if insErr == nil {
			return nil
		}
		if !errors.Is(insErr, ErrConflict) {
			return insErr
		}

		out, err = c.FindOneAndUpdate(ctx, sess, filter, update)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// DeleteOne deletes the document with the given id, or returns ErrNotFound.
func (c *Collection[T]) DeleteOne(ctx context.Context, sess Session, id uuid.UUID) error {
	return c.raw.DeleteOne(ctx, sess, id)
}

// DeleteMany deletes every document matching filter and returns the count.
func (c *Collection[T]) DeleteMany(ctx context.Context, sess Session, filter Filter) (int64, error) {
	fb, err := marshalFilter(c.name, filter)
	if err != nil {
		return 0, err
	}
	return c.raw.DeleteMany(ctx, sess, fb)
}

// Count returns the number of documents matching filter.
func (c *Collection[T]) Count(ctx context.Context, sess Session, filter Filter) (int64, error) {
	fb, err := marshalFilter(c.name, filter)
	if err != nil {
		return 0, err
	}
	return c.raw.Count(ctx, sess, fb)
}

func (c *Collection[T]) decode(raw []byte) (T, error) {
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode %s document: %w", c.name, err)
	}
	return doc, nil
}

func marshalFilter(name string, filter Filter) ([]byte, error) {
	if filter == nil {
		filter = Filter{}
	}
	b, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s filter: %w", name, err)
	}
	return b, nil
}
