package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfeidau/authcore/internal/store"
)

// collection implements store.RawCollection over the in-memory document
// maps. Filter matching is top-level field equality, mirroring the JSONB
// containment queries of the Postgres backend; the unique indexes declared
// in store.UniqueIndexes are enforced on every write.
type collection struct {
	db   *DB
	name string
}

var _ store.RawCollection = (*collection)(nil)

func (c *collection) InsertOne(ctx context.Context, sess store.Session, id uuid.UUID, doc []byte, createdAt, updatedAt time.Time) error {
	unlock := c.lockIfUnsessioned(sess)
	defer unlock()

	docs := c.db.docsLocked(c.name)
	if _, exists := docs[id]; exists {
		return fmt.Errorf("%w: %s: duplicate id %s", store.ErrConflict, c.name, id)
	}

	fields, err := decodeDoc(c.name, doc)
	if err != nil {
		return err
	}

	if err := c.checkUniqueLocked(docs, id, fields); err != nil {
		return err
	}

	docs[id] = doc
	return nil
}

func (c *collection) FindOne(ctx context.Context, sess store.Session, filter []byte) ([]byte, error) {
	unlock := c.lockIfUnsessioned(sess)
	defer unlock()

	matched, err := c.matchLocked(filter)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, store.ErrNotFound
	}
	return matched[0].raw, nil
}

func (c *collection) Find(ctx context.Context, sess store.Session, filter []byte) ([][]byte, error) {
	unlock := c.lockIfUnsessioned(sess)
	defer unlock()

	matched, err := c.matchLocked(filter)
	if err != nil {
		return nil, err
	}

	raws := make([][]byte, 0, len(matched))
	for _, m := range matched {
		raws = append(raws, m.raw)
	}
	return raws, nil
}

func (c *collection) FindOneAndUpdate(ctx context.Context, sess store.Session, filter, update []byte, _ time.Time) ([]byte, error) {
	unlock := c.lockIfUnsessioned(sess)
	defer unlock()

	matched, err := c.matchLocked(filter)
	if err != nil {
		return nil, err
	}
	if len(matched) == 0 {
		return nil, store.ErrNotFound
	}

	target := matched[0]
	var updates map[string]any
	if err := json.Unmarshal(update, &updates); err != nil {
		return nil, fmt.Errorf("failed to decode %s update: %w", c.name, err)
	}
	for k, v := range updates {
		target.fields[k] = v
	}

	docs := c.db.docsLocked(c.name)
	if err := c.checkUniqueLocked(docs, target.id, target.fields); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(target.fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s document: %w", c.name, err)
	}

	docs[target.id] = raw
	return raw, nil
}

func (c *collection) DeleteOne(ctx context.Context, sess store.Session, id uuid.UUID) error {
	unlock := c.lockIfUnsessioned(sess)
	defer unlock()

	docs := c.db.docsLocked(c.name)
	if _, ok := docs[id]; !ok {
		return store.ErrNotFound
	}
	delete(docs, id)
	return nil
}

func (c *collection) DeleteMany(ctx context.Context, sess store.Session, filter []byte) (int64, error) {
	unlock := c.lockIfUnsessioned(sess)
	defer unlock()

	matched, err := c.matchLocked(filter)
	if err != nil {
		return 0, err
	}

	docs := c.db.docsLocked(c.name)
	for _, m := range matched {
		delete(docs, m.id)
	}
	return int64(len(matched)), nil
}

func (c *collection) Count(ctx context.Context, sess store.Session, filter []byte) (int64, error) {
	unlock := c.lockIfUnsessioned(sess)
	defer unlock()

	matched, err := c.matchLocked(filter)
	if err != nil {
		return 0, err
	}
	return int64(len(matched)), nil
}

// lockIfUnsessioned takes the datastore lock for standalone operations.
// Operations inside a session already hold it via WithinTx.
func (c *collection) lockIfUnsessioned(sess store.Session) func() {
	if sess != nil {
		return func() {}
	}
	c.db.mu.Lock()
	return c.db.mu.Unlock
}

type matchedDoc struct {
	id     uuid.UUID
	raw    []byte
	fields map[string]any
}

// matchLocked returns all documents matching filter, oldest first.
func (c *collection) matchLocked(filter []byte) ([]matchedDoc, error) {
	var conditions map[string]any
	if err := json.Unmarshal(filter, &conditions); err != nil {
		return nil, fmt.Errorf("failed to decode %s filter: %w", c.name, err)
	}

	var matched []matchedDoc
	for id, raw := range c.db.docsLocked(c.name) {
		fields, err := decodeDoc(c.name, raw)
		if err != nil {
			return nil, err
		}

		if !matches(fields, conditions) {
			continue
		}
		matched = append(matched, matchedDoc{id: id, raw: raw, fields: fields})
	}

	// Fractional seconds are serialized with trailing zeros trimmed, so
	// created_at strings must be parsed, not compared lexicographically.
	sort.Slice(matched, func(i, j int) bool {
		ci := createdAt(matched[i].fields)
		cj := createdAt(matched[j].fields)
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return matched[i].id.String() < matched[j].id.String()
	})

	return matched, nil
}

func createdAt(fields map[string]any) time.Time {
	s, _ := fields["created_at"].(string)
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func matches(fields map[string]any, conditions map[string]any) bool {
	for k, want := range conditions {
		got, ok := fields[k]
		if !ok {
			return false
		}
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// checkUniqueLocked enforces the collection's declared unique indexes
// against the candidate document, excluding the document itself.
func (c *collection) checkUniqueLocked(docs map[uuid.UUID][]byte, selfID uuid.UUID, fields map[string]any) error {
	indexes := store.UniqueIndexes[c.name]
	if len(indexes) == 0 {
		return nil
	}

	for _, index := range indexes {
		candidate := indexKey(fields, index)
		for id, raw := range docs {
			if id == selfID {
				continue
			}
			existing, err := decodeDoc(c.name, raw)
			if err != nil {
				return err
			}
			if indexKey(existing, index) == candidate {
				return fmt.Errorf("%w: %s: duplicate (%s)", store.ErrConflict, c.name, strings.Join(index, ", "))
			}
		}
	}
	return nil
}

// indexKey folds missing fields onto the empty string, matching the COALESCE
// in the Postgres unique indexes.
func indexKey(fields map[string]any, index []string) string {
	parts := make([]string, 0, len(index))
	for _, f := range index {
		v, ok := fields[f]
		if !ok || v == nil {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, fmt.Sprintf("%v", v))
	}
	return strings.Join(parts, "\x00")
}

func decodeDoc(name string, raw []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode %s document: %w", name, err)
	}
	return fields, nil
}
