package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/authcore/internal/store"
)

// collection implements store.RawCollection over one JSONB document table.
// Each table has the shape (id UUID PRIMARY KEY, doc JSONB, created_at,
// updated_at); filters are JSONB containment, updates are JSONB merges.
type collection struct {
	db    *DB
	table string
}

var _ store.RawCollection = (*collection)(nil)

func (c *collection) InsertOne(ctx context.Context, sess store.Session, id uuid.UUID, doc []byte, createdAt, updatedAt time.Time) error {
	q, err := c.db.querier(sess)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, doc, created_at, updated_at)
		VALUES ($1, $2::jsonb, $3, $4)
	`, c.table)

	if _, err := q.Exec(ctx, query, id, doc, createdAt, updatedAt); err != nil {
		return mapPostgresError(c.table, err)
	}

	log.Debug().
		Str("collection", c.table).
		Str("id", id.String()).
		Msg("Inserted document")

	return nil
}

func (c *collection) FindOne(ctx context.Context, sess store.Session, filter []byte) ([]byte, error) {
	q, err := c.db.querier(sess)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT doc FROM %s
		WHERE doc @> $1::jsonb
		ORDER BY created_at, id
		LIMIT 1
	`, c.table)

	var doc []byte
	if err := q.QueryRow(ctx, query, filter).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, mapPostgresError(c.table, err)
	}

	return doc, nil
}

func (c *collection) Find(ctx context.Context, sess store.Session, filter []byte) ([][]byte, error) {
	q, err := c.db.querier(sess)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT doc FROM %s
		WHERE doc @> $1::jsonb
		ORDER BY created_at, id
	`, c.table)

	rows, err := q.Query(ctx, query, filter)
	if err != nil {
		return nil, mapPostgresError(c.table, err)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan %s document: %w", c.table, err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s documents: %w", c.table, err)
	}

	return docs, nil
}

// FindOneAndUpdate merges update into the oldest document matching filter and
// returns the post-update document. The matched row is locked for the
// duration of the statement so the read-modify-write is atomic.
func (c *collection) FindOneAndUpdate(ctx context.Context, sess store.Session, filter, update []byte, updatedAt time.Time) ([]byte, error) {
	q, err := c.db.querier(sess)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		UPDATE %s SET doc = doc || $2::jsonb, updated_at = $3
		WHERE id = (
			SELECT id FROM %s
			WHERE doc @> $1::jsonb
			ORDER BY created_at, id
			LIMIT 1
			FOR UPDATE
		)
		RETURNING doc
	`, c.table, c.table)

	var doc []byte
	if err := q.QueryRow(ctx, query, filter, update, updatedAt).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, mapPostgresError(c.table, err)
	}

	log.Debug().
		Str("collection", c.table).
		Msg("Updated document")

	return doc, nil
}

func (c *collection) DeleteOne(ctx context.Context, sess store.Session, id uuid.UUID) error {
	q, err := c.db.querier(sess)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, c.table)

	tag, err := q.Exec(ctx, query, id)
	if err != nil {
		return mapPostgresError(c.table, err)
	}

	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	log.Debug().
		Str("collection", c.table).
		Str("id", id.String()).
		Msg("Deleted document")

	return nil
}

func (c *collection) DeleteMany(ctx context.Context, sess store.Session, filter []byte) (int64, error) {
	q, err := c.db.querier(sess)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE doc @> $1::jsonb`, c.table)

	tag, err := q.Exec(ctx, query, filter)
	if err != nil {
		return 0, mapPostgresError(c.table, err)
	}

	return tag.RowsAffected(), nil
}

func (c *collection) Count(ctx context.Context, sess store.Session, filter []byte) (int64, error) {
	q, err := c.db.querier(sess)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT count(*) FROM %s WHERE doc @> $1::jsonb`, c.table)

	var count int64
	if err := q.QueryRow(ctx, query, filter).Scan(&count); err != nil {
		return 0, mapPostgresError(c.table, err)
	}

	return count, nil
}
