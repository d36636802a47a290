package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for common error conditions
var (
	ErrNotFound = errors.New("document not found")
	ErrConflict = errors.New("unique index conflict")
	ErrEncoding = errors.New("document failed validation")
)

// Collection names owned by this core. These are the only durable formats the
// engine persists.
const (
	CollectionRoleAssignments      = "role_assignments"
	CollectionAPIKeys              = "api_keys"
	CollectionAccounts             = "accounts"
	CollectionOrganizations        = "organizations"
	CollectionAuditRecords         = "audit_records"
	CollectionSecurityAuditRecords = "security_audit_records"
)

// UniqueIndexes lists the unique document indexes every backend must enforce,
// keyed by collection. A missing field participates in the index as the empty
// string so global role assignments (no organization_id) collide with each
// other rather than being treated as distinct.
var UniqueIndexes = map[string][][]string{
	CollectionRoleAssignments: {{"type", "principal_id", "principal_type", "organization_id", "role"}},
	CollectionAPIKeys:         {{"secret"}},
	CollectionAccounts:        {{"external_id"}},
}

// Document is implemented by every stored entity type. The store stamps ids
// and timestamps through these accessors and refuses documents whose
// Validate fails before they ever reach storage.
type Document interface {
	DocID() uuid.UUID
	SetDocID(uuid.UUID)
	SetCreatedAt(time.Time)
	SetUpdatedAt(time.Time)
	Validate() error
}

// Filter selects documents by field equality (JSONB containment on the
// Postgres backend). An empty filter matches every document.
type Filter map[string]any

// Update names the fields to merge into a matched document.
type Update map[string]any

// Session is an opaque handle to an open transaction. A nil Session passed to
// any mutating operation makes the operation open (and commit) its own
// transaction; a non-nil Session joins the caller's transaction so nested
// collaborators commit or roll back together.
type Session interface {
	IsSession()
}

// RawCollection is the backend contract for one collection of JSON documents.
// Filters and updates arrive as marshaled JSON objects; documents are stored
// and returned as raw JSON. Typed access sits on top in Collection.
type RawCollection interface {
	InsertOne(ctx context.Context, sess Session, id uuid.UUID, doc []byte, createdAt, updatedAt time.Time) error
	FindOne(ctx context.Context, sess Session, filter []byte) ([]byte, error)
	Find(ctx context.Context, sess Session, filter []byte) ([][]byte, error)
	// FindOneAndUpdate atomically merges update into the first document
	// matching filter and returns the post-update document.
	FindOneAndUpdate(ctx context.Context, sess Session, filter, update []byte, updatedAt time.Time) ([]byte, error)
	DeleteOne(ctx context.Context, sess Session, id uuid.UUID) error
	DeleteMany(ctx context.Context, sess Session, filter []byte) (int64, error)
	Count(ctx context.Context, sess Session, filter []byte) (int64, error)
}

// Datastore is the transactional document store backing the engine. Backends
// provide multi-document ACID transactions, unique indexes and atomic
// find-and-update.
type Datastore interface {
	// WithinTx opens a transaction, runs fn, and commits iff fn returns nil.
	WithinTx(ctx context.Context, fn func(Session) error) error

	// WithinSession joins sess when non-nil, otherwise behaves as WithinTx.
	WithinSession(ctx context.Context, sess Session, fn func(Session) error) error

	// WithinSavepoint runs fn in a nested transaction scope on sess so a
	// failed statement can be retried without aborting the outer transaction.
	WithinSavepoint(ctx context.Context, sess Session, fn func(Session) error) error

	// Collection returns the raw document collection with the given name.
	Collection(name string) RawCollection
}
