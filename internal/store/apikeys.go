package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/wolfeidau/authcore/internal/models"
)

// APIKeyStore persists issued API keys. The secret is globally unique;
// revocation is a logical disable so the key's history survives, though hard
// deletion is also supported.
type APIKeyStore struct {
	col *AuditedCollection[*models.APIKey]
}

// NewAPIKeyStore creates an API key store backed by ds.
func NewAPIKeyStore(ds Datastore) *APIKeyStore {
	return &APIKeyStore{col: NewAuditedCollection[*models.APIKey](ds, CollectionAPIKeys)}
}

// Insert stores a new key. A duplicate secret surfaces as ErrConflict.
func (s *APIKeyStore) Insert(ctx context.Context, sess Session, key *models.APIKey, actx models.AuditContext) (*models.APIKey, error) {
	return s.col.InsertOne(ctx, sess, key, actx)
}

// Get returns the key with the given id.
func (s *APIKeyStore) Get(ctx context.Context, id uuid.UUID) (*models.APIKey, error) {
	return s.col.FindOne(ctx, nil, Filter{"id": id})
}

// FindBySecret returns the active (not disabled) key with the given secret.
// This is the per-request lookup used by principal resolution.
func (s *APIKeyStore) FindBySecret(ctx context.Context, secret string) (*models.APIKey, error) {
	return s.col.FindOne(ctx, nil, Filter{"secret": secret, "disabled": false})
}

// List returns all keys.
func (s *APIKeyStore) List(ctx context.Context) ([]*models.APIKey, error) {
	return s.col.Find(ctx, nil, Filter{})
}

// FindByScope returns keys bound to the given scope, for example every key
// scoped to one organization.
func (s *APIKeyStore) FindByScope(ctx context.Context, sess Session, scope models.APIKeyScope) ([]*models.APIKey, error) {
	return s.col.Find(ctx, sess, Filter{"scope": scope})
}

// Disable logically revokes a key, leaving the record in place.
func (s *APIKeyStore) Disable(ctx context.Context, sess Session, id uuid.UUID, actx models.AuditContext) (*models.APIKey, error) {
	return s.col.FindOneAndUpdate(ctx, sess, Filter{"id": id}, Update{"disabled": true}, actx)
}

// Enable reinstates a disabled key.
func (s *APIKeyStore) Enable(ctx context.Context, sess Session, id uuid.UUID, actx models.AuditContext) (*models.APIKey, error) {
	return s.col.FindOneAndUpdate(ctx, sess, Filter{"id": id}, Update{"disabled": false}, actx)
}

// Delete removes a key entirely.
func (s *APIKeyStore) Delete(ctx context.Context, sess Session, id uuid.UUID, actx models.AuditContext) error {
	return s.col.DeleteOne(ctx, sess, id, actx)
}
