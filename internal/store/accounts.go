package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/wolfeidau/authcore/internal/models"
)

// AccountStore persists accounts provisioned from the external identity
// provider, keyed by the provider's verified user id.
type AccountStore struct {
	col *AuditedCollection[*models.Account]
}

// NewAccountStore creates an account store backed by ds.
func NewAccountStore(ds Datastore) *AccountStore {
	return &AccountStore{col: NewAuditedCollection[*models.Account](ds, CollectionAccounts)}
}

// Upsert is the idempotent insert-or-fetch used for first-seen account
// provisioning. The external id unique index makes concurrent provisioning
// of the same identity converge on one account.
func (s *AccountStore) Upsert(ctx context.Context, sess Session, externalID string, actx models.AuditContext) (*models.Account, error) {
	return s.col.UpsertOne(ctx, sess, Filter{"external_id": externalID}, Update{}, actx)
}

// Get returns the account with the given id.
func (s *AccountStore) Get(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.col.FindOne(ctx, nil, Filter{"id": id})
}

// FindByExternalID returns the account provisioned for an identity-provider
// user id.
func (s *AccountStore) FindByExternalID(ctx context.Context, externalID string) (*models.Account, error) {
	return s.col.FindOne(ctx, nil, Filter{"external_id": externalID})
}
