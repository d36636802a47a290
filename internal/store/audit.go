package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/wolfeidau/authcore/internal/models"
)

// AuditStore reads the append-only mutation ledger. Records are only ever
// written through AuditedCollection; there are no update or delete paths.
type AuditStore struct {
	col *Collection[*models.AuditRecord]
}

// NewAuditStore creates an audit ledger reader backed by ds.
func NewAuditStore(ds Datastore) *AuditStore {
	return &AuditStore{col: NewCollection[*models.AuditRecord](ds, CollectionAuditRecords)}
}

// ListByEntity returns every mutation recorded for an entity, oldest first.
func (s *AuditStore) ListByEntity(ctx context.Context, entityID uuid.UUID) ([]*models.AuditRecord, error) {
	return s.col.Find(ctx, nil, Filter{"entity_id": entityID})
}

// List returns all audit records matching filter.
func (s *AuditStore) List(ctx context.Context, filter Filter) ([]*models.AuditRecord, error) {
	return s.col.Find(ctx, nil, filter)
}

// SecurityAuditStore writes and reads the denied-access ledger. Entries are
// append-only and live outside the audit boundary, so writes go through the
// plain collection.
type SecurityAuditStore struct {
	col *Collection[*models.SecurityAuditRecord]
}

// NewSecurityAuditStore creates a security audit store backed by ds.
func NewSecurityAuditStore(ds Datastore) *SecurityAuditStore {
	return &SecurityAuditStore{col: NewCollection[*models.SecurityAuditRecord](ds, CollectionSecurityAuditRecords)}
}

// Record appends one denied-access entry.
func (s *SecurityAuditStore) Record(ctx context.Context, record *models.SecurityAuditRecord) (*models.SecurityAuditRecord, error) {
	return s.col.InsertOne(ctx, nil, record)
}

// ListByPrincipal returns all denial entries recorded for a principal.
func (s *SecurityAuditStore) ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*models.SecurityAuditRecord, error) {
	return s.col.Find(ctx, nil, Filter{"principal_id": principalID})
}
