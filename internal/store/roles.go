package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/wolfeidau/authcore/internal/models"
)

// RoleStore persists role assignments, global and organization scoped, in one
// polymorphic collection. Every query is constrained to the requested
// discriminant so the two role kinds never leak into each other's results.
// Uniqueness of the (type, principal_id, principal_type, organization_id,
// role) tuple is enforced by the backend's unique index; duplicate inserts
// surface as ErrConflict and leave the store unchanged.
type RoleStore struct {
	col *AuditedCollection[*models.RoleAssignment]
}

// NewRoleStore creates a role store backed by ds.
func NewRoleStore(ds Datastore) *RoleStore {
	return &RoleStore{col: NewAuditedCollection[*models.RoleAssignment](ds, CollectionRoleAssignments)}
}

// Insert stores a new role assignment, writing its audit record atomically.
func (s *RoleStore) Insert(ctx context.Context, sess Session, assignment *models.RoleAssignment, actx models.AuditContext) (*models.RoleAssignment, error) {
	return s.col.InsertOne(ctx, sess, assignment, actx)
}

// FindGlobal returns global assignments matching filter.
func (s *RoleStore) FindGlobal(ctx context.Context, sess Session, filter Filter) ([]*models.RoleAssignment, error) {
	return s.col.Find(ctx, sess, withRoleType(filter, models.RoleTypeGlobal))
}

// FindOrganization returns organization assignments matching filter.
func (s *RoleStore) FindOrganization(ctx context.Context, sess Session, filter Filter) ([]*models.RoleAssignment, error) {
	return s.col.Find(ctx, sess, withRoleType(filter, models.RoleTypeOrganization))
}

// FindOneGlobal returns the first global assignment matching filter.
func (s *RoleStore) FindOneGlobal(ctx context.Context, sess Session, filter Filter) (*models.RoleAssignment, error) {
	return s.col.FindOne(ctx, sess, withRoleType(filter, models.RoleTypeGlobal))
}

// GlobalRolesFor returns all global assignments held by a principal.
func (s *RoleStore) GlobalRolesFor(ctx context.Context, principalID uuid.UUID, principalType models.PrincipalType) ([]*models.RoleAssignment, error) {
	return s.FindGlobal(ctx, nil, Filter{
		"principal_id":   principalID,
		"principal_type": principalType,
	})
}

// OrganizationRolesFor returns all assignments a principal holds on one
// organization.
func (s *RoleStore) OrganizationRolesFor(ctx context.Context, principalID uuid.UUID, principalType models.PrincipalType, orgID uuid.UUID) ([]*models.RoleAssignment, error) {
	return s.FindOrganization(ctx, nil, Filter{
		"principal_id":    principalID,
		"principal_type":  principalType,
		"organization_id": orgID,
	})
}

// Delete removes one assignment by id, writing its audit record atomically.
func (s *RoleStore) Delete(ctx context.Context, sess Session, id uuid.UUID, actx models.AuditContext) error {
	return s.col.DeleteOne(ctx, sess, id, actx)
}

// DeleteByOrganization removes every assignment scoped to the organization,
// one audit record per deleted assignment. Used by the organization delete
// cascade; returns the number of assignments removed.
func (s *RoleStore) DeleteByOrganization(ctx context.Context, sess Session, orgID uuid.UUID, actx models.AuditContext) (int64, error) {
	return s.col.DeleteMany(ctx, sess, withRoleType(Filter{"organization_id": orgID}, models.RoleTypeOrganization), actx)
}

func withRoleType(filter Filter, t models.RoleType) Filter {
	out := make(Filter, len(filter)+1)
	for k, v := range filter {
		out[k] = v
	}
	out["type"] = t
	return out
}
