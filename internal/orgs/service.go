// Package orgs manages organizations, including the cascading delete that
// removes an organization's role assignments alongside it.
package orgs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/authcore/internal/models"
	"github.com/wolfeidau/authcore/internal/store"
)

// DeleteHook runs inside the organization delete transaction, after the
// organization and its role assignments are removed. Hooks clean up dependent
// resources owned by the composing service; a hook error aborts the whole
// delete.
type DeleteHook interface {
	OnOrganizationDelete(ctx context.Context, sess store.Session, org *models.Organization, actx models.AuditContext) error
}

// Service manages the organization lifecycle.
type Service struct {
	ds    store.Datastore
	orgs  *store.AuditedCollection[*models.Organization]
	roles *store.RoleStore
	hooks []DeleteHook
}

// NewService creates an organization service. hooks run in order during
// delete.
func NewService(ds store.Datastore, roles *store.RoleStore, hooks ...DeleteHook) *Service {
	return &Service{
		ds:    ds,
		orgs:  store.NewAuditedCollection[*models.Organization](ds, store.CollectionOrganizations),
		roles: roles,
		hooks: hooks,
	}
}

// Create stores a new organization.
func (s *Service) Create(ctx context.Context, name string, actx models.AuditContext) (*models.Organization, error) {
	return s.orgs.InsertOne(ctx, nil, &models.Organization{Name: name}, actx)
}

// Get returns the organization with the given id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return s.orgs.FindOne(ctx, nil, store.Filter{"id": id})
}

// List returns all organizations.
func (s *Service) List(ctx context.Context) ([]*models.Organization, error) {
	return s.orgs.Find(ctx, nil, store.Filter{})
}

// DeleteResult reports what the delete cascade removed.
type DeleteResult struct {
	RolesDeleted int64
}

// Delete removes the organization, every role assignment scoped to it, and
// runs the registered delete hooks, all in one transaction. Each removed
// document gets its own audit record. Any failure, including a hook error,
// rolls the entire cascade back.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actx models.AuditContext) (*DeleteResult, error) {
	result := &DeleteResult{}
	err := s.ds.WithinTx(ctx, func(sess store.Session) error {
		org, err := s.orgs.FindOne(ctx, sess, store.Filter{"id": id})
		if err != nil {
			return err
		}

		result.RolesDeleted, err = s.roles.DeleteByOrganization(ctx, sess, id, actx)
		if err != nil {
			return err
		}

		if err := s.orgs.DeleteOne(ctx, sess, id, actx); err != nil {
			return err
		}

		for _, hook := range s.hooks {
			if err := hook.OnOrganizationDelete(ctx, sess, org, actx); err != nil {
				return fmt.Errorf("organization delete hook failed for %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("organization_id", id.String()).
		Int64("roles_deleted", result.RolesDeleted).
		Msg("Deleted organization")

	return result, nil
}
