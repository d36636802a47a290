package orgs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/authcore/internal/models"
	"github.com/wolfeidau/authcore/internal/store"
	"github.com/wolfeidau/authcore/internal/store/memory"
)

type recordingHook struct {
	calls int
	err   error
}

func (h *recordingHook) OnOrganizationDelete(ctx context.Context, sess store.Session, org *models.Organization, actx models.AuditContext) error {
	h.calls++
	return h.err
}

// cleanupHook deletes dependent documents through the delete transaction's
// session, proving hooks run inside it.
type cleanupHook struct {
	keys *store.APIKeyStore
}

func (h *cleanupHook) OnOrganizationDelete(ctx context.Context, sess store.Session, org *models.Organization, actx models.AuditContext) error {
	orgID := org.ID
	keys, err := h.keys.FindByScope(ctx, sess, models.APIKeyScope{
		Type:    models.APIKeyScopeOrganization,
		ScopeID: &orgID,
	})
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := h.keys.Delete(ctx, sess, key.ID, actx); err != nil {
			return err
		}
	}
	return nil
}

func TestService_CreateAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("create then get", func(t *testing.T) {
		db := memory.NewDB()
		svc := NewService(db, store.NewRoleStore(db))

		org, err := svc.Create(ctx, "acme", models.SystemAuditContext())
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, org.ID)

		found, err := svc.Get(ctx, org.ID)
		require.NoError(t, err)
		require.Equal(t, "acme", found.Name)
	})

	t.Run("get missing organization returns not found", func(t *testing.T) {
		db := memory.NewDB()
		svc := NewService(db, store.NewRoleStore(db))

		_, err := svc.Get(ctx, uuid.Must(uuid.NewV7()))
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("delete cascades to role assignments with audit records", func(t *testing.T) {
		db := memory.NewDB()
		roles := store.NewRoleStore(db)
		svc := NewService(db, roles)

		org, err := svc.Create(ctx, "doomed", models.SystemAuditContext())
		require.NoError(t, err)

		assignmentIDs := make([]uuid.UUID, 0, 3)
		for _, role := range []models.Role{models.RoleOwner, models.RoleUser, models.RoleReader} {
			a, err := roles.Insert(ctx, nil,
				models.OrganizationRoleAssignment(uuid.Must(uuid.NewV7()), models.PrincipalTypeAccount, role, org.ID),
				models.SystemAuditContext())
			require.NoError(t, err)
			assignmentIDs = append(assignmentIDs, a.ID)
		}

		// Assignments on another organization must survive.
		survivor, err := roles.Insert(ctx, nil,
			models.OrganizationRoleAssignment(uuid.Must(uuid.NewV7()), models.PrincipalTypeAccount, models.RoleOwner, uuid.Must(uuid.NewV7())),
			models.SystemAuditContext())
		require.NoError(t, err)

		result, err := svc.Delete(ctx, org.ID, models.SystemAuditContext())
		require.NoError(t, err)
		require.Equal(t, int64(3), result.RolesDeleted)

		_, err = svc.Get(ctx, org.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		remaining, err := roles.FindOrganization(ctx, nil, store.Filter{})
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		require.Equal(t, survivor.ID, remaining[0].ID)

		audit := store.NewAuditStore(db)
		for _, id := range assignmentIDs {
			records, err := audit.List(ctx, store.Filter{"entity_id": id, "action": models.AuditActionDelete})
			require.NoError(t, err)
			require.Len(t, records, 1)
		}
		records, err := audit.List(ctx, store.Filter{"entity_id": org.ID, "action": models.AuditActionDelete})
		require.NoError(t, err)
		require.Len(t, records, 1)
	})

	t.Run("delete of missing organization returns not found", func(t *testing.T) {
		db := memory.NewDB()
		svc := NewService(db, store.NewRoleStore(db))

		_, err := svc.Delete(ctx, uuid.Must(uuid.NewV7()), models.SystemAuditContext())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("hook error rolls the whole cascade back", func(t *testing.T) {
		db := memory.NewDB()
		roles := store.NewRoleStore(db)
		hook := &recordingHook{err: errors.New("dependent resources exist")}
		svc := NewService(db, roles, hook)

		org, err := svc.Create(ctx, "protected", models.SystemAuditContext())
		require.NoError(t, err)

		_, err = roles.Insert(ctx, nil,
			models.OrganizationRoleAssignment(uuid.Must(uuid.NewV7()), models.PrincipalTypeAccount, models.RoleOwner, org.ID),
			models.SystemAuditContext())
		require.NoError(t, err)

		_, err = svc.Delete(ctx, org.ID, models.SystemAuditContext())
		require.Error(t, err)
		require.Equal(t, 1, hook.calls)

		// Everything is still there.
		found, err := svc.Get(ctx, org.ID)
		require.NoError(t, err)
		require.Equal(t, "protected", found.Name)

		remaining, err := roles.FindOrganization(ctx, nil, store.Filter{"organization_id": org.ID})
		require.NoError(t, err)
		require.Len(t, remaining, 1)
	})

	t.Run("hooks run inside the delete transaction", func(t *testing.T) {
		db := memory.NewDB()
		roles := store.NewRoleStore(db)
		keys := store.NewAPIKeyStore(db)
		svc := NewService(db, roles, &cleanupHook{keys: keys})

		org, err := svc.Create(ctx, "keyed", models.SystemAuditContext())
		require.NoError(t, err)

		orgID := org.ID
		scoped, err := keys.Insert(ctx, nil, &models.APIKey{
			Secret: "ak_scoped",
			Name:   "org key",
			Scope:  models.APIKeyScope{Type: models.APIKeyScopeOrganization, ScopeID: &orgID},
		}, models.SystemAuditContext())
		require.NoError(t, err)

		_, err = svc.Delete(ctx, org.ID, models.SystemAuditContext())
		require.NoError(t, err)

		_, err = keys.Get(ctx, scoped.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}
