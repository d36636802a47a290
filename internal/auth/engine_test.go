package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/authcore/internal/models"
	"github.com/wolfeidau/authcore/internal/store"
	"github.com/wolfeidau/authcore/internal/store/memory"
)

type engineFixture struct {
	db       *memory.DB
	roles    *store.RoleStore
	security *store.SecurityAuditStore
	engine   *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	db := memory.NewDB()
	roles := store.NewRoleStore(db)
	security := store.NewSecurityAuditStore(db)
	return &engineFixture{
		db:       db,
		roles:    roles,
		security: security,
		engine:   NewEngine(roles, security),
	}
}

func (f *engineFixture) grantGlobal(t *testing.T, principal models.Principal, role models.Role) {
	t.Helper()
	_, err := f.roles.Insert(context.Background(), nil,
		models.GlobalRoleAssignment(principal.ID(), principal.Type, role),
		models.SystemAuditContext())
	require.NoError(t, err)
}

func (f *engineFixture) grantOrganization(t *testing.T, principal models.Principal, role models.Role, orgID uuid.UUID) {
	t.Helper()
	_, err := f.roles.Insert(context.Background(), nil,
		models.OrganizationRoleAssignment(principal.ID(), principal.Type, role, orgID),
		models.SystemAuditContext())
	require.NoError(t, err)
}

func accountPrincipal() models.Principal {
	return models.AccountPrincipal(&models.Account{
		Meta:       models.Meta{ID: uuid.Must(uuid.NewV7())},
		ExternalID: "idp|" + uuid.NewString(),
	})
}

func apiKeyPrincipal(scope models.APIKeyScope) models.Principal {
	return models.APIKeyPrincipal(&models.APIKey{
		Meta:   models.Meta{ID: uuid.Must(uuid.NewV7())},
		Secret: "ak_" + uuid.NewString(),
		Name:   "test key",
		Scope:  scope,
	})
}

func TestEngine_IsGlobalAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("true only for the admin role", func(t *testing.T) {
		f := newEngineFixture(t)
		admin := accountPrincipal()
		user := accountPrincipal()
		f.grantGlobal(t, admin, models.RoleAdmin)
		f.grantGlobal(t, user, models.RoleUser)

		isAdmin, err := f.engine.IsGlobalAdmin(ctx, admin.ID(), admin.Type)
		require.NoError(t, err)
		require.True(t, isAdmin)

		isAdmin, err = f.engine.IsGlobalAdmin(ctx, user.ID(), user.Type)
		require.NoError(t, err)
		require.False(t, isAdmin)
	})

	t.Run("false for a principal with no assignments", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()

		isAdmin, err := f.engine.IsGlobalAdmin(ctx, p.ID(), p.Type)
		require.NoError(t, err)
		require.False(t, isAdmin)
	})

	t.Run("identity is (id, type) not just id", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()
		f.grantGlobal(t, p, models.RoleAdmin)

		isAdmin, err := f.engine.IsGlobalAdmin(ctx, p.ID(), models.PrincipalTypeAPIKey)
		require.NoError(t, err)
		require.False(t, isAdmin)
	})
}

func TestEngine_ResolveOrganizationAuthorization(t *testing.T) {
	ctx := context.Background()

	t.Run("organization role on the allow list grants access", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()
		orgID := uuid.Must(uuid.NewV7())
		f.grantOrganization(t, p, models.RoleUser, orgID)

		result, err := f.engine.ResolveOrganizationAuthorization(ctx, OrganizationAuthParams{
			Principal:      p,
			RolesAllowList: []models.Role{models.RoleUser, models.RoleAdmin},
			OrganizationID: orgID,
			Source:         "test",
		})
		require.NoError(t, err)
		require.True(t, result.HasAccess)
		require.False(t, result.IsGlobalAdmin)
		require.Len(t, result.OrganizationRoles, 1)
	})

	t.Run("lesser role is denied and recorded", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()
		orgID := uuid.Must(uuid.NewV7())
		f.grantOrganization(t, p, models.RoleReader, orgID)

		result, err := f.engine.ResolveOrganizationAuthorization(ctx, OrganizationAuthParams{
			Principal:      p,
			RolesAllowList: []models.Role{models.RoleAdmin, models.RoleOwner},
			OrganizationID: orgID,
			Source:         "test",
		})
		require.NoError(t, err)
		require.False(t, result.HasAccess)
		require.Len(t, result.OrganizationRoles, 1)

		events, err := f.security.ListByPrincipal(ctx, p.ID())
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, models.SecurityEventUnauthorizedAccess, events[0].EventType)
		require.Equal(t, "test", events[0].Source)
	})

	t.Run("global admin passes regardless of allow lists", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()
		orgID := uuid.Must(uuid.NewV7())
		f.grantGlobal(t, p, models.RoleAdmin)

		result, err := f.engine.ResolveOrganizationAuthorization(ctx, OrganizationAuthParams{
			Principal:              p,
			RolesAllowList:         []models.Role{models.RoleOwner},
			PrincipalTypeAllowList: []models.PrincipalType{models.PrincipalTypeAPIKey},
			OrganizationID:         orgID,
			Source:                 "test",
		})
		require.NoError(t, err)
		require.True(t, result.HasAccess)
		require.True(t, result.IsGlobalAdmin)

		events, err := f.security.ListByPrincipal(ctx, p.ID())
		require.NoError(t, err)
		require.Empty(t, events)
	})

	t.Run("principal type outside the allow list is denied", func(t *testing.T) {
		f := newEngineFixture(t)
		orgID := uuid.Must(uuid.NewV7())
		p := apiKeyPrincipal(models.APIKeyScope{Type: models.APIKeyScopeOrganization, ScopeID: &orgID})
		f.grantOrganization(t, p, models.RoleAdmin, orgID)

		result, err := f.engine.ResolveOrganizationAuthorization(ctx, OrganizationAuthParams{
			Principal:              p,
			RolesAllowList:         []models.Role{models.RoleAdmin},
			PrincipalTypeAllowList: []models.PrincipalType{models.PrincipalTypeAccount},
			OrganizationID:         orgID,
			Source:                 "test",
		})
		require.NoError(t, err)
		require.False(t, result.HasAccess)
	})

	t.Run("no relationship at all is denied with empty role sets", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()

		result, err := f.engine.ResolveOrganizationAuthorization(ctx, OrganizationAuthParams{
			Principal:      p,
			RolesAllowList: []models.Role{models.RoleReader},
			OrganizationID: uuid.Must(uuid.NewV7()),
			Source:         "test",
		})
		require.NoError(t, err)
		require.False(t, result.HasAccess)
		require.Empty(t, result.GlobalRoles)
		require.Empty(t, result.OrganizationRoles)
	})
}

func TestEngine_AuthorizeAPIKeyAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("global scope requires global admin", func(t *testing.T) {
		f := newEngineFixture(t)
		admin := accountPrincipal()
		user := accountPrincipal()
		f.grantGlobal(t, admin, models.RoleAdmin)

		ok, err := f.engine.AuthorizeAPIKeyAccess(ctx, admin, models.APIKeyScopeGlobal, nil, "test")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = f.engine.AuthorizeAPIKeyAccess(ctx, user, models.APIKeyScopeGlobal, nil, "test")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("account scope only for the account itself", func(t *testing.T) {
		f := newEngineFixture(t)
		owner := accountPrincipal()
		other := accountPrincipal()
		ownerID := owner.ID()

		ok, err := f.engine.AuthorizeAPIKeyAccess(ctx, owner, models.APIKeyScopeAccount, &ownerID, "test")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = f.engine.AuthorizeAPIKeyAccess(ctx, other, models.APIKeyScopeAccount, &ownerID, "test")
		require.NoError(t, err)
		require.False(t, ok)

		// Exactly one security record for the mismatch, none for the owner.
		events, err := f.security.ListByPrincipal(ctx, other.ID())
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, models.SecurityEventUnauthorizedAccess, events[0].EventType)

		events, err = f.security.ListByPrincipal(ctx, owner.ID())
		require.NoError(t, err)
		require.Empty(t, events)
	})

	t.Run("organization scope requires admin or owner on that organization", func(t *testing.T) {
		f := newEngineFixture(t)
		orgID := uuid.Must(uuid.NewV7())

		owner := accountPrincipal()
		reader := accountPrincipal()
		f.grantOrganization(t, owner, models.RoleOwner, orgID)
		f.grantOrganization(t, reader, models.RoleReader, orgID)

		ok, err := f.engine.AuthorizeAPIKeyAccess(ctx, owner, models.APIKeyScopeOrganization, &orgID, "test")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = f.engine.AuthorizeAPIKeyAccess(ctx, reader, models.APIKeyScopeOrganization, &orgID, "test")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("missing scope id is an error not a deny", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()

		_, err := f.engine.AuthorizeAPIKeyAccess(ctx, p, models.APIKeyScopeAccount, nil, "test")
		require.ErrorIs(t, err, ErrScopeIDRequired)

		_, err = f.engine.AuthorizeAPIKeyAccess(ctx, p, models.APIKeyScopeOrganization, nil, "test")
		require.ErrorIs(t, err, ErrScopeIDRequired)
	})

	t.Run("unknown scope type is an error", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()

		_, err := f.engine.AuthorizeAPIKeyAccess(ctx, p, models.APIKeyScopeType("bogus"), nil, "test")
		require.ErrorIs(t, err, ErrInvalidScope)
	})

	t.Run("global admin passes every scope", func(t *testing.T) {
		f := newEngineFixture(t)
		admin := accountPrincipal()
		f.grantGlobal(t, admin, models.RoleAdmin)

		someID := uuid.Must(uuid.NewV7())
		for _, scope := range []models.APIKeyScopeType{
			models.APIKeyScopeGlobal,
			models.APIKeyScopeAccount,
			models.APIKeyScopeOrganization,
		} {
			ok, err := f.engine.AuthorizeAPIKeyAccess(ctx, admin, scope, &someID, "test")
			require.NoError(t, err)
			require.True(t, ok)
		}
	})
}
