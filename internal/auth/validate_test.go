package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/authcore/internal/models"
)

func TestEngine_ValidateAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous request on anonymous route is valid", func(t *testing.T) {
		f := newEngineFixture(t)

		decision, err := f.engine.ValidateAuth(ctx, nil, Requirements{AllowAnonymous: true})
		require.NoError(t, err)
		require.Equal(t, DecisionValid, decision)
	})

	t.Run("anonymous request on protected route is unauthorized", func(t *testing.T) {
		f := newEngineFixture(t)

		decision, err := f.engine.ValidateAuth(ctx, nil, Requirements{})
		require.NoError(t, err)
		require.Equal(t, DecisionUnauthorized, decision)
	})

	t.Run("anonymous route skips role checks even with a principal", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()

		decision, err := f.engine.ValidateAuth(ctx, &p, Requirements{
			AllowAnonymous: true,
			GlobalRoles:    []models.Role{models.RoleOwner},
		})
		require.NoError(t, err)
		require.Equal(t, DecisionValid, decision)
	})

	t.Run("principal type outside the allow list is forbidden", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()

		decision, err := f.engine.ValidateAuth(ctx, &p, Requirements{
			PrincipalTypes: []models.PrincipalType{models.PrincipalTypeAPIKey},
			Source:         "test",
		})
		require.NoError(t, err)
		require.Equal(t, DecisionForbidden, decision)

		events, err := f.security.ListByPrincipal(ctx, p.ID())
		require.NoError(t, err)
		require.Len(t, events, 1)
	})

	t.Run("api key scope outside the allow list is forbidden", func(t *testing.T) {
		f := newEngineFixture(t)
		p := apiKeyPrincipal(models.APIKeyScope{Type: models.APIKeyScopeGlobal})

		decision, err := f.engine.ValidateAuth(ctx, &p, Requirements{
			APIKeyScopes: []models.APIKeyScopeType{models.APIKeyScopeAccount},
			Source:       "test",
		})
		require.NoError(t, err)
		require.Equal(t, DecisionForbidden, decision)
	})

	t.Run("scope constraint ignored for account principals", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()

		decision, err := f.engine.ValidateAuth(ctx, &p, Requirements{
			APIKeyScopes: []models.APIKeyScopeType{models.APIKeyScopeAccount},
		})
		require.NoError(t, err)
		require.Equal(t, DecisionValid, decision)
	})

	t.Run("no required roles means any authenticated principal", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()

		decision, err := f.engine.ValidateAuth(ctx, &p, Requirements{})
		require.NoError(t, err)
		require.Equal(t, DecisionValid, decision)
	})

	t.Run("required roles with no assignments is forbidden", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()

		decision, err := f.engine.ValidateAuth(ctx, &p, Requirements{
			GlobalRoles: []models.Role{models.RoleUser},
			Source:      "test",
		})
		require.NoError(t, err)
		require.Equal(t, DecisionForbidden, decision)
	})

	t.Run("matching required role is valid", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()
		f.grantGlobal(t, p, models.RoleUser)

		decision, err := f.engine.ValidateAuth(ctx, &p, Requirements{
			GlobalRoles: []models.Role{models.RoleUser, models.RoleOwner},
		})
		require.NoError(t, err)
		require.Equal(t, DecisionValid, decision)
	})

	t.Run("admin satisfies any required role list", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()
		f.grantGlobal(t, p, models.RoleAdmin)

		decision, err := f.engine.ValidateAuth(ctx, &p, Requirements{
			GlobalRoles: []models.Role{models.RoleOwner},
		})
		require.NoError(t, err)
		require.Equal(t, DecisionValid, decision)
	})

	t.Run("wrong role is forbidden and recorded", func(t *testing.T) {
		f := newEngineFixture(t)
		p := accountPrincipal()
		f.grantGlobal(t, p, models.RoleReader)

		decision, err := f.engine.ValidateAuth(ctx, &p, Requirements{
			GlobalRoles: []models.Role{models.RoleOwner},
			Source:      "test",
		})
		require.NoError(t, err)
		require.Equal(t, DecisionForbidden, decision)

		events, err := f.security.ListByPrincipal(ctx, p.ID())
		require.NoError(t, err)
		require.Len(t, events, 1)
	})
}
