package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfeidau/authcore/internal/auth"
	"github.com/wolfeidau/authcore/internal/models"
	"github.com/wolfeidau/authcore/internal/store"
)

type CheckCmd struct {
	Store StoreFlags `embed:"" prefix:"postgres-"`

	PrincipalID   string   `arg:"" help:"principal id to check"`
	PrincipalType string   `help:"principal type" default:"account" enum:"account,api_key"`
	Org           string   `help:"organization id to check access against" required:""`
	Roles         []string `help:"roles that grant access" default:"admin,owner"`
}

func (c *CheckCmd) Run(ctx context.Context, globals *Globals) error {
	principalID, err := uuid.Parse(c.PrincipalID)
	if err != nil {
		return fmt.Errorf("invalid principal id: %w", err)
	}
	orgID, err := uuid.Parse(c.Org)
	if err != nil {
		return fmt.Errorf("invalid organization id: %w", err)
	}

	allowList := make([]models.Role, 0, len(c.Roles))
	for _, r := range c.Roles {
		role := models.Role(r)
		if !role.Valid() {
			return fmt.Errorf("unknown role %q", r)
		}
		allowList = append(allowList, role)
	}

	db, err := c.Store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	principal, err := loadPrincipal(ctx, db, principalID, models.PrincipalType(c.PrincipalType))
	if err != nil {
		return err
	}

	engine := auth.NewEngine(store.NewRoleStore(db), store.NewSecurityAuditStore(db))
	result, err := engine.ResolveOrganizationAuthorization(ctx, auth.OrganizationAuthParams{
		Principal:      principal,
		RolesAllowList: allowList,
		OrganizationID: orgID,
		Source:         "cli",
	})
	if err != nil {
		return fmt.Errorf("failed to resolve authorization: %w", err)
	}

	fmt.Printf("Access:       %v\n", result.HasAccess)
	fmt.Printf("Global admin: %v\n", result.IsGlobalAdmin)
	fmt.Printf("Global roles: %s\n", roleNames(result.GlobalRoles))
	fmt.Printf("Org roles:    %s\n", roleNames(result.OrganizationRoles))
	return nil
}

func loadPrincipal(ctx context.Context, db store.Datastore, id uuid.UUID, t models.PrincipalType) (models.Principal, error) {
	switch t {
	case models.PrincipalTypeAPIKey:
		key, err := store.NewAPIKeyStore(db).Get(ctx, id)
		if err != nil {
			return models.Principal{}, fmt.Errorf("failed to load api key %s: %w", id, err)
		}
		return models.APIKeyPrincipal(key), nil
	default:
		account, err := store.NewAccountStore(db).Get(ctx, id)
		if err != nil {
			return models.Principal{}, fmt.Errorf("failed to load account %s: %w", id, err)
		}
		return models.AccountPrincipal(account), nil
	}
}

func roleNames(assignments []*models.RoleAssignment) string {
	if len(assignments) == 0 {
		return "-"
	}
	out := ""
	for i, a := range assignments {
		if i > 0 {
			out += ", "
		}
		out += string(a.Role)
	}
	return out
}
