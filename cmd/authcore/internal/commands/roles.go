package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfeidau/authcore/internal/logger"
	"github.com/wolfeidau/authcore/internal/models"
	"github.com/wolfeidau/authcore/internal/store"
)

type GrantCmd struct {
	Store StoreFlags `embed:"" prefix:"postgres-"`

	PrincipalID   string `arg:"" help:"principal id (account or api key)"`
	PrincipalType string `help:"principal type" default:"account" enum:"account,api_key"`
	Role          string `help:"role to grant" required:"" enum:"owner,admin,user,reader"`
	Org           string `help:"organization id for an organization-scoped grant (omit for global)" default:""`
}

func (g *GrantCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	principalID, err := uuid.Parse(g.PrincipalID)
	if err != nil {
		return fmt.Errorf("invalid principal id: %w", err)
	}

	var assignment *models.RoleAssignment
	if g.Org != "" {
		orgID, err := uuid.Parse(g.Org)
		if err != nil {
			return fmt.Errorf("invalid organization id: %w", err)
		}
		assignment = models.OrganizationRoleAssignment(principalID, models.PrincipalType(g.PrincipalType), models.Role(g.Role), orgID)
	} else {
		assignment = models.GlobalRoleAssignment(principalID, models.PrincipalType(g.PrincipalType), models.Role(g.Role))
	}

	db, err := g.Store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	created, err := store.NewRoleStore(db).Insert(ctx, nil, assignment, models.SystemAuditContext())
	if err != nil {
		return fmt.Errorf("failed to grant role: %w", err)
	}

	log.Info().
		Str("assignment_id", created.ID.String()).
		Str("role", string(created.Role)).
		Str("type", string(created.Type)).
		Msg("Granted role")

	fmt.Println(created.ID)
	return nil
}

type RevokeCmd struct {
	Store StoreFlags `embed:"" prefix:"postgres-"`

	AssignmentID string `arg:"" help:"role assignment id to revoke"`
}

func (r *RevokeCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	id, err := uuid.Parse(r.AssignmentID)
	if err != nil {
		return fmt.Errorf("invalid assignment id: %w", err)
	}

	db, err := r.Store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.NewRoleStore(db).Delete(ctx, nil, id, models.SystemAuditContext()); err != nil {
		return fmt.Errorf("failed to revoke role: %w", err)
	}

	log.Info().Str("assignment_id", id.String()).Msg("Revoked role")
	return nil
}

type RolesCmd struct {
	Store StoreFlags `embed:"" prefix:"postgres-"`

	PrincipalID   string `arg:"" help:"principal id to list assignments for"`
	PrincipalType string `help:"principal type" default:"account" enum:"account,api_key"`
}

func (r *RolesCmd) Run(ctx context.Context, globals *Globals) error {
	principalID, err := uuid.Parse(r.PrincipalID)
	if err != nil {
		return fmt.Errorf("invalid principal id: %w", err)
	}

	db, err := r.Store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	roles := store.NewRoleStore(db)

	global, err := roles.GlobalRolesFor(ctx, principalID, models.PrincipalType(r.PrincipalType))
	if err != nil {
		return fmt.Errorf("failed to list global roles: %w", err)
	}

	orgScoped, err := roles.FindOrganization(ctx, nil, store.Filter{
		"principal_id":   principalID,
		"principal_type": models.PrincipalType(r.PrincipalType),
	})
	if err != nil {
		return fmt.Errorf("failed to list organization roles: %w", err)
	}

	if len(global)+len(orgScoped) == 0 {
		fmt.Println("No role assignments found.")
		return nil
	}

	fmt.Printf("%-36s %-14s %-8s %-36s\n", "Assignment ID", "Type", "Role", "Organization")
	for _, a := range global {
		fmt.Printf("%-36s %-14s %-8s %-36s\n", a.ID, a.Type, a.Role, "-")
	}
	for _, a := range orgScoped {
		fmt.Printf("%-36s %-14s %-8s %-36s\n", a.ID, a.Type, a.Role, a.OrganizationID)
	}
	return nil
}
