package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfeidau/authcore/internal/logger"
	"github.com/wolfeidau/authcore/internal/models"
	"github.com/wolfeidau/authcore/internal/orgs"
	"github.com/wolfeidau/authcore/internal/store"
)

type OrgsCmd struct {
	Create OrgsCreateCmd `cmd:"" help:"Create an organization"`
	Delete OrgsDeleteCmd `cmd:"" help:"Delete an organization and its role assignments"`
	List   OrgsListCmd   `cmd:"" help:"List organizations"`
}

type OrgsCreateCmd struct {
	Store StoreFlags `embed:"" prefix:"postgres-"`

	Name string `arg:"" help:"organization name"`
}

func (o *OrgsCreateCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	db, err := o.Store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := orgs.NewService(db, store.NewRoleStore(db))
	org, err := svc.Create(ctx, o.Name, models.SystemAuditContext())
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	log.Info().Str("organization_id", org.ID.String()).Str("name", org.Name).Msg("Created organization")
	fmt.Println(org.ID)
	return nil
}

type OrgsDeleteCmd struct {
	Store StoreFlags `embed:"" prefix:"postgres-"`

	OrgID string `arg:"" help:"organization id"`
}

func (o *OrgsDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := uuid.Parse(o.OrgID)
	if err != nil {
		return fmt.Errorf("invalid organization id: %w", err)
	}

	db, err := o.Store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := orgs.NewService(db, store.NewRoleStore(db))
	result, err := svc.Delete(ctx, id, models.SystemAuditContext())
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	fmt.Printf("Deleted organization %s (%d role assignments removed)\n", id, result.RolesDeleted)
	return nil
}

type OrgsListCmd struct {
	Store StoreFlags `embed:"" prefix:"postgres-"`
}

func (o *OrgsListCmd) Run(ctx context.Context, globals *Globals) error {
	db, err := o.Store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := orgs.NewService(db, store.NewRoleStore(db))
	list, err := svc.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list organizations: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No organizations found.")
		return nil
	}

	fmt.Printf("%-36s %-30s %-20s\n", "Organization ID", "Name", "Created At")
	for _, org := range list {
		fmt.Printf("%-36s %-30s %-20s\n", org.ID, org.Name, org.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
