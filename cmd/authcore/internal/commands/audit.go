package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfeidau/authcore/internal/store"
)

type AuditCmd struct {
	Store StoreFlags `embed:"" prefix:"postgres-"`

	EntityID string `arg:"" help:"entity id to show the mutation history for"`
}

func (a *AuditCmd) Run(ctx context.Context, globals *Globals) error {
	id, err := uuid.Parse(a.EntityID)
	if err != nil {
		return fmt.Errorf("invalid entity id: %w", err)
	}

	db, err := a.Store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := store.NewAuditStore(db).ListByEntity(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list audit records: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No audit records found.")
		return nil
	}

	fmt.Printf("%-20s %-24s %-8s %-36s\n", "Recorded At", "Entity Type", "Action", "Actor")
	for _, r := range records {
		actor := "system"
		if r.Context.PrincipalID != nil {
			actor = r.Context.PrincipalID.String()
		}
		fmt.Printf("%-20s %-24s %-8s %-36s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.EntityType, r.Action, actor)
	}
	return nil
}
