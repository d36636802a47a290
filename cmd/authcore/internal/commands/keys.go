package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wolfeidau/authcore/internal/apikey"
	"github.com/wolfeidau/authcore/internal/logger"
	"github.com/wolfeidau/authcore/internal/models"
	"github.com/wolfeidau/authcore/internal/store"
)

type KeysCmd struct {
	Create  KeysCreateCmd  `cmd:"" help:"Issue a new API key"`
	Disable KeysDisableCmd `cmd:"" help:"Disable an API key"`
	Enable  KeysEnableCmd  `cmd:"" help:"Re-enable a disabled API key"`
	List    KeysListCmd    `cmd:"" help:"List API keys"`
}

type KeysCreateCmd struct {
	Store StoreFlags `embed:"" prefix:"postgres-"`

	Name    string `arg:"" help:"human readable key name"`
	Scope   string `help:"key scope" default:"account" enum:"global,account,organization"`
	ScopeID string `help:"account or organization id the key is scoped to" default:""`
	Prefix  string `help:"secret prefix" default:"ak_"`
}

func (k *KeysCreateCmd) Run(ctx context.Context, globals *Globals) error {
	scope := models.APIKeyScope{Type: models.APIKeyScopeType(k.Scope)}
	if k.ScopeID != "" {
		id, err := uuid.Parse(k.ScopeID)
		if err != nil {
			return fmt.Errorf("invalid scope id: %w", err)
		}
		scope.ScopeID = &id
	}
	if err := scope.Validate(); err != nil {
		return err
	}

	db, err := k.Store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	issuer := apikey.NewIssuer(db, store.NewAPIKeyStore(db))
	key, err := issuer.Create(ctx,
		apikey.CreateParams{Name: k.Name, Scope: scope},
		models.SystemAuditContext(),
		apikey.CreateOptions{Prefix: k.Prefix})
	if err != nil {
		return fmt.Errorf("failed to issue api key: %w", err)
	}

	// The secret is shown once at issue time only.
	fmt.Printf("Key ID: %s\n", key.ID)
	fmt.Printf("Secret: %s\n", key.Secret)
	return nil
}

type KeysDisableCmd struct {
	Store StoreFlags `embed:"" prefix:"postgres-"`

	KeyID string `arg:"" help:"api key id"`
}

func (k *KeysDisableCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	id, err := uuid.Parse(k.KeyID)
	if err != nil {
		return fmt.Errorf("invalid key id: %w", err)
	}

	db, err := k.Store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := store.NewAPIKeyStore(db).Disable(ctx, nil, id, models.SystemAuditContext()); err != nil {
		return fmt.Errorf("failed to disable api key: %w", err)
	}

	log.Info().Str("key_id", id.String()).Msg("Disabled api key")
	return nil
}

type KeysEnableCmd struct {
	Store StoreFlags `embed:"" prefix:"postgres-"`

	KeyID string `arg:"" help:"api key id"`
}

func (k *KeysEnableCmd) Run(ctx context.Context, globals *Globals) error {
	log := logger.Setup(globals.Debug)

	id, err := uuid.Parse(k.KeyID)
	if err != nil {
		return fmt.Errorf("invalid key id: %w", err)
	}

	db, err := k.Store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := store.NewAPIKeyStore(db).Enable(ctx, nil, id, models.SystemAuditContext()); err != nil {
		return fmt.Errorf("failed to enable api key: %w", err)
	}

	log.Info().Str("key_id", id.String()).Msg("Enabled api key")
	return nil
}

type KeysListCmd struct {
	Store StoreFlags `embed:"" prefix:"postgres-"`
}

func (k *KeysListCmd) Run(ctx context.Context, globals *Globals) error {
	db, err := k.Store.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	keys, err := store.NewAPIKeyStore(db).List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list api keys: %w", err)
	}

	if len(keys) == 0 {
		fmt.Println("No api keys found.")
		return nil
	}

	fmt.Printf("%-36s %-20s %-14s %-36s %-8s\n", "Key ID", "Name", "Scope", "Scope ID", "Status")
	for _, key := range keys {
		scopeID := "-"
		if key.Scope.ScopeID != nil {
			scopeID = key.Scope.ScopeID.String()
		}
		status := "active"
		if key.Disabled {
			status = "disabled"
		}
		fmt.Printf("%-36s %-20s %-14s %-36s %-8s\n", key.ID, key.Name, key.Scope.Type, scopeID, status)
	}
	return nil
}
