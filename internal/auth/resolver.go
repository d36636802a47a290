package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/authcore/internal/idp"
	"github.com/wolfeidau/authcore/internal/models"
	"github.com/wolfeidau/authcore/internal/store"
)

// GuardHook lets the composing service veto accounts at first sight.
// Returning false aborts principal resolution for that account.
type GuardHook interface {
	OnAccountFirstSeen(ctx context.Context, account *models.Account) bool
}

// Credentials are the raw authentication material extracted from an inbound
// request by the transport layer.
type Credentials struct {
	// APIKey is the value of the API key header, if any.
	APIKey string
	// Bearer is the identity-provider bearer token, if any.
	Bearer string
}

// Resolver turns request credentials into a typed principal. An API key
// takes priority over identity-provider credentials; accounts are
// provisioned on first sight.
type Resolver struct {
	keys     *store.APIKeyStore
	accounts *store.AccountStore
	verifier idp.Verifier
	hook     GuardHook // optional
}

// NewResolver creates a principal resolver. hook may be nil.
func NewResolver(keys *store.APIKeyStore, accounts *store.AccountStore, verifier idp.Verifier, hook GuardHook) *Resolver {
	return &Resolver{keys: keys, accounts: accounts, verifier: verifier, hook: hook}
}

// Resolve returns the principal for the given credentials, or nil for an
// anonymous request. Disabled API keys and unverifiable bearer tokens both
// resolve as anonymous; a guard hook rejection is fatal.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (*models.Principal, error) {
	if creds.APIKey != "" {
		key, err := r.keys.FindBySecret(ctx, creds.APIKey)
		if err == nil {
			principal := models.APIKeyPrincipal(key)
			return &principal, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		// Unknown or disabled key: fall through to the identity provider.
	}

	if creds.Bearer == "" {
		return nil, nil
	}

	externalID, err := r.verifier.Verify(ctx, creds.Bearer)
	if err != nil {
		log.Debug().Err(err).Msg("Bearer token verification failed")
		return nil, nil
	}

	account, err := r.accounts.FindByExternalID(ctx, externalID)
	if err == nil {
		principal := models.AccountPrincipal(account)
		return &principal, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	account, err = r.provision(ctx, externalID)
	if err != nil {
		return nil, err
	}

	principal := models.AccountPrincipal(account)
	return &principal, nil
}

// provision creates the account for a first-seen identity and runs the guard
// hook. Provisioning is system initiated; there is no caller principal yet.
func (r *Resolver) provision(ctx context.Context, externalID string) (*models.Account, error) {
	account, err := r.accounts.Upsert(ctx, nil, externalID, models.SystemAuditContext())
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("account_id", account.ID.String()).
		Msg("Provisioned account for first-seen identity")

	if r.hook != nil && !r.hook.OnAccountFirstSeen(ctx, account) {
		return nil, fmt.Errorf("%w: account %s", ErrAccountRejected, account.ID)
	}

	return account, nil
}
