// Package apikey issues API key credentials with collision-safe secret
// generation.
package apikey

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/authcore/internal/models"
	"github.com/wolfeidau/authcore/internal/store"
	"github.com/wolfeidau/authcore/internal/telemetry"
)

const (
	// DefaultSecretLength is the number of random bytes per secret. 32
	// bytes (256 bits) makes a genuine collision astronomically unlikely;
	// the retry loop exists for defence against a broken entropy source
	// and misconfigured environments sharing a database.
	DefaultSecretLength = 32

	// DefaultMaxRetries bounds secret regeneration attempts.
	DefaultMaxRetries = 3
)

// ErrGenerationExhausted is returned when every generated secret collided
// with an existing key. Fatal and alertable: it does not happen under normal
// operation.
var ErrGenerationExhausted = errors.New("api key secret generation exhausted retries")

// CreateParams describe the key to issue.
type CreateParams struct {
	Name  string
	Scope models.APIKeyScope
}

// CreateOptions tune secret generation.
type CreateOptions struct {
	// MaxRetries bounds generation attempts. Defaults to DefaultMaxRetries.
	MaxRetries int
	// Prefix is prepended to the hex secret, e.g. "ak_".
	Prefix string
	// Length is the number of random bytes. Defaults to DefaultSecretLength.
	Length int
}

func (o *CreateOptions) applyDefaults() {
	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.Length == 0 {
		o.Length = DefaultSecretLength
	}
}

// Issuer generates and persists API keys through the audited key store.
type Issuer struct {
	ds   store.Datastore
	keys *store.APIKeyStore

	// randRead is swappable for tests.
	randRead func([]byte) (int, error)
}

// NewIssuer creates an issuer writing through the given key store.
func NewIssuer(ds store.Datastore, keys *store.APIKeyStore) *Issuer {
	return &Issuer{ds: ds, keys: keys, randRead: rand.Read}
}

// Create issues one key. All generation attempts run inside a single
// transaction: each insert attempt is savepoint-scoped so a unique-index
// collision on the secret regenerates and retries without aborting the
// transaction, and a failed final attempt leaves no partial audit writes
// behind. Any non-conflict error aborts immediately.
func (i *Issuer) Create(ctx context.Context, params CreateParams, actx models.AuditContext, opts CreateOptions) (*models.APIKey, error) {
	opts.applyDefaults()

	var created *models.APIKey
	err := i.ds.WithinTx(ctx, func(sess store.Session) error {
		for attempt := 1; attempt <= opts.MaxRetries; attempt++ {
			telemetry.GetMetrics().KeyIssueAttempts.Add(ctx, 1)

			secret, err := i.generateSecret(opts.Prefix, opts.Length)
			if err != nil {
				return err
			}

			key := &models.APIKey{
				Secret: secret,
				Name:   params.Name,
				Scope:  params.Scope,
			}

			err = i.ds.WithinSavepoint(ctx, sess, func(sess store.Session) error {
				var err error
				created, err = i.keys.Insert(ctx, sess, key, actx)
				return err
			})
			if err == nil {
				log.Info().
					Str("key_id", created.ID.String()).
					Str("name", created.Name).
					Int("attempts", attempt).
					Msg("Issued api key")
				return nil
			}
			if !errors.Is(err, store.ErrConflict) {
				return err
			}

			log.Warn().
				Int("attempt", attempt).
				Msg("Generated api key secret collided, regenerating")
		}

		telemetry.GetMetrics().KeyIssueExhaustedTotal.Add(ctx, 1)
		return fmt.Errorf("%w: %d attempts", ErrGenerationExhausted, opts.MaxRetries)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (i *Issuer) generateSecret(prefix string, length int) (string, error) {
	buf := make([]byte, length)
	if _, err := i.randRead(buf); err != nil {
		return "", fmt.Errorf("failed to read secret entropy: %w", err)
	}
	return prefix + hex.EncodeToString(buf), nil
}
