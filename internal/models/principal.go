package models

import (
	"errors"

	"github.com/google/uuid"
)

// PrincipalType discriminates the two kinds of authenticated actor.
type PrincipalType string

const (
	PrincipalTypeAccount PrincipalType = "account" // Human user resolved via the identity provider
	PrincipalTypeAPIKey  PrincipalType = "api_key" // Issued API key presented in a request header
)

// Valid reports whether the principal type is one of the known discriminants.
func (t PrincipalType) Valid() bool {
	return t == PrincipalTypeAccount || t == PrincipalTypeAPIKey
}

// Principal is the tagged union of the two actor kinds. Exactly one of
// Account or APIKey is set, matching Type. Identity for authorization
// purposes is (ID(), Type).
type Principal struct {
	Type    PrincipalType
	Account *Account
	APIKey  *APIKey
}

// AccountPrincipal wraps an account as a principal.
func AccountPrincipal(a *Account) Principal {
	return Principal{Type: PrincipalTypeAccount, Account: a}
}

// APIKeyPrincipal wraps an API key as a principal.
func APIKeyPrincipal(k *APIKey) Principal {
	return Principal{Type: PrincipalTypeAPIKey, APIKey: k}
}

// ID returns the identity half of the (id, type) principal identity.
func (p Principal) ID() uuid.UUID {
	switch p.Type {
	case PrincipalTypeAccount:
		if p.Account != nil {
			return p.Account.ID
		}
	case PrincipalTypeAPIKey:
		if p.APIKey != nil {
			return p.APIKey.ID
		}
	}
	return uuid.Nil
}

// Validate checks the union invariant: the entity matching Type is present.
func (p Principal) Validate() error {
	switch p.Type {
	case PrincipalTypeAccount:
		if p.Account == nil {
			return errors.New("account principal has no account entity")
		}
	case PrincipalTypeAPIKey:
		if p.APIKey == nil {
			return errors.New("api key principal has no key entity")
		}
	default:
		return errors.New("unknown principal type")
	}
	return nil
}
