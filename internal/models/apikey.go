package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// APIKeyScopeType is the blast radius of an API key.
type APIKeyScopeType string

const (
	APIKeyScopeGlobal       APIKeyScopeType = "global"
	APIKeyScopeAccount      APIKeyScopeType = "account"
	APIKeyScopeOrganization APIKeyScopeType = "organization"
)

// Valid reports whether the scope type is one of the known scopes.
func (t APIKeyScopeType) Valid() bool {
	switch t {
	case APIKeyScopeGlobal, APIKeyScopeAccount, APIKeyScopeOrganization:
		return true
	}
	return false
}

// APIKeyScope constrains what a key may be used for. ScopeID is required for
// account and organization scopes and forbidden for global scope.
type APIKeyScope struct {
	Type    APIKeyScopeType `json:"type"`
	ScopeID *uuid.UUID      `json:"scope_id,omitempty"`
}

func (s APIKeyScope) Validate() error {
	switch s.Type {
	case APIKeyScopeGlobal:
		if s.ScopeID != nil {
			return errors.New("global scope must not carry a scope id")
		}
	case APIKeyScopeAccount, APIKeyScopeOrganization:
		if s.ScopeID == nil {
			return fmt.Errorf("%s scope requires a scope id", s.Type)
		}
	default:
		return fmt.Errorf("unknown api key scope type %q", s.Type)
	}
	return nil
}

// APIKey is an issued credential. The secret is globally unique. Keys are
// created once, read many times per request, and logically disabled rather
// than deleted when revoked (deletion is also supported).
type APIKey struct {
	Meta
	Secret   string      `json:"secret"`
	Name     string      `json:"name"`
	Scope    APIKeyScope `json:"scope"`
	Disabled bool        `json:"disabled"`
}

func (k *APIKey) Validate() error {
	if k.Secret == "" {
		return errors.New("api key secret is required")
	}
	if k.Name == "" {
		return errors.New("api key name is required")
	}
	return k.Scope.Validate()
}
