package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// AuditAction is the kind of mutation an audit record describes.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// AuditContext attributes a mutation to its originating caller. System marks
// internally-initiated mutations not attributable to any principal.
type AuditContext struct {
	PrincipalID   *uuid.UUID     `json:"principal_id,omitempty"`
	PrincipalType *PrincipalType `json:"principal_type,omitempty"`
	System        bool           `json:"system"`
}

// SystemAuditContext marks a mutation as internally initiated.
func SystemAuditContext() AuditContext {
	return AuditContext{System: true}
}

// PrincipalAuditContext attributes a mutation to the given principal.
func PrincipalAuditContext(p Principal) AuditContext {
	id := p.ID()
	typ := p.Type
	return AuditContext{PrincipalID: &id, PrincipalType: &typ}
}

// AuditRecord is one append-only ledger entry describing a single entity
// mutation. Records are written in the same transaction as the mutation and
// are never updated or deleted.
type AuditRecord struct {
	Meta
	EntityID   uuid.UUID    `json:"entity_id"`
	EntityType string       `json:"entity_type"`
	Action     AuditAction  `json:"action"`
	Context    AuditContext `json:"context"`
}

func (r *AuditRecord) Validate() error {
	if r.EntityID == uuid.Nil {
		return errors.New("audit record requires an entity id")
	}
	if r.EntityType == "" {
		return errors.New("audit record requires an entity type")
	}
	switch r.Action {
	case AuditActionCreate, AuditActionUpdate, AuditActionDelete:
	default:
		return fmt.Errorf("unknown audit action %q", r.Action)
	}
	return nil
}

// SecurityEventType classifies security audit records.
type SecurityEventType string

const (
	SecurityEventUnauthorizedAccess SecurityEventType = "unauthorized_access"
)

// SecurityAuditRecord is an append-only entry written whenever authorization
// denies access, for forensic review.
type SecurityAuditRecord struct {
	Meta
	EventType     SecurityEventType `json:"event_type"`
	PrincipalID   uuid.UUID         `json:"principal_id"`
	PrincipalType PrincipalType     `json:"principal_type"`
	Message       string            `json:"message"`
	Source        string            `json:"source"`
}

func (r *SecurityAuditRecord) Validate() error {
	if r.EventType == "" {
		return errors.New("security audit record requires an event type")
	}
	if r.Message == "" {
		return errors.New("security audit record requires a message")
	}
	return nil
}
