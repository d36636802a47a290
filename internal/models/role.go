package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// RoleType discriminates the two shapes stored in the role assignment
// collection. Global assignments carry no organization id; organization
// assignments always do.
type RoleType string

const (
	RoleTypeGlobal       RoleType = "global"
	RoleTypeOrganization RoleType = "organization"
)

// Role is the level of access granted by an assignment.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleUser   Role = "user"
	RoleReader Role = "reader"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleUser, RoleReader:
		return true
	}
	return false
}

// RoleAssignment grants a principal a role, either globally or on one
// organization. Assignments are created and deleted, never mutated in place.
// At most one assignment exists per
// (type, principal_id, principal_type, organization_id, role) tuple.
type RoleAssignment struct {
	Meta
	Type           RoleType      `json:"type"`
	PrincipalID    uuid.UUID     `json:"principal_id"`
	PrincipalType  PrincipalType `json:"principal_type"`
	Role           Role          `json:"role"`
	OrganizationID *uuid.UUID    `json:"organization_id,omitempty"`
}

// GlobalRoleAssignment builds a global assignment for a principal.
func GlobalRoleAssignment(principalID uuid.UUID, principalType PrincipalType, role Role) *RoleAssignment {
	return &RoleAssignment{
		Type:          RoleTypeGlobal,
		PrincipalID:   principalID,
		PrincipalType: principalType,
		Role:          role,
	}
}

// OrganizationRoleAssignment builds an organization-scoped assignment.
func OrganizationRoleAssignment(principalID uuid.UUID, principalType PrincipalType, role Role, orgID uuid.UUID) *RoleAssignment {
	return &RoleAssignment{
		Type:           RoleTypeOrganization,
		PrincipalID:    principalID,
		PrincipalType:  principalType,
		Role:           role,
		OrganizationID: &orgID,
	}
}

// Validate enforces the discriminant invariant: organization_id present iff
// the assignment is organization scoped.
func (a *RoleAssignment) Validate() error {
	switch a.Type {
	case RoleTypeGlobal:
		if a.OrganizationID != nil {
			return errors.New("global role assignment must not carry an organization id")
		}
	case RoleTypeOrganization:
		if a.OrganizationID == nil {
			return errors.New("organization role assignment requires an organization id")
		}
	default:
		return fmt.Errorf("unknown role assignment type %q", a.Type)
	}
	if a.PrincipalID == uuid.Nil {
		return errors.New("role assignment requires a principal id")
	}
	if !a.PrincipalType.Valid() {
		return fmt.Errorf("unknown principal type %q", a.PrincipalType)
	}
	if !a.Role.Valid() {
		return fmt.Errorf("unknown role %q", a.Role)
	}
	return nil
}
