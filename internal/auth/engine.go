package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/authcore/internal/models"
	"github.com/wolfeidau/authcore/internal/store"
	"github.com/wolfeidau/authcore/internal/telemetry"
)

// organizationManageRoles are the organization roles allowed to use
// organization-scoped API keys.
var organizationManageRoles = []models.Role{models.RoleAdmin, models.RoleOwner}

// Engine makes authorization decisions. Decisions read committed role state
// outside any transaction and may observe benign staleness. The only side
// effect is one security audit record per denial.
type Engine struct {
	roles    *store.RoleStore
	security *store.SecurityAuditStore
}

// NewEngine creates an authorization engine over the given stores.
func NewEngine(roles *store.RoleStore, security *store.SecurityAuditStore) *Engine {
	return &Engine{roles: roles, security: security}
}

// IsGlobalAdmin reports whether the principal holds a global admin role
// assignment. Global admins bypass every other authorization check.
func (e *Engine) IsGlobalAdmin(ctx context.Context, principalID uuid.UUID, principalType models.PrincipalType) (bool, error) {
	_, err := e.roles.FindOneGlobal(ctx, nil, store.Filter{
		"principal_id":   principalID,
		"principal_type": principalType,
		"role":           models.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// OrganizationAuthParams are the inputs to an organization access decision.
type OrganizationAuthParams struct {
	Principal              models.Principal
	RolesAllowList         []models.Role
	PrincipalTypeAllowList []models.PrincipalType
	OrganizationID         uuid.UUID

	// Source labels the security audit record written on denial.
	Source string
}

// OrganizationAuthResult carries the decision plus every role loaded to make
// it, so callers can distinguish "no relationship at all" from "some lesser
// role" without a second query.
type OrganizationAuthResult struct {
	HasAccess         bool
	IsGlobalAdmin     bool
	GlobalRoles       []*models.RoleAssignment
	OrganizationRoles []*models.RoleAssignment
}

// ResolveOrganizationAuthorization decides whether the principal may act on
// the organization. A global admin always has access regardless of the
// principal-type and role allow lists.
func (e *Engine) ResolveOrganizationAuthorization(ctx context.Context, params OrganizationAuthParams) (OrganizationAuthResult, error) {
	principalID := params.Principal.ID()

	globalRoles, err := e.roles.GlobalRolesFor(ctx, principalID, params.Principal.Type)
	if err != nil {
		return OrganizationAuthResult{}, err
	}

	orgRoles, err := e.roles.OrganizationRolesFor(ctx, principalID, params.Principal.Type, params.OrganizationID)
	if err != nil {
		return OrganizationAuthResult{}, err
	}

	result := OrganizationAuthResult{
		GlobalRoles:       globalRoles,
		OrganizationRoles: orgRoles,
		IsGlobalAdmin:     hasRole(globalRoles, models.RoleAdmin),
	}

	switch {
	case result.IsGlobalAdmin:
		result.HasAccess = true
	case len(params.PrincipalTypeAllowList) > 0 && !slices.Contains(params.PrincipalTypeAllowList, params.Principal.Type):
		result.HasAccess = false
	default:
		result.HasAccess = hasAnyRole(orgRoles, params.RolesAllowList)
	}

	if !result.HasAccess {
		e.deny(ctx, params.Principal,
			fmt.Sprintf("denied access to organization %s", params.OrganizationID),
			params.Source)
	}

	return result, nil
}

// AuthorizeAPIKeyAccess decides whether the principal may use an API key of
// the given scope. Global admins always pass. Account scope requires the
// scope id to be the principal itself; organization scope requires an admin
// or owner role on that organization.
func (e *Engine) AuthorizeAPIKeyAccess(ctx context.Context, principal models.Principal, scopeType models.APIKeyScopeType, scopeID *uuid.UUID, source string) (bool, error) {
	isAdmin, err := e.IsGlobalAdmin(ctx, principal.ID(), principal.Type)
	if err != nil {
		return false, err
	}
	if isAdmin {
		return true, nil
	}

	switch scopeType {
	case models.APIKeyScopeGlobal:
		e.deny(ctx, principal, "denied access to global scoped api key", source)
		return false, nil

	case models.APIKeyScopeAccount:
		if scopeID == nil {
			return false, ErrScopeIDRequired
		}
		if *scopeID == principal.ID() {
			return true, nil
		}
		e.deny(ctx, principal,
			fmt.Sprintf("denied access to api key scoped to account %s", scopeID), source)
		return false, nil

	case models.APIKeyScopeOrganization:
		if scopeID == nil {
			return false, ErrScopeIDRequired
		}

		orgRoles, err := e.roles.OrganizationRolesFor(ctx, principal.ID(), principal.Type, *scopeID)
		if err != nil {
			return false, err
		}
		if hasAnyRole(orgRoles, organizationManageRoles) {
			return true, nil
		}
		e.deny(ctx, principal,
			fmt.Sprintf("denied access to api key scoped to organization %s", scopeID), source)
		return false, nil

	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidScope, scopeType)
	}
}

// deny records exactly one security audit entry for a denied decision. The
// write is best effort: a failed write is logged but never blocks the deny.
func (e *Engine) deny(ctx context.Context, principal models.Principal, message, source string) {
	telemetry.GetMetrics().AuthDenialsTotal.Add(ctx, 1)

	log.Warn().
		Str("principal_id", principal.ID().String()).
		Str("principal_type", string(principal.Type)).
		Str("source", source).
		Msg(message)

	_, err := e.security.Record(ctx, &models.SecurityAuditRecord{
		EventType:     models.SecurityEventUnauthorizedAccess,
		PrincipalID:   principal.ID(),
		PrincipalType: principal.Type,
		Message:       message,
		Source:        source,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to write security audit record")
		return
	}

	telemetry.GetMetrics().SecurityEventsTotal.Add(ctx, 1)
}

func hasRole(assignments []*models.RoleAssignment, role models.Role) bool {
	for _, a := range assignments {
		if a.Role == role {
			return true
		}
	}
	return false
}

func hasAnyRole(assignments []*models.RoleAssignment, roles []models.Role) bool {
	for _, a := range assignments {
		if slices.Contains(roles, a.Role) {
			return true
		}
	}
	return false
}
