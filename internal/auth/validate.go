package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/wolfeidau/authcore/internal/models"
)

// Decision is the outcome of request-level auth validation.
type Decision int

const (
	DecisionValid Decision = iota
	DecisionUnauthorized
	DecisionForbidden
)

func (d Decision) String() string {
	switch d {
	case DecisionValid:
		return "valid"
	case DecisionUnauthorized:
		return "unauthorized"
	case DecisionForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Requirements declares what a route demands of its caller. Empty lists
// impose no constraint of their kind.
type Requirements struct {
	AllowAnonymous bool
	PrincipalTypes []models.PrincipalType
	GlobalRoles    []models.Role
	APIKeyScopes   []models.APIKeyScopeType

	// Source labels security audit records written on denial.
	Source string
}

// ValidateAuth runs the request-level authorization state machine. Anonymous
// routes never enforce role checks, even when a principal is present. The
// global admin role satisfies any required-roles list.
func (e *Engine) ValidateAuth(ctx context.Context, principal *models.Principal, req Requirements) (Decision, error) {
	if principal == nil {
		if req.AllowAnonymous {
			return DecisionValid, nil
		}
		return DecisionUnauthorized, nil
	}

	if req.AllowAnonymous {
		return DecisionValid, nil
	}

	if len(req.PrincipalTypes) > 0 && !slices.Contains(req.PrincipalTypes, principal.Type) {
		e.deny(ctx, *principal,
			fmt.Sprintf("principal type %s not permitted on this route", principal.Type), req.Source)
		return DecisionForbidden, nil
	}

	if principal.Type == models.PrincipalTypeAPIKey && len(req.APIKeyScopes) > 0 {
		if !slices.Contains(req.APIKeyScopes, principal.APIKey.Scope.Type) {
			e.deny(ctx, *principal,
				fmt.Sprintf("api key scope %s not permitted on this route", principal.APIKey.Scope.Type), req.Source)
			return DecisionForbidden, nil
		}
	}

	if len(req.GlobalRoles) == 0 {
		return DecisionValid, nil
	}

	globalRoles, err := e.roles.GlobalRolesFor(ctx, principal.ID(), principal.Type)
	if err != nil {
		return DecisionForbidden, err
	}

	if len(globalRoles) == 0 {
		e.deny(ctx, *principal, "no global role assignments found", req.Source)
		return DecisionForbidden, nil
	}

	// Admin satisfies every required-roles list.
	if hasRole(globalRoles, models.RoleAdmin) || hasAnyRole(globalRoles, req.GlobalRoles) {
		return DecisionValid, nil
	}

	e.deny(ctx, *principal, "principal holds none of the required global roles", req.Source)
	return DecisionForbidden, nil
}
