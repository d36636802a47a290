package auth

import "errors"

var (
	// ErrScopeIDRequired is returned when an account or organization scope
	// check is attempted without a scope id. Malformed input, never retried.
	ErrScopeIDRequired = errors.New("scope id is required for this scope type")

	// ErrInvalidScope is returned for an unknown API key scope type.
	ErrInvalidScope = errors.New("invalid api key scope type")

	// ErrAccountRejected is returned when the guard hook rejects a newly
	// provisioned account. Fatal for that resolution.
	ErrAccountRejected = errors.New("account rejected by guard hook")
)
