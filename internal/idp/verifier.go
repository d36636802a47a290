// Package idp adapts the external identity provider. The engine only ever
// sees "verify bearer credential, get back an external user id"; token
// formats and key distribution stay behind this boundary.
package idp

import "context"

// Verifier verifies a bearer credential and returns the provider's user id.
type Verifier interface {
	Verify(ctx context.Context, bearer string) (string, error)
}
