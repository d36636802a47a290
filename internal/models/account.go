package models

import "errors"

// Account represents a human user provisioned on first sight from the
// external identity provider. ExternalID is the provider's verified user id
// and is unique across accounts.
type Account struct {
	Meta
	ExternalID string  `json:"external_id"`
	Name       string  `json:"name,omitempty"`
	Email      *string `json:"email,omitempty"`
}

func (a *Account) Validate() error {
	if a.ExternalID == "" {
		return errors.New("account external id is required")
	}
	return nil
}
