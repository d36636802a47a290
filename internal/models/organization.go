package models

import "errors"

// Organization represents a tenant in the system. Role assignments and
// API-key scopes reference organizations by id; deleting an organization
// cascades to its role assignments in the same transaction.
type Organization struct {
	Meta
	Name string `json:"name"`
}

func (o *Organization) Validate() error {
	if o.Name == "" {
		return errors.New("organization name is required")
	}
	return nil
}
