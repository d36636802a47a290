package models

import (
	"time"

	"github.com/google/uuid"
)

// Meta carries the identity and timestamps shared by every stored document.
// It is embedded by all entity types so the store can stamp ids and
// created/updated times without knowing the concrete type.
type Meta struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Meta) DocID() uuid.UUID         { return m.ID }
func (m *Meta) SetDocID(id uuid.UUID)    { m.ID = id }
func (m *Meta) SetCreatedAt(t time.Time) { m.CreatedAt = t }
func (m *Meta) SetUpdatedAt(t time.Time) { m.UpdatedAt = t }
