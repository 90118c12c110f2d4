package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// Entity is one independent set of books.
type Entity struct {
	ID           uuid.UUID
	Scope        shared.Scope
	CompanyID    *uuid.UUID
	Name         string
	BaseCurrency string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Owns reports whether a row tagged with entityID and companyID belongs to e.
// The company tag must match exactly, nil for the global entity.
func (e Entity) Owns(entityID uuid.UUID, companyID *uuid.UUID) bool {
	if entityID != e.ID {
		return false
	}
	if e.CompanyID == nil || companyID == nil {
		return e.CompanyID == nil && companyID == nil
	}
	return *e.CompanyID == *companyID
}
