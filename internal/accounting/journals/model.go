package journals

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// Status enumerates journal lifecycle values.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusPosted Status = "posted"
)

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPosted
}

// DefaultJournalType tags journals created without an explicit type.
const DefaultJournalType = "general"

// Journal is one accounting transaction.
type Journal struct {
	ID                uuid.UUID
	EntityID          uuid.UUID
	Number            int64
	Date              time.Time
	JournalType       string
	Description       string
	Reference         string
	Status            Status
	CreatedBy         uuid.UUID
	PostedBy          uuid.UUID
	PostedAt          *time.Time
	ReversesJournalID *uuid.UUID
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Lines             []Line
}

// DisplayNumber renders the journal number, falling back from the reference.
func (j Journal) DisplayNumber() string {
	if j.Reference != "" {
		return j.Reference
	}
	return fmt.Sprintf("JV-%d-%06d", j.Date.Year(), j.Number)
}

// Totals sums the journal lines.
func (j Journal) Totals() (debit, credit decimal.Decimal) {
	for _, l := range j.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// Dimensions are optional analytical tags on a line.
type Dimensions struct {
	EmployeeID *uuid.UUID
	BranchID   *uuid.UUID
	VendorID   *uuid.UUID
}

// Line is one debit or credit movement.
type Line struct {
	ID          uuid.UUID
	JournalID   uuid.UUID
	EntityID    uuid.UUID
	LineNo      int
	Seq         int64
	AccountID   uuid.UUID
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Dimensions  Dimensions
}

// LineInput describes a line to write.
type LineInput struct {
	AccountID   uuid.UUID
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Dimensions  Dimensions
}

// DraftInput carries the fields of a draft journal.
type DraftInput struct {
	EntityID    uuid.UUID
	Date        time.Time
	JournalType string
	Description string
	Reference   string
	Lines       []LineInput
	// SkipAccountValidation is reserved for trusted callers that already
	// checked account ownership.
	SkipAccountValidation bool
	ActorID               uuid.UUID
}

// UpdateDraftInput replaces header fields and the full line set of a draft.
type UpdateDraftInput struct {
	JournalID uuid.UUID
	DraftInput
}

// PostInput identifies the draft to post.
type PostInput struct {
	EntityID  uuid.UUID
	JournalID uuid.UUID
	ActorID   uuid.UUID
}

// ReverseInput identifies the posted journal to mirror.
type ReverseInput struct {
	EntityID    uuid.UUID
	JournalID   uuid.UUID
	Date        *time.Time
	Description string
	ActorID     uuid.UUID
}

// ListFilter selects journals of one entity.
type ListFilter struct {
	Scope     shared.Scope
	CompanyID *uuid.UUID
	From      *time.Time
	To        *time.Time
	Status    Status
}

// ListQuery is the storage side of ListFilter once the entity is resolved.
type ListQuery struct {
	EntityID uuid.UUID
	From     *time.Time
	To       *time.Time
	Status   Status
}
