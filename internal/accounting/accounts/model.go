package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// Class is the report section an account code falls into, taken from its first digit.
type Class int

const (
	ClassAsset     Class = 1
	ClassLiability Class = 2
	ClassEquity    Class = 3
	ClassRevenue   Class = 4
	ClassExpense   Class = 5
)

// ClassOf derives the class from an account code.
func ClassOf(code string) (Class, error) {
	code = strings.TrimSpace(code)
	if code == "" || len(code) > 16 {
		return 0, shared.ErrInvalidAccountCode
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return 0, shared.ErrInvalidAccountCode
		}
	}
	class := Class(code[0] - '0')
	if class < ClassAsset || class > ClassExpense {
		return 0, shared.ErrInvalidAccountCode
	}
	return class, nil
}

func (c Class) String() string {
	switch c {
	case ClassAsset:
		return "asset"
	case ClassLiability:
		return "liability"
	case ClassEquity:
		return "equity"
	case ClassRevenue:
		return "revenue"
	case ClassExpense:
		return "expense"
	}
	return "unknown"
}

// Statement returns the financial statement the class is reported on.
func (c Class) Statement() Statement {
	if c >= ClassRevenue {
		return StatementProfitAndLoss
	}
	return StatementBalanceSheet
}

// Statement enumerates the statements a heading can belong to.
type Statement string

const (
	StatementBalanceSheet  Statement = "balance_sheet"
	StatementProfitAndLoss Statement = "profit_and_loss"
)

// Valid reports whether the statement is known.
func (s Statement) Valid() bool {
	return s == StatementBalanceSheet || s == StatementProfitAndLoss
}

// Heading is the top level of the chart.
type Heading struct {
	ID        uuid.UUID
	EntityID  uuid.UUID
	Code      string
	Name      string
	Statement Statement
}

// Subheading sits under a heading.
type Subheading struct {
	ID        uuid.UUID
	EntityID  uuid.UUID
	HeadingID uuid.UUID
	Code      string
	Name      string
}

// Group sits under a subheading and holds accounts.
type Group struct {
	ID           uuid.UUID
	EntityID     uuid.UUID
	SubheadingID uuid.UUID
	Code         string
	Name         string
}

// Account models a chart of accounts leaf.
type Account struct {
	ID           uuid.UUID
	EntityID     uuid.UUID
	Code         string
	Name         string
	HeadingID    uuid.UUID
	SubheadingID uuid.UUID
	GroupID      uuid.UUID
	IsActive     bool
	// StandardCode links the account to the standard catalog. Empty when
	// unmapped.
	StandardCode string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Class derives the account class from its code. Invalid codes map to zero.
func (a Account) Class() Class {
	class, _ := ClassOf(a.Code)
	return class
}

// Chart is the full hierarchy of one entity.
type Chart struct {
	EntityID    uuid.UUID
	Headings    []Heading
	Subheadings []Subheading
	Groups      []Group
	Accounts    []Account
}

// HeadingInput creates a heading.
type HeadingInput struct {
	EntityID  uuid.UUID
	Code      string
	Name      string
	Statement Statement
}

// SubheadingInput creates a subheading.
type SubheadingInput struct {
	EntityID  uuid.UUID
	HeadingID uuid.UUID
	Code      string
	Name      string
}

// GroupInput creates a group.
type GroupInput struct {
	EntityID     uuid.UUID
	SubheadingID uuid.UUID
	Code         string
	Name         string
}

// AccountInput creates an account. HeadingID and SubheadingID are optional and,
// when set, must match the group's ancestry.
type AccountInput struct {
	EntityID     uuid.UUID
	Code         string
	Name         string
	HeadingID    *uuid.UUID
	SubheadingID *uuid.UUID
	GroupID      uuid.UUID
	ActorID      uuid.UUID
}

// UpdateAccountInput changes the fields that are set.
type UpdateAccountInput struct {
	EntityID  uuid.UUID
	AccountID uuid.UUID
	Code      *string
	Name      *string
	GroupID   *uuid.UUID
	IsActive  *bool
	ActorID   uuid.UUID
}

// MapStandardInput links an account to a standard catalog entry. An empty
// StandardCode clears the link.
type MapStandardInput struct {
	EntityID     uuid.UUID
	AccountID    uuid.UUID
	StandardCode string
	ActorID      uuid.UUID
}
