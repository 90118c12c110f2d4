package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidScope indicates a scope/company pair that cannot resolve to an entity.
	ErrInvalidScope = errors.New("accounting: invalid scope")
	// ErrEntityNotFound indicates a missing ledger entity.
	ErrEntityNotFound = errors.New("accounting: entity not found")
	// ErrInvalidCurrency indicates a base currency that is not an ISO 4217 code.
	ErrInvalidCurrency = errors.New("accounting: invalid currency")
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrInvalidDate indicates a journal without a date.
	ErrInvalidDate = errors.New("accounting: journal date required")
	// ErrNoLines indicates a journal without lines.
	ErrNoLines = errors.New("accounting: journal requires at least one line")
	// ErrNegativeAmount indicates a negative debit or credit.
	ErrNegativeAmount = errors.New("accounting: line amounts must not be negative")
	// ErrAmountOutOfRange indicates an amount too large to store.
	ErrAmountOutOfRange = errors.New("accounting: line amount out of range")
	// ErrJournalNotDraft indicates a mutation or re-post of a posted journal.
	ErrJournalNotDraft = errors.New("accounting: journal is not a draft")
	// ErrJournalNotPosted indicates a reversal of a journal that was never posted.
	ErrJournalNotPosted = errors.New("accounting: journal is not posted")
	// ErrAlreadyReversed indicates the journal already has a reversing journal.
	ErrAlreadyReversed = errors.New("accounting: journal already reversed")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("accounting: journal not found")
	// ErrAccountNotFound indicates a referenced account does not exist.
	ErrAccountNotFound = errors.New("accounting: account not found")
	// ErrAccountCrossEntity indicates a referenced account belongs to another entity.
	ErrAccountCrossEntity = errors.New("accounting: account belongs to another entity")
	// ErrAccountInactive indicates a referenced account has been deactivated.
	ErrAccountInactive = errors.New("accounting: account inactive")
	// ErrInvalidAccountCode indicates a code without a 1-5 class prefix.
	ErrInvalidAccountCode = errors.New("accounting: invalid account code")
	// ErrDuplicateAccountCode indicates a chart code already taken inside the entity.
	ErrDuplicateAccountCode = errors.New("accounting: duplicate chart code")
	// ErrNameRequired indicates a chart node without a name.
	ErrNameRequired = errors.New("accounting: name required")
	// ErrInvalidHierarchy indicates an inconsistent heading/subheading/group triple.
	ErrInvalidHierarchy = errors.New("accounting: invalid heading/subheading/group")
	// ErrAccountRecodeForbidden indicates a class change on an account with posted lines.
	ErrAccountRecodeForbidden = errors.New("accounting: account class cannot change after posting")
	// ErrAccountInUse indicates the account is referenced by journal lines.
	ErrAccountInUse = errors.New("accounting: account referenced by journal lines")
	// ErrStandardAccountNotFound indicates an unknown standard catalog code.
	ErrStandardAccountNotFound = errors.New("accounting: standard account not found")
	// ErrStandardClassMismatch indicates a mapping across account classes.
	ErrStandardClassMismatch = errors.New("accounting: standard account class differs from account class")
	// ErrSettingsNotFound indicates the company has no accounting settings row.
	ErrSettingsNotFound = errors.New("accounting: company settings not found")
	// ErrEntityIsolation indicates data crossing a tenant boundary.
	ErrEntityIsolation = errors.New("accounting: entity isolation violation")
)

// UnbalancedError reports the totals of a journal that failed the balance check.
type UnbalancedError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Delta is debit minus credit.
func (e *UnbalancedError) Delta() decimal.Decimal {
	return e.Debit.Sub(e.Credit)
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("%s: debit %s credit %s delta %s", ErrUnbalanced, e.Debit.StringFixed(2), e.Credit.StringFixed(2), e.Delta().StringFixed(2))
}

// Is matches ErrUnbalanced.
func (e *UnbalancedError) Is(target error) bool {
	return target == ErrUnbalanced
}

// IsolationError carries the context of a failed tenant check.
type IsolationError struct {
	Component string
	EntityID  uuid.UUID
	Found     string
}

func (e *IsolationError) Error() string {
	return fmt.Sprintf("%s: %s expected entity %s, got %s", ErrEntityIsolation, e.Component, e.EntityID, e.Found)
}

// Is matches ErrEntityIsolation.
func (e *IsolationError) Is(target error) bool {
	return target == ErrEntityIsolation
}

// Isolation builds an IsolationError.
func Isolation(component string, entityID uuid.UUID, found string) error {
	return &IsolationError{Component: component, EntityID: entityID, Found: found}
}
