package shared

import "strings"

// Scope selects which ledger entity a caller operates on.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeCompany Scope = "company"
)

// ParseScope normalises a raw scope value.
func ParseScope(raw string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(raw))) {
	case ScopeGlobal:
		return ScopeGlobal, nil
	case ScopeCompany:
		return ScopeCompany, nil
	}
	return "", ErrInvalidScope
}

// Valid reports whether the scope is known.
func (s Scope) Valid() bool {
	return s == ScopeGlobal || s == ScopeCompany
}
