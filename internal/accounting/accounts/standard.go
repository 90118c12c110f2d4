package accounts

import (
	"context"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	platform "github.com/odyssey-erp/odyssey-books/internal/shared"
)

// StandardAccount is one entry of the catalog chart accounts map onto.
type StandardAccount struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Class     Class     `json:"class"`
	Statement Statement `json:"statement"`
	Heading   string    `json:"heading"`
	Group     string    `json:"group"`
}

// StandardAccounts lists the catalog ordered by code. It is the leaf set of
// the default chart.
func StandardAccounts() []StandardAccount {
	var out []StandardAccount
	for _, hs := range DefaultChart() {
		for _, ss := range hs.Subheadings {
			for _, gs := range ss.Groups {
				for _, as := range gs.Accounts {
					class, _ := ClassOf(as.Code)
					out = append(out, StandardAccount{
						Code:      as.Code,
						Name:      as.Name,
						Class:     class,
						Statement: hs.Statement,
						Heading:   hs.Name,
						Group:     gs.Name,
					})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// StandardAccountByCode looks up one catalog entry.
func StandardAccountByCode(code string) (StandardAccount, bool) {
	code = strings.TrimSpace(code)
	for _, sa := range StandardAccounts() {
		if sa.Code == code {
			return sa, true
		}
	}
	return StandardAccount{}, false
}

// MapAccountToStandard links an account to a catalog entry of the same class,
// or clears the link for an empty code.
func (s *Service) MapAccountToStandard(ctx context.Context, in MapStandardInput) (Account, error) {
	code := strings.TrimSpace(in.StandardCode)
	var standard StandardAccount
	if code != "" {
		var ok bool
		if standard, ok = StandardAccountByCode(code); !ok {
			return Account{}, shared.ErrStandardAccountNotFound
		}
	}
	var (
		account  Account
		previous string
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetAccountForUpdate(ctx, in.AccountID)
		if err != nil {
			return err
		}
		if current.EntityID != in.EntityID {
			return shared.ErrAccountCrossEntity
		}
		if code != "" && standard.Class != current.Class() {
			return shared.ErrStandardClassMismatch
		}
		previous = current.StandardCode
		current.StandardCode = code
		account, err = tx.UpdateAccount(ctx, current)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.invalidate(ctx, in.EntityID)
	s.record(ctx, platform.AuditLog{
		ActorID:  in.ActorID,
		EntityID: in.EntityID,
		Action:   "account.map_standard",
		Object:   "account",
		ObjectID: account.ID.String(),
		Meta:     map[string]any{"code": account.Code, "standard_code": code, "previous_standard_code": previous},
	})
	return account, nil
}
