package accounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// HeadingSeed describes a heading and everything below it.
type HeadingSeed struct {
	Code        string
	Name        string
	Statement   Statement
	Subheadings []SubheadingSeed
}

// SubheadingSeed describes a subheading and its groups.
type SubheadingSeed struct {
	Code   string
	Name   string
	Groups []GroupSeed
}

// GroupSeed describes a group and its accounts.
type GroupSeed struct {
	Code     string
	Name     string
	Accounts []AccountSeed
}

// AccountSeed describes one account.
type AccountSeed struct {
	Code string
	Name string
}

// DefaultChart returns the skeleton every new entity starts with. The leaf codes
// match the standard mapping targets used by company settings.
func DefaultChart() []HeadingSeed {
	return []HeadingSeed{
		{Code: "A", Name: "Assets", Statement: StatementBalanceSheet, Subheadings: []SubheadingSeed{
			{Code: "A1", Name: "Current Assets", Groups: []GroupSeed{
				{Code: "A11", Name: "Cash and Bank", Accounts: []AccountSeed{
					{Code: "1000", Name: "Cash on Hand"},
					{Code: "1100", Name: "Bank"},
				}},
				{Code: "A12", Name: "Receivables", Accounts: []AccountSeed{
					{Code: "1200", Name: "Accounts Receivable"},
				}},
				{Code: "A13", Name: "Inventories", Accounts: []AccountSeed{
					{Code: "1300", Name: "Inventory"},
					{Code: "1400", Name: "Work in Progress"},
				}},
				{Code: "A14", Name: "Tax Assets", Accounts: []AccountSeed{
					{Code: "1500", Name: "VAT Input"},
				}},
			}},
		}},
		{Code: "L", Name: "Liabilities", Statement: StatementBalanceSheet, Subheadings: []SubheadingSeed{
			{Code: "L1", Name: "Current Liabilities", Groups: []GroupSeed{
				{Code: "L11", Name: "Payables", Accounts: []AccountSeed{
					{Code: "2000", Name: "Accounts Payable"},
				}},
				{Code: "L12", Name: "Tax Liabilities", Accounts: []AccountSeed{
					{Code: "2100", Name: "VAT Output"},
				}},
			}},
		}},
		{Code: "E", Name: "Equity", Statement: StatementBalanceSheet, Subheadings: []SubheadingSeed{
			{Code: "E1", Name: "Owners Equity", Groups: []GroupSeed{
				{Code: "E11", Name: "Capital", Accounts: []AccountSeed{
					{Code: "3000", Name: "Share Capital"},
					{Code: "3100", Name: "Retained Earnings"},
				}},
			}},
		}},
		{Code: "I", Name: "Income", Statement: StatementProfitAndLoss, Subheadings: []SubheadingSeed{
			{Code: "I1", Name: "Operating Income", Groups: []GroupSeed{
				{Code: "I11", Name: "Revenue", Accounts: []AccountSeed{
					{Code: "4000", Name: "Sales Revenue"},
					{Code: "4100", Name: "Workshop Revenue"},
					{Code: "4200", Name: "RSA Revenue"},
					{Code: "4300", Name: "Recovery Revenue"},
				}},
				{Code: "I12", Name: "Other Income", Accounts: []AccountSeed{
					{Code: "4900", Name: "Discount Received"},
				}},
			}},
		}},
		{Code: "X", Name: "Expenses", Statement: StatementProfitAndLoss, Subheadings: []SubheadingSeed{
			{Code: "X1", Name: "Cost of Sales", Groups: []GroupSeed{
				{Code: "X11", Name: "Direct Costs", Accounts: []AccountSeed{
					{Code: "5000", Name: "Cost of Goods Sold"},
					{Code: "5100", Name: "Labor Cost"},
				}},
			}},
			{Code: "X2", Name: "Operating Expenses", Groups: []GroupSeed{
				{Code: "X21", Name: "Other Expenses", Accounts: []AccountSeed{
					{Code: "5200", Name: "Discount Given"},
					{Code: "5900", Name: "Rounding Difference"},
				}},
			}},
		}},
	}
}

// Seed inserts the skeleton for entityID using tx. It returns the number of
// accounts created.
func Seed(ctx context.Context, tx TxRepository, entityID uuid.UUID, chart []HeadingSeed) (int, error) {
	created := 0
	for _, hs := range chart {
		heading, err := tx.InsertHeading(ctx, Heading{ID: uuid.New(), EntityID: entityID, Code: hs.Code, Name: hs.Name, Statement: hs.Statement})
		if err != nil {
			return created, fmt.Errorf("seed heading %s: %w", hs.Code, err)
		}
		for _, ss := range hs.Subheadings {
			sub, err := tx.InsertSubheading(ctx, Subheading{ID: uuid.New(), EntityID: entityID, HeadingID: heading.ID, Code: ss.Code, Name: ss.Name})
			if err != nil {
				return created, fmt.Errorf("seed subheading %s: %w", ss.Code, err)
			}
			for _, gs := range ss.Groups {
				group, err := tx.InsertGroup(ctx, Group{ID: uuid.New(), EntityID: entityID, SubheadingID: sub.ID, Code: gs.Code, Name: gs.Name})
				if err != nil {
					return created, fmt.Errorf("seed group %s: %w", gs.Code, err)
				}
				for _, as := range gs.Accounts {
					_, err := tx.InsertAccount(ctx, Account{
						ID:           uuid.New(),
						EntityID:     entityID,
						Code:         as.Code,
						Name:         as.Name,
						HeadingID:    heading.ID,
						SubheadingID: sub.ID,
						GroupID:      group.ID,
						IsActive:     true,
						StandardCode: as.Code,
					})
					if err != nil {
						return created, fmt.Errorf("seed account %s: %w", as.Code, err)
					}
					created++
				}
			}
		}
	}
	return created, nil
}
