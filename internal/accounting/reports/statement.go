package reports

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// BuildStatement nests the balances of the given classes into headings,
// subheadings and groups. Sections are ordered by name and accounts by code;
// ties fall back to ids so the output is deterministic. Accounts without any
// movement are left out.
func BuildStatement(balances []AccountBalance, classes []accounts.Class, window Window) Statement {
	wanted := make(map[accounts.Class]bool, len(classes))
	for _, c := range classes {
		wanted[c] = true
	}

	type groupNode struct {
		section  StatementGroup
		accounts []StatementAccount
	}
	type subNode struct {
		section StatementSubheading
		groups  map[uuid.UUID]*groupNode
	}
	type headNode struct {
		section StatementHeading
		subs    map[uuid.UUID]*subNode
	}

	heads := map[uuid.UUID]*headNode{}
	classTotals := map[accounts.Class]decimal.Decimal{}
	total := decimal.Zero
	for _, b := range balances {
		class := b.Class()
		if !wanted[class] {
			continue
		}
		debit, credit := shared.Round(b.Debit), shared.Round(b.Credit)
		if debit.IsZero() && credit.IsZero() {
			continue
		}
		balance := debit.Sub(credit)

		h, ok := heads[b.HeadingID]
		if !ok {
			h = &headNode{
				section: StatementHeading{ID: b.HeadingID, Name: b.HeadingName, Total: decimal.Zero},
				subs:    map[uuid.UUID]*subNode{},
			}
			heads[b.HeadingID] = h
		}
		s, ok := h.subs[b.SubheadingID]
		if !ok {
			s = &subNode{
				section: StatementSubheading{ID: b.SubheadingID, Name: b.SubheadingName, Total: decimal.Zero},
				groups:  map[uuid.UUID]*groupNode{},
			}
			h.subs[b.SubheadingID] = s
		}
		g, ok := s.groups[b.GroupID]
		if !ok {
			g = &groupNode{section: StatementGroup{ID: b.GroupID, Name: b.GroupName, Total: decimal.Zero}}
			s.groups[b.GroupID] = g
		}

		g.accounts = append(g.accounts, StatementAccount{
			AccountID: b.AccountID,
			Code:      b.Code,
			Name:      b.Name,
			Debit:     debit,
			Credit:    credit,
			Balance:   balance,
		})
		g.section.Total = g.section.Total.Add(balance)
		s.section.Total = s.section.Total.Add(balance)
		h.section.Total = h.section.Total.Add(balance)
		classTotals[class] = classTotals[class].Add(balance)
		total = total.Add(balance)
	}

	out := Statement{Window: window, Headings: []StatementHeading{}, Total: total}
	for _, h := range heads {
		for _, s := range h.subs {
			for _, g := range s.groups {
				sort.Slice(g.accounts, func(i, j int) bool {
					if g.accounts[i].Code != g.accounts[j].Code {
						return g.accounts[i].Code < g.accounts[j].Code
					}
					return g.accounts[i].AccountID.String() < g.accounts[j].AccountID.String()
				})
				g.section.Accounts = g.accounts
				s.section.Groups = append(s.section.Groups, g.section)
			}
			sort.Slice(s.section.Groups, func(i, j int) bool {
				return byName(s.section.Groups[i].Name, s.section.Groups[j].Name, s.section.Groups[i].ID, s.section.Groups[j].ID)
			})
			h.section.Subheadings = append(h.section.Subheadings, s.section)
		}
		sort.Slice(h.section.Subheadings, func(i, j int) bool {
			a, b := h.section.Subheadings[i], h.section.Subheadings[j]
			return byName(a.Name, b.Name, a.ID, b.ID)
		})
		out.Headings = append(out.Headings, h.section)
	}
	sort.Slice(out.Headings, func(i, j int) bool {
		a, b := out.Headings[i], out.Headings[j]
		return byName(a.Name, b.Name, a.ID, b.ID)
	})

	for _, c := range classes {
		out.Classes = append(out.Classes, ClassTotal{Class: c, Total: classTotals[c]})
	}
	return out
}

func byName(a, b string, idA, idB uuid.UUID) bool {
	if a != b {
		return a < b
	}
	return idA.String() < idB.String()
}
