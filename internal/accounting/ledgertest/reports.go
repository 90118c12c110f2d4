package ledgertest

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/settings"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// ReportRepo aggregates stored lines the way the SQL repository does.
type ReportRepo struct {
	s *Store
}

func included(st *state, l journals.Line, entityID uuid.UUID, window reports.Window, drafts bool) (journals.Journal, bool) {
	j, ok := st.journals[l.JournalID]
	if !ok || l.EntityID != entityID || j.EntityID != entityID {
		return journals.Journal{}, false
	}
	if j.Status != journals.StatusPosted && !drafts {
		return journals.Journal{}, false
	}
	if window.From != nil && j.Date.Before(*window.From) {
		return journals.Journal{}, false
	}
	if j.Date.After(window.To) {
		return journals.Journal{}, false
	}
	return j, true
}

// AccountBalances implements reports.Repository.
func (r *ReportRepo) AccountBalances(_ context.Context, q reports.BalanceQuery) ([]reports.AccountBalance, error) {
	var out []reports.AccountBalance
	r.s.locked(func(st *state) {
		only := map[uuid.UUID]bool{}
		for _, id := range q.AccountIDs {
			only[id] = true
		}
		company := st.entities[q.EntityID].CompanyID
		for _, a := range st.accounts {
			if a.EntityID != q.EntityID || (len(only) > 0 && !only[a.ID]) {
				continue
			}
			b := reports.AccountBalance{
				EntityID:       a.EntityID,
				CompanyID:      company,
				AccountID:      a.ID,
				Code:           a.Code,
				Name:           a.Name,
				StandardCode:   a.StandardCode,
				HeadingID:      a.HeadingID,
				HeadingName:    st.headings[a.HeadingID].Name,
				SubheadingID:   a.SubheadingID,
				SubheadingName: st.subheadings[a.SubheadingID].Name,
				GroupID:        a.GroupID,
				GroupName:      st.groups[a.GroupID].Name,
				Debit:          decimal.Zero,
				Credit:         decimal.Zero,
			}
			for _, lines := range st.lines {
				for _, l := range lines {
					if l.AccountID != a.ID {
						continue
					}
					if _, ok := included(st, l, q.EntityID, q.Window, q.IncludeDrafts); !ok {
						continue
					}
					if q.BranchID != nil && (l.Dimensions.BranchID == nil || *l.Dimensions.BranchID != *q.BranchID) {
						continue
					}
					if q.VendorID != nil && (l.Dimensions.VendorID == nil || *l.Dimensions.VendorID != *q.VendorID) {
						continue
					}
					b.Debit = b.Debit.Add(l.Debit)
					b.Credit = b.Credit.Add(l.Credit)
				}
			}
			out = append(out, b)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Movements implements reports.Repository.
func (r *ReportRepo) Movements(_ context.Context, q reports.MovementQuery) ([]reports.Movement, error) {
	var out []reports.Movement
	r.s.locked(func(st *state) {
		company := st.entities[q.EntityID].CompanyID
		for _, lines := range st.lines {
			for _, l := range lines {
				if l.AccountID != q.AccountID {
					continue
				}
				j, ok := included(st, l, q.EntityID, q.Window, q.IncludeDrafts)
				if !ok {
					continue
				}
				description := l.Description
				if description == "" {
					description = j.Description
				}
				out = append(out, reports.Movement{
					EntityID:      l.EntityID,
					CompanyID:     company,
					JournalID:     j.ID,
					JournalNumber: j.Number,
					Reference:     j.Reference,
					Date:          j.Date,
					Status:        string(j.Status),
					Seq:           l.Seq,
					LineNo:        l.LineNo,
					AccountID:     l.AccountID,
					Description:   description,
					Debit:         l.Debit,
					Credit:        l.Credit,
				})
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

// UnbalancedJournals implements reports.Repository.
func (r *ReportRepo) UnbalancedJournals(_ context.Context, entityID uuid.UUID, asOf time.Time) ([]reports.JournalImbalance, error) {
	var out []reports.JournalImbalance
	r.s.locked(func(st *state) {
		for id, j := range st.journals {
			if j.EntityID != entityID || j.Status != journals.StatusPosted || j.Date.After(asOf) {
				continue
			}
			debit, credit := decimal.Zero, decimal.Zero
			for _, l := range st.lines[id] {
				debit = debit.Add(l.Debit)
				credit = credit.Add(l.Credit)
			}
			if !debit.Equal(credit) {
				out = append(out, reports.JournalImbalance{JournalID: id, Number: j.Number, Date: j.Date, Debit: debit, Credit: credit})
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}

// RecentLines implements reports.Repository.
func (r *ReportRepo) RecentLines(_ context.Context, q reports.LedgerEntriesQuery) ([]reports.LedgerEntry, error) {
	var out []reports.LedgerEntry
	window := reports.AsOf(q.AsOf)
	r.s.locked(func(st *state) {
		company := st.entities[q.EntityID].CompanyID
		for _, lines := range st.lines {
			for _, l := range lines {
				j, ok := included(st, l, q.EntityID, window, q.IncludeDrafts)
				if !ok {
					continue
				}
				description := l.Description
				if description == "" {
					description = j.Description
				}
				out = append(out, reports.LedgerEntry{
					EntityID:    l.EntityID,
					CompanyID:   company,
					LineID:      l.ID,
					JournalID:   j.ID,
					Number:      j.Number,
					Date:        j.Date,
					Status:      string(j.Status),
					Seq:         l.Seq,
					AccountID:   l.AccountID,
					Code:        st.accounts[l.AccountID].Code,
					Description: description,
					Debit:       l.Debit,
					Credit:      l.Credit,
				})
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Seq < out[j].Seq
	})
	running := decimal.Zero
	for i := range out {
		running = running.Add(out[i].Debit).Sub(out[i].Credit)
		out[i].Balance = running
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	limit := q.Limit
	if limit <= 0 {
		limit = reports.DefaultEntryLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountJournals implements reports.Repository.
func (r *ReportRepo) CountJournals(_ context.Context, entityID uuid.UUID, window reports.Window, includeDrafts bool) (int, error) {
	n := 0
	r.s.locked(func(st *state) {
		for _, j := range st.journals {
			if j.EntityID != entityID || j.Date.After(window.To) {
				continue
			}
			if window.From != nil && j.Date.Before(*window.From) {
				continue
			}
			if j.Status != journals.StatusPosted && !includeDrafts {
				continue
			}
			n++
		}
	})
	return n, nil
}

type settingsRepo struct{ s *Store }

func (r settingsRepo) Get(_ context.Context, companyID uuid.UUID) (settings.Settings, error) {
	var (
		out settings.Settings
		ok  bool
	)
	r.s.locked(func(st *state) { out, ok = st.settings[companyID] })
	if !ok {
		return settings.Settings{}, shared.ErrSettingsNotFound
	}
	return out, nil
}

func (r settingsRepo) Upsert(_ context.Context, in settings.Settings) (settings.Settings, error) {
	var out settings.Settings
	err := r.s.tx(func(st *state) error {
		for _, id := range in.Mapped() {
			if _, ok := st.accounts[id]; !ok {
				return shared.ErrAccountNotFound
			}
		}
		now := r.s.Now().UTC()
		in.CreatedAt = now
		if existing, ok := st.settings[in.CompanyID]; ok {
			in.CreatedAt = existing.CreatedAt
		}
		in.UpdatedAt = now
		st.settings[in.CompanyID] = in
		out = in
		return nil
	})
	return out, err
}

var (
	_ reports.Repository  = (*ReportRepo)(nil)
	_ settings.Repository = settingsRepo{}
)
