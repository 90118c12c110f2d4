package ledgertest

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

type journalRepo struct{ s *Store }

func (r journalRepo) GetJournal(_ context.Context, entityID, id uuid.UUID) (journals.Journal, error) {
	var (
		out journals.Journal
		ok  bool
	)
	r.s.locked(func(st *state) {
		out, ok = st.journals[id]
		ok = ok && out.EntityID == entityID
		if ok {
			out.Lines = sortedLines(st.lines[id])
		}
	})
	if !ok {
		return journals.Journal{}, shared.ErrJournalNotFound
	}
	return out, nil
}

func (r journalRepo) ListJournals(_ context.Context, q journals.ListQuery) ([]journals.Journal, error) {
	var out []journals.Journal
	r.s.locked(func(st *state) {
		for _, j := range st.journals {
			if j.EntityID != q.EntityID {
				continue
			}
			if q.From != nil && j.Date.Before(*q.From) {
				continue
			}
			if q.To != nil && j.Date.After(*q.To) {
				continue
			}
			if q.Status != "" && j.Status != q.Status {
				continue
			}
			out = append(out, j)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Number > out[j].Number
	})
	return out, nil
}

func (r journalRepo) WithTx(ctx context.Context, fn func(context.Context, journals.TxRepository) error) error {
	return r.s.tx(func(st *state) error {
		return fn(ctx, journalTx{st: st, s: r.s})
	})
}

type journalTx struct {
	st *state
	s  *Store
}

func (t journalTx) InsertJournal(_ context.Context, j journals.Journal) (journals.Journal, error) {
	if _, ok := t.st.entities[j.EntityID]; !ok {
		return journals.Journal{}, shared.ErrEntityNotFound
	}
	if j.ReversesJournalID != nil {
		for _, existing := range t.st.journals {
			if existing.ReversesJournalID != nil && *existing.ReversesJournalID == *j.ReversesJournalID {
				return journals.Journal{}, shared.ErrAlreadyReversed
			}
		}
	}
	t.st.number++
	now := t.s.Now().UTC()
	j.Number = t.st.number
	j.CreatedAt, j.UpdatedAt = now, now
	j.Lines = nil
	t.st.journals[j.ID] = j
	return j, nil
}

func (t journalTx) UpdateJournalHeader(_ context.Context, j journals.Journal) (journals.Journal, error) {
	current, ok := t.st.journals[j.ID]
	if !ok || current.Status != journals.StatusDraft {
		return journals.Journal{}, shared.ErrJournalNotDraft
	}
	current.Date = j.Date
	current.JournalType = j.JournalType
	current.Description = j.Description
	current.Reference = j.Reference
	current.UpdatedAt = t.s.Now().UTC()
	t.st.journals[j.ID] = current
	return current, nil
}

func (t journalTx) GetJournalForUpdate(_ context.Context, entityID, id uuid.UUID) (journals.Journal, error) {
	j, ok := t.st.journals[id]
	if !ok || j.EntityID != entityID {
		return journals.Journal{}, shared.ErrJournalNotFound
	}
	return j, nil
}

func (t journalTx) ListLines(_ context.Context, journalID uuid.UUID) ([]journals.Line, error) {
	return sortedLines(t.st.lines[journalID]), nil
}

func (t journalTx) DeleteLines(_ context.Context, journalID uuid.UUID) error {
	delete(t.st.lines, journalID)
	return nil
}

func (t journalTx) InsertLines(_ context.Context, j journals.Journal, lines []journals.LineInput) ([]journals.Line, error) {
	out := make([]journals.Line, 0, len(lines))
	for i, in := range lines {
		if _, ok := t.st.accounts[in.AccountID]; !ok {
			return nil, shared.ErrAccountNotFound
		}
		t.st.seq++
		out = append(out, journals.Line{
			ID:          uuid.New(),
			JournalID:   j.ID,
			EntityID:    j.EntityID,
			LineNo:      i + 1,
			Seq:         t.st.seq,
			AccountID:   in.AccountID,
			Description: in.Description,
			Debit:       shared.Round(in.Debit),
			Credit:      shared.Round(in.Credit),
			Dimensions:  in.Dimensions,
		})
	}
	t.st.lines[j.ID] = append(t.st.lines[j.ID], out...)
	return out, nil
}

func (t journalTx) MarkPosted(_ context.Context, id, actor uuid.UUID, at time.Time) (journals.Journal, error) {
	j, ok := t.st.journals[id]
	if !ok || j.Status != journals.StatusDraft {
		return journals.Journal{}, shared.ErrJournalNotDraft
	}
	j.Status = journals.StatusPosted
	j.PostedBy = actor
	j.PostedAt = &at
	j.UpdatedAt = at
	t.st.journals[id] = j
	return j, nil
}

func (t journalTx) FindReversal(_ context.Context, journalID uuid.UUID) (uuid.UUID, bool, error) {
	for _, j := range t.st.journals {
		if j.ReversesJournalID != nil && *j.ReversesJournalID == journalID {
			return j.ID, true, nil
		}
	}
	return uuid.Nil, false, nil
}

func (t journalTx) GetAccounts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]accounts.Account, error) {
	out := make(map[uuid.UUID]accounts.Account, len(ids))
	for _, id := range ids {
		if a, ok := t.st.accounts[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func sortedLines(lines []journals.Line) []journals.Line {
	out := append([]journals.Line(nil), lines...)
	sort.Slice(out, func(i, j int) bool { return out[i].LineNo < out[j].LineNo })
	return out
}
