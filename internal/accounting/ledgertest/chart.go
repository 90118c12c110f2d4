package ledgertest

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/entities"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

type entityRepo struct{ s *Store }

func (r entityRepo) find(match func(entities.Entity) bool) (entities.Entity, error) {
	var (
		out   entities.Entity
		found bool
	)
	r.s.locked(func(st *state) {
		for _, e := range st.entities {
			if match(e) {
				out, found = e, true
				return
			}
		}
	})
	if !found {
		return entities.Entity{}, shared.ErrEntityNotFound
	}
	return out, nil
}

func (r entityRepo) FindGlobal(context.Context) (entities.Entity, error) {
	return r.find(func(e entities.Entity) bool { return e.Scope == shared.ScopeGlobal })
}

func (r entityRepo) FindByCompany(_ context.Context, companyID uuid.UUID) (entities.Entity, error) {
	return r.find(func(e entities.Entity) bool {
		return e.Scope == shared.ScopeCompany && e.CompanyID != nil && *e.CompanyID == companyID
	})
}

func (r entityRepo) Get(_ context.Context, id uuid.UUID) (entities.Entity, error) {
	return r.find(func(e entities.Entity) bool { return e.ID == id })
}

func (r entityRepo) List(context.Context) ([]entities.Entity, error) {
	var out []entities.Entity
	r.s.locked(func(st *state) {
		for _, e := range st.entities {
			out = append(out, e)
		}
	})
	sortEntities(out)
	return out, nil
}

func (r entityRepo) CountAccounts(ctx context.Context, entityID uuid.UUID) (int, error) {
	n := 0
	r.s.locked(func(st *state) {
		n, _ = chartTx{st}.CountAccounts(ctx, entityID)
	})
	return n, nil
}

func (r entityRepo) WithTx(ctx context.Context, fn func(context.Context, entities.TxRepository) error) error {
	return r.s.tx(func(st *state) error {
		return fn(ctx, entityTx{st: st, s: r.s})
	})
}

type entityTx struct {
	st *state
	s  *Store
}

func (t entityTx) InsertEntity(_ context.Context, e entities.Entity) (entities.Entity, bool, error) {
	for _, existing := range t.st.entities {
		if existing.Scope != e.Scope {
			continue
		}
		if e.Scope == shared.ScopeGlobal {
			return entities.Entity{}, false, nil
		}
		if existing.CompanyID != nil && e.CompanyID != nil && *existing.CompanyID == *e.CompanyID {
			return entities.Entity{}, false, nil
		}
	}
	now := t.s.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	t.st.entities[e.ID] = e
	return e, true, nil
}

func (t entityTx) LockEntity(_ context.Context, id uuid.UUID) (entities.Entity, error) {
	e, ok := t.st.entities[id]
	if !ok {
		return entities.Entity{}, shared.ErrEntityNotFound
	}
	return e, nil
}

func (t entityTx) Chart() accounts.TxRepository { return chartTx{t.st} }

type accountRepo struct{ s *Store }

func (r accountRepo) Chart(_ context.Context, entityID uuid.UUID) (accounts.Chart, error) {
	chart := accounts.Chart{EntityID: entityID}
	r.s.locked(func(st *state) {
		for _, h := range st.headings {
			if h.EntityID == entityID {
				chart.Headings = append(chart.Headings, h)
			}
		}
		for _, sh := range st.subheadings {
			if sh.EntityID == entityID {
				chart.Subheadings = append(chart.Subheadings, sh)
			}
		}
		for _, g := range st.groups {
			if g.EntityID == entityID {
				chart.Groups = append(chart.Groups, g)
			}
		}
		for _, a := range st.accounts {
			if a.EntityID == entityID {
				chart.Accounts = append(chart.Accounts, a)
			}
		}
	})
	sort.Slice(chart.Headings, func(i, j int) bool { return chart.Headings[i].Code < chart.Headings[j].Code })
	sort.Slice(chart.Subheadings, func(i, j int) bool { return chart.Subheadings[i].Code < chart.Subheadings[j].Code })
	sort.Slice(chart.Groups, func(i, j int) bool { return chart.Groups[i].Code < chart.Groups[j].Code })
	sort.Slice(chart.Accounts, func(i, j int) bool { return chart.Accounts[i].Code < chart.Accounts[j].Code })
	return chart, nil
}

func (r accountRepo) GetAccount(ctx context.Context, id uuid.UUID) (accounts.Account, error) {
	var (
		out accounts.Account
		err error
	)
	r.s.locked(func(st *state) { out, err = chartTx{st}.GetAccountForUpdate(ctx, id) })
	return out, err
}

func (r accountRepo) WithTx(ctx context.Context, fn func(context.Context, accounts.TxRepository) error) error {
	return r.s.tx(func(st *state) error { return fn(ctx, chartTx{st}) })
}

type chartTx struct{ st *state }

func (t chartTx) GetHeading(_ context.Context, id uuid.UUID) (accounts.Heading, error) {
	h, ok := t.st.headings[id]
	if !ok {
		return accounts.Heading{}, shared.ErrInvalidHierarchy
	}
	return h, nil
}

func (t chartTx) GetSubheading(_ context.Context, id uuid.UUID) (accounts.Subheading, error) {
	sh, ok := t.st.subheadings[id]
	if !ok {
		return accounts.Subheading{}, shared.ErrInvalidHierarchy
	}
	return sh, nil
}

func (t chartTx) GetGroup(_ context.Context, id uuid.UUID) (accounts.Group, error) {
	g, ok := t.st.groups[id]
	if !ok {
		return accounts.Group{}, shared.ErrInvalidHierarchy
	}
	return g, nil
}

func (t chartTx) InsertHeading(_ context.Context, h accounts.Heading) (accounts.Heading, error) {
	for _, existing := range t.st.headings {
		if existing.EntityID == h.EntityID && existing.Code == h.Code {
			return accounts.Heading{}, shared.ErrDuplicateAccountCode
		}
	}
	t.st.headings[h.ID] = h
	return h, nil
}

func (t chartTx) InsertSubheading(_ context.Context, sh accounts.Subheading) (accounts.Subheading, error) {
	if _, ok := t.st.headings[sh.HeadingID]; !ok {
		return accounts.Subheading{}, shared.ErrInvalidHierarchy
	}
	for _, existing := range t.st.subheadings {
		if existing.EntityID == sh.EntityID && existing.Code == sh.Code {
			return accounts.Subheading{}, shared.ErrDuplicateAccountCode
		}
	}
	t.st.subheadings[sh.ID] = sh
	return sh, nil
}

func (t chartTx) InsertGroup(_ context.Context, g accounts.Group) (accounts.Group, error) {
	if _, ok := t.st.subheadings[g.SubheadingID]; !ok {
		return accounts.Group{}, shared.ErrInvalidHierarchy
	}
	for _, existing := range t.st.groups {
		if existing.EntityID == g.EntityID && existing.Code == g.Code {
			return accounts.Group{}, shared.ErrDuplicateAccountCode
		}
	}
	t.st.groups[g.ID] = g
	return g, nil
}

func (t chartTx) InsertAccount(_ context.Context, a accounts.Account) (accounts.Account, error) {
	if _, ok := t.st.groups[a.GroupID]; !ok {
		return accounts.Account{}, shared.ErrInvalidHierarchy
	}
	if t.codeTaken(a) {
		return accounts.Account{}, shared.ErrDuplicateAccountCode
	}
	t.st.accounts[a.ID] = a
	return a, nil
}

func (t chartTx) codeTaken(a accounts.Account) bool {
	for _, existing := range t.st.accounts {
		if existing.ID != a.ID && existing.EntityID == a.EntityID && existing.Code == a.Code {
			return true
		}
	}
	return false
}

func (t chartTx) GetAccountForUpdate(_ context.Context, id uuid.UUID) (accounts.Account, error) {
	a, ok := t.st.accounts[id]
	if !ok {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	return a, nil
}

func (t chartTx) UpdateAccount(_ context.Context, a accounts.Account) (accounts.Account, error) {
	if _, ok := t.st.accounts[a.ID]; !ok {
		return accounts.Account{}, shared.ErrAccountNotFound
	}
	if t.codeTaken(a) {
		return accounts.Account{}, shared.ErrDuplicateAccountCode
	}
	t.st.accounts[a.ID] = a
	return a, nil
}

func (t chartTx) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	if n, _ := t.CountLines(ctx, id, false); n > 0 {
		return shared.ErrAccountInUse
	}
	if _, ok := t.st.accounts[id]; !ok {
		return shared.ErrAccountNotFound
	}
	delete(t.st.accounts, id)
	return nil
}

func (t chartTx) CountAccounts(_ context.Context, entityID uuid.UUID) (int, error) {
	n := 0
	for _, a := range t.st.accounts {
		if a.EntityID == entityID {
			n++
		}
	}
	return n, nil
}

func (t chartTx) CountLines(_ context.Context, accountID uuid.UUID, postedOnly bool) (int, error) {
	n := 0
	for journalID, lines := range t.st.lines {
		if postedOnly && t.st.journals[journalID].Status != journals.StatusPosted {
			continue
		}
		for _, l := range lines {
			if l.AccountID == accountID {
				n++
			}
		}
	}
	return n, nil
}
