// Package ledgertest provides an in-memory ledger store for tests. One Store
// backs every repository interface so services can be exercised end to end
// without Postgres.
package ledgertest

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/entities"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/settings"
)

type state struct {
	entities    map[uuid.UUID]entities.Entity
	headings    map[uuid.UUID]accounts.Heading
	subheadings map[uuid.UUID]accounts.Subheading
	groups      map[uuid.UUID]accounts.Group
	accounts    map[uuid.UUID]accounts.Account
	journals    map[uuid.UUID]journals.Journal
	lines       map[uuid.UUID][]journals.Line
	settings    map[uuid.UUID]settings.Settings
	number      int64
	seq         int64
}

func newState() *state {
	return &state{
		entities:    map[uuid.UUID]entities.Entity{},
		headings:    map[uuid.UUID]accounts.Heading{},
		subheadings: map[uuid.UUID]accounts.Subheading{},
		groups:      map[uuid.UUID]accounts.Group{},
		accounts:    map[uuid.UUID]accounts.Account{},
		journals:    map[uuid.UUID]journals.Journal{},
		lines:       map[uuid.UUID][]journals.Line{},
		settings:    map[uuid.UUID]settings.Settings{},
	}
}

func (s *state) clone() *state {
	out := newState()
	for k, v := range s.entities {
		out.entities[k] = v
	}
	for k, v := range s.headings {
		out.headings[k] = v
	}
	for k, v := range s.subheadings {
		out.subheadings[k] = v
	}
	for k, v := range s.groups {
		out.groups[k] = v
	}
	for k, v := range s.accounts {
		out.accounts[k] = v
	}
	for k, v := range s.journals {
		out.journals[k] = v
	}
	for k, v := range s.lines {
		out.lines[k] = append([]journals.Line(nil), v...)
	}
	for k, v := range s.settings {
		out.settings[k] = v
	}
	out.number, out.seq = s.number, s.seq
	return out
}

// Store is a mutex guarded ledger. Transactions serialise on the mutex and
// roll back by restoring a snapshot.
type Store struct {
	mu  sync.Mutex
	st  *state
	Now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{st: newState(), Now: time.Now}
}

func (s *Store) tx(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(s.st); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) locked(fn func(*state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

// Entities returns the entity repository view.
func (s *Store) Entities() entities.Repository { return entityRepo{s} }

// Accounts returns the chart repository view.
func (s *Store) Accounts() accounts.Repository { return accountRepo{s} }

// Journals returns the journal repository view.
func (s *Store) Journals() journals.Repository { return journalRepo{s} }

// Reports returns the report repository view.
func (s *Store) Reports() *ReportRepo { return &ReportRepo{s: s} }

// Settings returns the settings repository view.
func (s *Store) Settings() settings.Repository { return settingsRepo{s} }

// PutLine writes a raw line, bypassing every service check. Tests use it to
// plant rows that storage should never return for an entity.
func (s *Store) PutLine(l journals.Line) {
	s.locked(func(st *state) {
		st.seq++
		l.Seq = st.seq
		st.lines[l.JournalID] = append(st.lines[l.JournalID], l)
	})
}

// PutJournal writes a raw journal header.
func (s *Store) PutJournal(j journals.Journal) {
	s.locked(func(st *state) {
		if j.Number == 0 {
			st.number++
			j.Number = st.number
		}
		st.journals[j.ID] = j
	})
}

// AccountByCode finds an account of an entity.
func (s *Store) AccountByCode(entityID uuid.UUID, code string) (accounts.Account, bool) {
	var (
		out   accounts.Account
		found bool
	)
	s.locked(func(st *state) {
		for _, a := range st.accounts {
			if a.EntityID == entityID && a.Code == code {
				out, found = a, true
				return
			}
		}
	})
	return out, found
}

// EntityCount returns the number of stored entities.
func (s *Store) EntityCount() int {
	n := 0
	s.locked(func(st *state) { n = len(st.entities) })
	return n
}

func sortEntities(list []entities.Entity) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if (a.CompanyID == nil) != (b.CompanyID == nil) {
			return a.CompanyID == nil
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}
