package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	platform "github.com/odyssey-erp/odyssey-books/internal/shared"
)

// EntityResolver resolves the entity a listing runs against.
type EntityResolver interface {
	ResolveEntityID(ctx context.Context, scope shared.Scope, companyID *uuid.UUID) (uuid.UUID, error)
}

// CacheInvalidator drops derived report data of an entity after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, entityID uuid.UUID) error
}

// ServiceConfig collects the journal engine dependencies.
type ServiceConfig struct {
	Repo        Repository
	Resolver    EntityResolver
	Audit       shared.AuditPort
	Invalidator CacheInvalidator
	Metrics     *shared.Metrics
	Logger      *slog.Logger
}

// Service is the authoritative write path of the ledger.
type Service struct {
	repo        Repository
	resolver    EntityResolver
	audit       shared.AuditPort
	invalidator CacheInvalidator
	metrics     *shared.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the journal engine.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        cfg.Repo,
		resolver:    cfg.Resolver,
		audit:       cfg.Audit,
		invalidator: cfg.Invalidator,
		metrics:     cfg.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateDraftJournal validates and persists a draft journal with its lines.
func (s *Service) CreateDraftJournal(ctx context.Context, in DraftInput) (Journal, error) {
	journal, err := s.insert(ctx, in, false)
	if err != nil {
		return Journal{}, err
	}
	s.afterWrite(ctx, "journal.create", in.ActorID, journal, nil)
	return journal, nil
}

// PostJournal validates a journal and stores it already posted, in one
// transaction. It serves trusted upstream postings that skip the draft step.
func (s *Service) PostJournal(ctx context.Context, in DraftInput) (Journal, error) {
	journal, err := s.insert(ctx, in, true)
	if err != nil {
		return Journal{}, err
	}
	s.afterWrite(ctx, "journal.post", in.ActorID, journal, map[string]any{"direct": true})
	return journal, nil
}

func (s *Service) insert(ctx context.Context, in DraftInput, post bool) (Journal, error) {
	if err := s.validate(in); err != nil {
		return Journal{}, err
	}
	var journal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if !in.SkipAccountValidation || post {
			if err := validateAccounts(ctx, tx, in.EntityID, in.Lines, true); err != nil {
				return err
			}
		}
		inserted, err := tx.InsertJournal(ctx, Journal{
			ID:          uuid.New(),
			EntityID:    in.EntityID,
			Date:        shared.DateOnly(in.Date),
			JournalType: journalType(in.JournalType),
			Description: strings.TrimSpace(in.Description),
			Reference:   strings.TrimSpace(in.Reference),
			Status:      StatusDraft,
			CreatedBy:   in.ActorID,
		})
		if err != nil {
			return err
		}
		lines, err := tx.InsertLines(ctx, inserted, in.Lines)
		if err != nil {
			return err
		}
		if post {
			if inserted, err = tx.MarkPosted(ctx, inserted.ID, in.ActorID, s.now().UTC()); err != nil {
				return err
			}
		}
		inserted.Lines = lines
		journal = inserted
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	return journal, nil
}

// UpdateDraftJournal replaces the header and the full line set of a draft.
func (s *Service) UpdateDraftJournal(ctx context.Context, in UpdateDraftInput) (Journal, error) {
	if in.JournalID == uuid.Nil {
		return Journal{}, shared.ErrJournalNotFound
	}
	if err := s.validate(in.DraftInput); err != nil {
		return Journal{}, err
	}
	var journal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetJournalForUpdate(ctx, in.EntityID, in.JournalID)
		if err != nil {
			return err
		}
		if err := s.checkOwner(current, in.EntityID, "journal.update"); err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return shared.ErrJournalNotDraft
		}
		if !in.SkipAccountValidation {
			if err := validateAccounts(ctx, tx, in.EntityID, in.Lines, true); err != nil {
				return err
			}
		}
		current.Date = shared.DateOnly(in.Date)
		current.JournalType = journalType(in.JournalType)
		current.Description = strings.TrimSpace(in.Description)
		current.Reference = strings.TrimSpace(in.Reference)
		updated, err := tx.UpdateJournalHeader(ctx, current)
		if err != nil {
			return err
		}
		if err := tx.DeleteLines(ctx, updated.ID); err != nil {
			return err
		}
		updated.Lines, err = tx.InsertLines(ctx, updated, in.Lines)
		if err != nil {
			return err
		}
		journal = updated
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	s.afterWrite(ctx, "journal.update", in.ActorID, journal, nil)
	return journal, nil
}

// MarkJournalAsPosted moves a draft to posted after re-validating its stored lines.
// Posting twice is an error.
func (s *Service) MarkJournalAsPosted(ctx context.Context, in PostInput) (Journal, error) {
	var journal Journal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetJournalForUpdate(ctx, in.EntityID, in.JournalID)
		if err != nil {
			return err
		}
		if err := s.checkOwner(current, in.EntityID, "journal.post"); err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return shared.ErrJournalNotDraft
		}
		lines, err := tx.ListLines(ctx, current.ID)
		if err != nil {
			return err
		}
		if err := s.checkLines(current.EntityID, lines); err != nil {
			return err
		}
		inputs := toInputs(lines)
		if err := s.validate(DraftInput{EntityID: current.EntityID, Lines: inputs, Date: current.Date}); err != nil {
			return err
		}
		if err := validateAccounts(ctx, tx, current.EntityID, inputs, true); err != nil {
			return err
		}
		posted, err := tx.MarkPosted(ctx, current.ID, in.ActorID, s.now().UTC())
		if err != nil {
			return err
		}
		posted.Lines = lines
		journal = posted
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	s.afterWrite(ctx, "journal.post", in.ActorID, journal, nil)
	return journal, nil
}

// ReverseJournal creates a draft that mirrors every line of a posted journal.
// A journal can be reversed once.
func (s *Service) ReverseJournal(ctx context.Context, in ReverseInput) (Journal, error) {
	var (
		journal  Journal
		original Journal
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetJournalForUpdate(ctx, in.EntityID, in.JournalID)
		if err != nil {
			return err
		}
		if err := s.checkOwner(current, in.EntityID, "journal.reverse"); err != nil {
			return err
		}
		if current.Status != StatusPosted {
			return shared.ErrJournalNotPosted
		}
		if _, found, err := tx.FindReversal(ctx, current.ID); err != nil {
			return err
		} else if found {
			return shared.ErrAlreadyReversed
		}
		lines, err := tx.ListLines(ctx, current.ID)
		if err != nil {
			return err
		}
		if err := s.checkLines(current.EntityID, lines); err != nil {
			return err
		}
		mirrored := mirror(lines)
		if err := validateAccounts(ctx, tx, current.EntityID, mirrored, false); err != nil {
			return err
		}
		date := current.Date
		if in.Date != nil {
			date = shared.DateOnly(*in.Date)
		}
		description := strings.TrimSpace(in.Description)
		if description == "" {
			description = fmt.Sprintf("Reversal of %s", current.DisplayNumber())
		}
		originalID := current.ID
		inserted, err := tx.InsertJournal(ctx, Journal{
			ID:                uuid.New(),
			EntityID:          current.EntityID,
			Date:              date,
			JournalType:       current.JournalType,
			Description:       description,
			Status:            StatusDraft,
			CreatedBy:         in.ActorID,
			ReversesJournalID: &originalID,
		})
		if err != nil {
			return err
		}
		inserted.Lines, err = tx.InsertLines(ctx, inserted, mirrored)
		if err != nil {
			return err
		}
		journal = inserted
		original = current
		return nil
	})
	if err != nil {
		return Journal{}, err
	}
	s.afterWrite(ctx, "journal.reverse", in.ActorID, journal, map[string]any{
		"reverses_journal_id": original.ID.String(),
		"reverses_number":     original.DisplayNumber(),
	})
	return journal, nil
}

// GetJournalWithLines loads a journal of entityID with its lines.
func (s *Service) GetJournalWithLines(ctx context.Context, entityID, journalID uuid.UUID) (Journal, error) {
	journal, err := s.repo.GetJournal(ctx, entityID, journalID)
	if err != nil {
		return Journal{}, err
	}
	if err := s.checkOwner(journal, entityID, "journal.get"); err != nil {
		return Journal{}, err
	}
	if err := s.checkLines(entityID, journal.Lines); err != nil {
		return Journal{}, err
	}
	return journal, nil
}

// ListEntityJournals resolves the entity for the filter and lists its journals,
// newest first.
func (s *Service) ListEntityJournals(ctx context.Context, filter ListFilter) ([]Journal, error) {
	if s.resolver == nil {
		return nil, errors.New("journals: resolver not configured")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("journals: unknown status %q", filter.Status)
	}
	entityID, err := s.resolver.ResolveEntityID(ctx, filter.Scope, filter.CompanyID)
	if err != nil {
		return nil, err
	}
	q := ListQuery{EntityID: entityID, Status: filter.Status}
	if filter.From != nil {
		from := shared.DateOnly(*filter.From)
		q.From = &from
	}
	if filter.To != nil {
		to := shared.DateOnly(*filter.To)
		q.To = &to
	}
	list, err := s.repo.ListJournals(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, j := range list {
		if err := s.checkOwner(j, entityID, "journal.list"); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (s *Service) validate(in DraftInput) error {
	if in.EntityID == uuid.Nil {
		return shared.ErrEntityNotFound
	}
	if in.Date.IsZero() {
		return shared.ErrInvalidDate
	}
	err := in.Validate()
	if errors.Is(err, shared.ErrUnbalanced) {
		s.metrics.UnbalancedRejected()
	}
	return err
}

func (s *Service) checkOwner(j Journal, entityID uuid.UUID, component string) error {
	if j.EntityID == entityID {
		return nil
	}
	return s.isolation(component, entityID, j.EntityID)
}

func (s *Service) checkLines(entityID uuid.UUID, lines []Line) error {
	for _, l := range lines {
		if l.EntityID != entityID {
			return s.isolation("journal.lines", entityID, l.EntityID)
		}
	}
	return nil
}

func (s *Service) isolation(component string, want, got uuid.UUID) error {
	s.metrics.IsolationViolation(component)
	s.logger.Error("journal crosses entity boundary",
		slog.String("component", component),
		slog.String("entity_id", want.String()),
		slog.String("found", got.String()))
	return shared.Isolation(component, want, got.String())
}

// afterWrite runs the side effects of a committed write. Failures are logged,
// not returned: the journal is already committed.
func (s *Service) afterWrite(ctx context.Context, action string, actor uuid.UUID, j Journal, extra map[string]any) {
	s.metrics.JournalWritten(action)
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx, j.EntityID); err != nil {
			s.logger.Warn("report cache invalidate", slog.String("entity_id", j.EntityID.String()), slog.Any("error", err))
		}
	}
	if s.audit == nil {
		return
	}
	debit, credit := j.Totals()
	meta := map[string]any{
		"number": j.DisplayNumber(),
		"status": string(j.Status),
		"date":   j.Date.Format(shared.DateLayout),
		"lines":  len(j.Lines),
		"debit":  debit.StringFixed(2),
		"credit": credit.StringFixed(2),
	}
	for k, v := range extra {
		meta[k] = v
	}
	if err := s.audit.Record(ctx, platform.AuditLog{
		ActorID:  actor,
		EntityID: j.EntityID,
		Action:   action,
		Object:   "journal",
		ObjectID: j.ID.String(),
		Meta:     meta,
		At:       s.now(),
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func validateAccounts(ctx context.Context, tx TxRepository, entityID uuid.UUID, lines []LineInput, requireActive bool) error {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}
	found, err := tx.GetAccounts(ctx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		account, ok := found[id]
		if !ok {
			return fmt.Errorf("%w: %s", shared.ErrAccountNotFound, id)
		}
		if account.EntityID != entityID {
			return fmt.Errorf("%w: %s", shared.ErrAccountCrossEntity, account.Code)
		}
		if requireActive && !account.IsActive {
			return fmt.Errorf("%w: %s", shared.ErrAccountInactive, account.Code)
		}
	}
	return nil
}

func journalType(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultJournalType
	}
	return raw
}
