package accounts

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	platform "github.com/odyssey-erp/odyssey-books/internal/shared"
)

// CacheInvalidator drops derived report data of an entity after a write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, entityID uuid.UUID) error
}

// Service maintains the chart of accounts of each entity.
type Service struct {
	repo        Repository
	audit       shared.AuditPort
	invalidator CacheInvalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the chart service. A nil invalidator leaves report
// caches untouched.
func NewService(repo Repository, audit shared.AuditPort, invalidator CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, invalidator: invalidator, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Chart returns the full hierarchy of an entity.
func (s *Service) Chart(ctx context.Context, entityID uuid.UUID) (Chart, error) {
	chart, err := s.repo.Chart(ctx, entityID)
	if err != nil {
		return Chart{}, err
	}
	for _, a := range chart.Accounts {
		if a.EntityID != entityID {
			return Chart{}, shared.Isolation("chart", entityID, a.EntityID.String())
		}
	}
	return chart, nil
}

// Account loads one account and checks it belongs to entityID.
func (s *Service) Account(ctx context.Context, entityID, accountID uuid.UUID) (Account, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return Account{}, err
	}
	if account.EntityID != entityID {
		return Account{}, shared.ErrAccountCrossEntity
	}
	return account, nil
}

// CreateHeading adds a top level heading.
func (s *Service) CreateHeading(ctx context.Context, in HeadingInput) (Heading, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Heading{}, shared.ErrNameRequired
	}
	if strings.TrimSpace(in.Code) == "" || !in.Statement.Valid() {
		return Heading{}, shared.ErrInvalidHierarchy
	}
	var heading Heading
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		heading, err = tx.InsertHeading(ctx, Heading{
			ID:        uuid.New(),
			EntityID:  in.EntityID,
			Code:      strings.TrimSpace(in.Code),
			Name:      strings.TrimSpace(in.Name),
			Statement: in.Statement,
		})
		return err
	})
	if err != nil {
		return Heading{}, err
	}
	s.invalidate(ctx, in.EntityID)
	return heading, nil
}

// CreateSubheading adds a subheading under a heading of the same entity.
func (s *Service) CreateSubheading(ctx context.Context, in SubheadingInput) (Subheading, error) {
	if strings.TrimSpace(in.Code) == "" || strings.TrimSpace(in.Name) == "" {
		return Subheading{}, shared.ErrInvalidHierarchy
	}
	var sub Subheading
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		heading, err := tx.GetHeading(ctx, in.HeadingID)
		if err != nil {
			return err
		}
		if heading.EntityID != in.EntityID {
			return shared.ErrInvalidHierarchy
		}
		sub, err = tx.InsertSubheading(ctx, Subheading{
			ID:        uuid.New(),
			EntityID:  in.EntityID,
			HeadingID: heading.ID,
			Code:      strings.TrimSpace(in.Code),
			Name:      strings.TrimSpace(in.Name),
		})
		return err
	})
	if err != nil {
		return Subheading{}, err
	}
	s.invalidate(ctx, in.EntityID)
	return sub, nil
}

// CreateGroup adds a group under a subheading of the same entity.
func (s *Service) CreateGroup(ctx context.Context, in GroupInput) (Group, error) {
	if strings.TrimSpace(in.Code) == "" || strings.TrimSpace(in.Name) == "" {
		return Group{}, shared.ErrInvalidHierarchy
	}
	var group Group
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sub, err := tx.GetSubheading(ctx, in.SubheadingID)
		if err != nil {
			return err
		}
		if sub.EntityID != in.EntityID {
			return shared.ErrInvalidHierarchy
		}
		group, err = tx.InsertGroup(ctx, Group{
			ID:           uuid.New(),
			EntityID:     in.EntityID,
			SubheadingID: sub.ID,
			Code:         strings.TrimSpace(in.Code),
			Name:         strings.TrimSpace(in.Name),
		})
		return err
	})
	if err != nil {
		return Group{}, err
	}
	s.invalidate(ctx, in.EntityID)
	return group, nil
}

// CreateAccount adds a leaf account under a group.
func (s *Service) CreateAccount(ctx context.Context, in AccountInput) (Account, error) {
	code := strings.TrimSpace(in.Code)
	class, err := ClassOf(code)
	if err != nil {
		return Account{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return Account{}, shared.ErrNameRequired
	}
	var account Account
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		heading, sub, group, err := resolveTriple(ctx, tx, in.EntityID, in.GroupID)
		if err != nil {
			return err
		}
		if in.SubheadingID != nil && *in.SubheadingID != sub.ID {
			return shared.ErrInvalidHierarchy
		}
		if in.HeadingID != nil && *in.HeadingID != heading.ID {
			return shared.ErrInvalidHierarchy
		}
		if heading.Statement != class.Statement() {
			return shared.ErrInvalidHierarchy
		}
		account, err = tx.InsertAccount(ctx, Account{
			ID:           uuid.New(),
			EntityID:     in.EntityID,
			Code:         code,
			Name:         strings.TrimSpace(in.Name),
			HeadingID:    heading.ID,
			SubheadingID: sub.ID,
			GroupID:      group.ID,
			IsActive:     true,
		})
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.invalidate(ctx, in.EntityID)
	s.record(ctx, platform.AuditLog{
		ActorID:  in.ActorID,
		EntityID: in.EntityID,
		Action:   "account.create",
		Object:   "account",
		ObjectID: account.ID.String(),
		Meta:     map[string]any{"code": account.Code, "name": account.Name},
	})
	return account, nil
}

// UpdateAccount renames, regroups, recodes or toggles an account.
//
// A code change that moves the account to another class is rejected once any
// posted line references it. Same class recodes of used accounts go through,
// are logged at warn level and audited.
func (s *Service) UpdateAccount(ctx context.Context, in UpdateAccountInput) (Account, error) {
	var (
		account  Account
		previous Account
		usedBy   int
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetAccountForUpdate(ctx, in.AccountID)
		if err != nil {
			return err
		}
		if current.EntityID != in.EntityID {
			return shared.ErrAccountCrossEntity
		}
		previous = current
		next := current
		if in.Name != nil {
			if strings.TrimSpace(*in.Name) == "" {
				return shared.ErrNameRequired
			}
			next.Name = strings.TrimSpace(*in.Name)
		}
		if in.IsActive != nil {
			next.IsActive = *in.IsActive
		}
		if in.Code != nil && strings.TrimSpace(*in.Code) != current.Code {
			code := strings.TrimSpace(*in.Code)
			class, err := ClassOf(code)
			if err != nil {
				return err
			}
			if class != current.Class() {
				posted, err := tx.CountLines(ctx, current.ID, true)
				if err != nil {
					return err
				}
				if posted > 0 {
					return shared.ErrAccountRecodeForbidden
				}
			}
			usedBy, err = tx.CountLines(ctx, current.ID, false)
			if err != nil {
				return err
			}
			next.Code = code
		}
		groupID := current.GroupID
		if in.GroupID != nil {
			groupID = *in.GroupID
		}
		heading, sub, group, err := resolveTriple(ctx, tx, in.EntityID, groupID)
		if err != nil {
			return err
		}
		if heading.Statement != next.Class().Statement() {
			return shared.ErrInvalidHierarchy
		}
		next.HeadingID, next.SubheadingID, next.GroupID = heading.ID, sub.ID, group.ID
		account, err = tx.UpdateAccount(ctx, next)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.invalidate(ctx, in.EntityID)
	meta := map[string]any{"code": account.Code, "name": account.Name, "is_active": account.IsActive}
	action := "account.update"
	if previous.Code != account.Code {
		action = "account.recode"
		meta["previous_code"] = previous.Code
		meta["referencing_lines"] = usedBy
		if usedBy > 0 {
			s.logger.Warn("account recoded with existing lines",
				slog.String("account_id", account.ID.String()),
				slog.String("from", previous.Code),
				slog.String("to", account.Code),
				slog.Int("lines", usedBy))
		}
	}
	s.record(ctx, platform.AuditLog{
		ActorID:  in.ActorID,
		EntityID: in.EntityID,
		Action:   action,
		Object:   "account",
		ObjectID: account.ID.String(),
		Meta:     meta,
	})
	return account, nil
}

// DeleteAccount removes an account that no journal line references.
func (s *Service) DeleteAccount(ctx context.Context, entityID, accountID, actorID uuid.UUID) error {
	var code string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if current.EntityID != entityID {
			return shared.ErrAccountCrossEntity
		}
		lines, err := tx.CountLines(ctx, accountID, false)
		if err != nil {
			return err
		}
		if lines > 0 {
			return shared.ErrAccountInUse
		}
		code = current.Code
		return tx.DeleteAccount(ctx, accountID)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, entityID)
	s.record(ctx, platform.AuditLog{
		ActorID:  actorID,
		EntityID: entityID,
		Action:   "account.delete",
		Object:   "account",
		ObjectID: accountID.String(),
		Meta:     map[string]any{"code": code},
	})
	return nil
}

func resolveTriple(ctx context.Context, tx TxRepository, entityID, groupID uuid.UUID) (Heading, Subheading, Group, error) {
	group, err := tx.GetGroup(ctx, groupID)
	if err != nil {
		return Heading{}, Subheading{}, Group{}, err
	}
	sub, err := tx.GetSubheading(ctx, group.SubheadingID)
	if err != nil {
		return Heading{}, Subheading{}, Group{}, err
	}
	heading, err := tx.GetHeading(ctx, sub.HeadingID)
	if err != nil {
		return Heading{}, Subheading{}, Group{}, err
	}
	if group.EntityID != entityID || sub.EntityID != entityID || heading.EntityID != entityID {
		return Heading{}, Subheading{}, Group{}, shared.ErrInvalidHierarchy
	}
	return heading, sub, group, nil
}

func (s *Service) invalidate(ctx context.Context, entityID uuid.UUID) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, entityID); err != nil {
		s.logger.Warn("report cache invalidate", slog.String("entity_id", entityID.String()), slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, log platform.AuditLog) {
	if s.audit == nil {
		return
	}
	log.At = s.now()
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", log.Action), slog.Any("error", err))
	}
}
