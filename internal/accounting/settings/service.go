package settings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	platform "github.com/odyssey-erp/odyssey-books/internal/shared"
)

// EntityResolver resolves the ledger entity of a company.
type EntityResolver interface {
	ResolveEntityID(ctx context.Context, scope shared.Scope, companyID *uuid.UUID) (uuid.UUID, error)
}

// AccountSource loads single accounts.
type AccountSource interface {
	GetAccount(ctx context.Context, id uuid.UUID) (accounts.Account, error)
}

// Service maintains per company account mappings.
type Service struct {
	repo     Repository
	resolver EntityResolver
	accounts AccountSource
	audit    shared.AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the settings service.
func NewService(repo Repository, resolver EntityResolver, accounts AccountSource, audit shared.AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, resolver: resolver, accounts: accounts, audit: audit, logger: logger, now: time.Now}
}

// Get returns the mappings of a company or ErrSettingsNotFound.
func (s *Service) Get(ctx context.Context, companyID uuid.UUID) (Settings, error) {
	if companyID == uuid.Nil {
		return Settings{}, shared.ErrInvalidScope
	}
	return s.repo.Get(ctx, companyID)
}

// Upsert replaces the mappings of a company. Every mapped account must
// belong to the company's ledger entity.
func (s *Service) Upsert(ctx context.Context, in Settings, actorID uuid.UUID) (Settings, error) {
	if in.CompanyID == uuid.Nil {
		return Settings{}, shared.ErrInvalidScope
	}
	companyID := in.CompanyID
	entityID, err := s.resolver.ResolveEntityID(ctx, shared.ScopeCompany, &companyID)
	if err != nil {
		return Settings{}, err
	}
	mapped := in.Mapped()
	for _, role := range Roles() {
		id, ok := mapped[role]
		if !ok {
			continue
		}
		account, err := s.accounts.GetAccount(ctx, id)
		if err != nil {
			return Settings{}, fmt.Errorf("%s: %w", role, err)
		}
		if account.EntityID != entityID {
			return Settings{}, fmt.Errorf("%s: %w", role, shared.ErrAccountCrossEntity)
		}
	}
	saved, err := s.repo.Upsert(ctx, in)
	if err != nil {
		return Settings{}, err
	}
	if s.audit != nil {
		meta := map[string]any{"company_id": companyID.String()}
		for role, id := range mapped {
			meta[string(role)] = id.String()
		}
		err := s.audit.Record(ctx, platform.AuditLog{
			ActorID:  actorID,
			EntityID: entityID,
			Action:   "settings.update",
			Object:   "company_accounting_settings",
			ObjectID: companyID.String(),
			Meta:     meta,
			At:       s.now(),
		})
		if err != nil {
			s.logger.Warn("audit record failed", slog.String("action", "settings.update"), slog.Any("error", err))
		}
	}
	return saved, nil
}

// CashAccounts returns the cash and bank clearing accounts of a company.
func (s *Service) CashAccounts(ctx context.Context, companyID uuid.UUID) ([]uuid.UUID, error) {
	settings, err := s.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return settings.CashAccounts(), nil
}

// ControlAccounts returns the receivable and payable control accounts of a
// company. Unmapped roles come back empty.
func (s *Service) ControlAccounts(ctx context.Context, companyID uuid.UUID) (receivable, payable []uuid.UUID, err error) {
	settings, err := s.Get(ctx, companyID)
	if err != nil {
		return nil, nil, err
	}
	if settings.ARControl != nil {
		receivable = []uuid.UUID{*settings.ARControl}
	}
	if settings.APControl != nil {
		payable = []uuid.UUID{*settings.APControl}
	}
	return receivable, payable, nil
}
