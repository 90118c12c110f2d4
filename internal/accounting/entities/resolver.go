package entities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/currency"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// Resolver maps a (scope, company) pair to exactly one ledger entity.
type Resolver struct {
	repo         Repository
	logger       *slog.Logger
	metrics      *shared.Metrics
	baseCurrency string
	chart        func() []accounts.HeadingSeed
	// charted holds entities whose chart was seen non-empty by this process.
	charted sync.Map
}

// NewResolver constructs the resolver. New entities are opened in baseCurrency.
func NewResolver(repo Repository, logger *slog.Logger, metrics *shared.Metrics, baseCurrency string) (*Resolver, error) {
	code, err := NormalizeCurrency(baseCurrency)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		repo:         repo,
		logger:       logger,
		metrics:      metrics,
		baseCurrency: code,
		chart:        accounts.DefaultChart,
	}, nil
}

// NormalizeCurrency validates an ISO 4217 code and returns it upper cased.
func NormalizeCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidCurrency, code)
	}
	return unit.String(), nil
}

// ResolveEntityID returns the id of the entity for scope and companyID.
func (r *Resolver) ResolveEntityID(ctx context.Context, scope shared.Scope, companyID *uuid.UUID) (uuid.UUID, error) {
	entity, err := r.Resolve(ctx, scope, companyID)
	if err != nil {
		return uuid.Nil, err
	}
	return entity.ID, nil
}

// Resolve returns the entity for scope and companyID, creating a company
// entity and its default chart on first use. companyID is ignored for the
// global scope.
func (r *Resolver) Resolve(ctx context.Context, scope shared.Scope, companyID *uuid.UUID) (Entity, error) {
	if !scope.Valid() {
		return Entity{}, shared.ErrInvalidScope
	}
	var company *uuid.UUID
	if scope == shared.ScopeCompany {
		if companyID == nil || *companyID == uuid.Nil {
			return Entity{}, shared.ErrInvalidScope
		}
		id := *companyID
		company = &id
	}

	entity, err := r.find(ctx, scope, company)
	switch {
	case errors.Is(err, shared.ErrEntityNotFound):
		entity, err = r.bootstrap(ctx, scope, company)
		if err != nil {
			return Entity{}, err
		}
		r.charted.Store(entity.ID, struct{}{})
	case err != nil:
		return Entity{}, err
	default:
		if err := r.ensureChart(ctx, entity); err != nil {
			return Entity{}, err
		}
	}

	if err := r.verify(entity, scope, company); err != nil {
		return Entity{}, err
	}
	return entity, nil
}

// Entity loads an entity by id.
func (r *Resolver) Entity(ctx context.Context, id uuid.UUID) (Entity, error) {
	return r.repo.Get(ctx, id)
}

// List returns every entity, global first.
func (r *Resolver) List(ctx context.Context) ([]Entity, error) {
	return r.repo.List(ctx)
}

func (r *Resolver) find(ctx context.Context, scope shared.Scope, companyID *uuid.UUID) (Entity, error) {
	if scope == shared.ScopeGlobal {
		return r.repo.FindGlobal(ctx)
	}
	return r.repo.FindByCompany(ctx, *companyID)
}

func (r *Resolver) bootstrap(ctx context.Context, scope shared.Scope, companyID *uuid.UUID) (Entity, error) {
	name := "Global"
	if companyID != nil {
		name = "Company " + companyID.String()
	}
	var (
		created  Entity
		inserted bool
		seeded   int
	)
	err := r.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, inserted, err = tx.InsertEntity(ctx, Entity{
			ID:           uuid.New(),
			Scope:        scope,
			CompanyID:    companyID,
			Name:         name,
			BaseCurrency: r.baseCurrency,
		})
		if err != nil || !inserted {
			return err
		}
		seeded, err = accounts.Seed(ctx, tx.Chart(), created.ID, r.chart())
		return err
	})
	if err != nil {
		return Entity{}, fmt.Errorf("bootstrap entity: %w", err)
	}
	if !inserted {
		// Lost the insert race; the winner's row is visible now.
		return r.find(ctx, scope, companyID)
	}
	r.logger.Info("ledger entity created",
		slog.String("entity_id", created.ID.String()),
		slog.String("scope", string(scope)),
		slog.Int("accounts", seeded))
	return created, nil
}

// ensureChart seeds the default chart of an entity left without accounts.
// The check runs once per entity and process.
func (r *Resolver) ensureChart(ctx context.Context, entity Entity) error {
	if _, ok := r.charted.Load(entity.ID); ok {
		return nil
	}
	n, err := r.repo.CountAccounts(ctx, entity.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		r.charted.Store(entity.ID, struct{}{})
		return nil
	}
	seeded := 0
	err = r.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockEntity(ctx, entity.ID); err != nil {
			return err
		}
		chart := tx.Chart()
		count, err := chart.CountAccounts(ctx, entity.ID)
		if err != nil || count > 0 {
			return err
		}
		seeded, err = accounts.Seed(ctx, chart, entity.ID, r.chart())
		return err
	})
	if err != nil {
		return fmt.Errorf("seed chart: %w", err)
	}
	r.charted.Store(entity.ID, struct{}{})
	if seeded > 0 {
		r.logger.Info("ledger chart seeded", slog.String("entity_id", entity.ID.String()), slog.Int("accounts", seeded))
	}
	return nil
}

func (r *Resolver) verify(entity Entity, scope shared.Scope, companyID *uuid.UUID) error {
	ok := entity.Scope == scope
	if scope == shared.ScopeGlobal {
		ok = ok && entity.CompanyID == nil
	} else {
		ok = ok && entity.CompanyID != nil && *entity.CompanyID == *companyID
	}
	if ok {
		return nil
	}
	found := string(entity.Scope)
	if entity.CompanyID != nil {
		found += "/" + entity.CompanyID.String()
	}
	r.metrics.IsolationViolation("resolver")
	r.logger.Error("entity resolver returned foreign entity",
		slog.String("scope", string(scope)),
		slog.String("entity_id", entity.ID.String()),
		slog.String("found", found))
	return shared.Isolation("resolver", entity.ID, found)
}
