package reports

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// CheckIntegrity recomputes the trial balance of an entity from storage,
// skipping the cache, and lists posted journals that do not balance.
func (s *Service) CheckIntegrity(ctx context.Context, entityID uuid.UUID, asOf time.Time) (Integrity, error) {
	entity, err := s.entity(ctx, entityID)
	if err != nil {
		return Integrity{}, err
	}
	window := AsOf(s.dateOr(asOf))
	balances, err := s.balances(ctx, entity, "integrity", BalanceQuery{EntityID: entity.ID, Window: window})
	if err != nil {
		return Integrity{}, err
	}
	tb := BuildTrialBalance(balances, window)
	unbalanced, err := s.repo.UnbalancedJournals(ctx, entity.ID, window.To)
	if err != nil {
		return Integrity{}, err
	}
	for i := range unbalanced {
		unbalanced[i].Debit = shared.Round(unbalanced[i].Debit)
		unbalanced[i].Credit = shared.Round(unbalanced[i].Credit)
	}
	out := Integrity{
		EntityID:   entity.ID,
		AsOf:       window.To,
		Difference: tb.Difference,
		Unbalanced: unbalanced,
	}
	if !out.OK() {
		s.logger.Error("ledger integrity violation",
			slog.String("entity_id", entity.ID.String()),
			slog.String("as_of", window.To.Format(shared.DateLayout)),
			slog.String("difference", out.Difference.String()),
			slog.Int("unbalanced_journals", len(unbalanced)))
	}
	return out, nil
}
