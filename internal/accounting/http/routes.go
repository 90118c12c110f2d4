package accountinghttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	ledger "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

// MountRoutes registers the ledger API under /api/accounting.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Route("/api/accounting", func(r chi.Router) {
		r.Route("/global", func(r chi.Router) {
			r.Use(scoped(ledger.ScopeGlobal))
			h.mountLedger(r)
		})
		r.Route("/companies/{companyID}", func(r chi.Router) {
			r.Use(scoped(ledger.ScopeCompany))
			h.mountLedger(r)
			r.Get("/settings", h.getSettings)
			r.Put("/settings", h.putSettings)
		})
	})
}

func (h *Handler) mountLedger(r chi.Router) {
	r.Get("/journals", h.listJournals)
	r.Post("/journals", h.createJournal)
	r.Post("/journals/posted", h.createPostedJournal)
	r.Get("/journals/{id}", h.getJournal)
	r.Put("/journals/{id}", h.updateJournal)
	r.Post("/journals/{id}/post", h.postJournal)
	r.Post("/journals/{id}/reverse", h.reverseJournal)

	r.Get("/chart", h.getChart)
	r.Post("/headings", h.createHeading)
	r.Post("/subheadings", h.createSubheading)
	r.Post("/groups", h.createGroup)
	r.Post("/accounts", h.createAccount)
	r.Patch("/accounts/{id}", h.updateAccount)
	r.Delete("/accounts/{id}", h.deleteAccount)
	r.Put("/accounts/{id}/standard", h.mapStandardAccount)
	r.Get("/standard-accounts", h.standardAccounts)

	r.Get("/reports/trial-balance", h.trialBalance)
	r.Get("/reports/balance-sheet", h.balanceSheet)
	r.Get("/reports/pnl", h.profitAndLoss)
	r.Get("/reports/cash-flow", h.cashFlow)
	r.Get("/reports/account-statement", h.accountStatement)
	r.Get("/reports/ledger-entries", h.ledgerEntries)
	r.Get("/summary", h.summary)
	r.Group(func(gr chi.Router) {
		gr.Use(exportLimiter())
		gr.Get("/reports/trial-balance.csv", h.trialBalanceCSV)
	})
}

func exportLimiter() func(http.Handler) http.Handler {
	return httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit exceeded")
		}),
	)
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor := shared.ActorFromContext(r.Context()); actor != uuid.Nil {
		return "user:" + actor.String(), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
