package accountinghttp

import (
	"errors"
	"log/slog"
	"net/http"

	ledger "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
)

// classify maps ledger errors onto the httpx error classes.
func classify(err error) error {
	switch {
	case errors.Is(err, ledger.ErrEntityIsolation):
		return err
	case errors.Is(err, ledger.ErrJournalNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrEntityNotFound),
		errors.Is(err, ledger.ErrSettingsNotFound):
		return httpx.ErrNotFound
	case errors.Is(err, ledger.ErrJournalNotDraft),
		errors.Is(err, ledger.ErrAlreadyReversed),
		errors.Is(err, ledger.ErrDuplicateAccountCode),
		errors.Is(err, ledger.ErrAccountInUse):
		return httpx.ErrDuplicate
	case errors.Is(err, ledger.ErrUnbalanced),
		errors.Is(err, ledger.ErrAccountCrossEntity),
		errors.Is(err, ledger.ErrAccountInactive),
		errors.Is(err, ledger.ErrAccountRecodeForbidden),
		errors.Is(err, ledger.ErrStandardClassMismatch),
		errors.Is(err, ledger.ErrJournalNotPosted):
		return httpx.ErrUnprocessable
	case errors.Is(err, ledger.ErrInvalidScope),
		errors.Is(err, ledger.ErrInvalidDate),
		errors.Is(err, ledger.ErrNoLines),
		errors.Is(err, ledger.ErrNegativeAmount),
		errors.Is(err, ledger.ErrAmountOutOfRange),
		errors.Is(err, ledger.ErrStandardAccountNotFound),
		errors.Is(err, ledger.ErrInvalidAccountCode),
		errors.Is(err, ledger.ErrNameRequired),
		errors.Is(err, ledger.ErrInvalidHierarchy),
		errors.Is(err, ledger.ErrInvalidCurrency):
		return httpx.ErrValidation
	}
	return err
}

// respondError writes the problem document for err. Server side failures
// are logged and never echo their message.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := httpx.StatusOf(classify(err))
	if status != http.StatusInternalServerError {
		httpx.Problem(w, status, title, err.Error())
		return
	}
	msg := "accounting request failed"
	if errors.Is(err, ledger.ErrEntityIsolation) {
		msg = "entity isolation violation"
	}
	h.logger.Error(msg,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	httpx.Problem(w, status, title, "")
}
