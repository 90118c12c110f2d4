package accountinghttp

import (
	"net/http"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/settings"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermSettingsView) {
		return
	}
	rs := scopeFrom(r)
	current, err := h.settings.Get(r.Context(), *rs.companyID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, current)
}

func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermSettingsEdit) {
		return
	}
	var req settings.Settings
	if !h.decode(w, r, &req) {
		return
	}
	rs := scopeFrom(r)
	req.CompanyID = *rs.companyID
	saved, err := h.settings.Upsert(r.Context(), req, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}
