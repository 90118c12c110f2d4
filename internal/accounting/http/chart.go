package accountinghttp

import (
	"net/http"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

func (h *Handler) getChart(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermChartView) {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	chart, err := h.chart.Chart(r.Context(), entityID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toChart(chart))
}

func (h *Handler) createHeading(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermChartEdit) {
		return
	}
	var req headingRequest
	if !h.decode(w, r, &req) {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	heading, err := h.chart.CreateHeading(r.Context(), accounts.HeadingInput{
		EntityID:  entityID,
		Code:      req.Code,
		Name:      req.Name,
		Statement: accounts.Statement(req.Statement),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toHeading(heading))
}

func (h *Handler) createSubheading(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermChartEdit) {
		return
	}
	var req subheadingRequest
	if !h.decode(w, r, &req) {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	sub, err := h.chart.CreateSubheading(r.Context(), accounts.SubheadingInput{
		EntityID:  entityID,
		HeadingID: req.HeadingID,
		Code:      req.Code,
		Name:      req.Name,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toSubheading(sub))
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermChartEdit) {
		return
	}
	var req groupRequest
	if !h.decode(w, r, &req) {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	group, err := h.chart.CreateGroup(r.Context(), accounts.GroupInput{
		EntityID:     entityID,
		SubheadingID: req.SubheadingID,
		Code:         req.Code,
		Name:         req.Name,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toGroup(group))
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermChartEdit) {
		return
	}
	var req accountRequest
	if !h.decode(w, r, &req) {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	account, err := h.chart.CreateAccount(r.Context(), accounts.AccountInput{
		EntityID:     entityID,
		Code:         req.Code,
		Name:         req.Name,
		HeadingID:    req.HeadingID,
		SubheadingID: req.SubheadingID,
		GroupID:      req.GroupID,
		ActorID:      shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccount(account))
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermChartEdit) {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req accountPatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	account, err := h.chart.UpdateAccount(r.Context(), accounts.UpdateAccountInput{
		EntityID:  entityID,
		AccountID: accountID,
		Code:      req.Code,
		Name:      req.Name,
		GroupID:   req.GroupID,
		IsActive:  req.IsActive,
		ActorID:   shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccount(account))
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermChartEdit) {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	if err := h.chart.DeleteAccount(r.Context(), entityID, accountID, shared.ActorFromContext(r.Context())); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) mapStandardAccount(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermChartEdit) {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req standardRequest
	if !h.decode(w, r, &req) {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	account, err := h.chart.MapAccountToStandard(r.Context(), accounts.MapStandardInput{
		EntityID:     entityID,
		AccountID:    accountID,
		StandardCode: req.StandardCode,
		ActorID:      shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccount(account))
}

func (h *Handler) standardAccounts(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermChartView) {
		return
	}
	httpx.JSON(w, http.StatusOK, accounts.StandardAccounts())
}
