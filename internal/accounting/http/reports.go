package accountinghttp

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/reports"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

func (h *Handler) trialBalanceQuery(w http.ResponseWriter, r *http.Request) (reports.TrialBalanceQuery, bool) {
	q := newQuery(r.URL.Query())
	tq := reports.TrialBalanceQuery{
		DateTo:        q.dateValue("date_to"),
		IncludeDrafts: q.bool("include_drafts"),
		BranchID:      q.uuid("branch_id"),
		VendorID:      q.uuid("vendor_id"),
	}
	if err := q.Err(); err != nil {
		httpx.RespondError(w, err)
		return tq, false
	}
	entityID, ok := h.entity(w, r)
	tq.EntityID = entityID
	return tq, ok
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermReportsView) {
		return
	}
	q, ok := h.trialBalanceQuery(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r)
	defer cancel()
	tb, err := h.reports.TrialBalance(ctx, q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) trialBalanceCSV(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermReportsView) {
		return
	}
	q, ok := h.trialBalanceQuery(w, r)
	if !ok {
		return
	}
	ctx, cancel := withTimeout(r)
	defer cancel()
	tb, err := h.reports.TrialBalance(ctx, q)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	if err := reports.WriteTrialBalanceCSV(buf, tb); err != nil {
		h.respondError(w, r, fmt.Errorf("render trial balance csv: %w", err))
		return
	}
	filename := fmt.Sprintf("trial_balance_%s.csv", tb.Window.To.Format(dateLayout))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("stream csv", slog.Any("error", err))
	}
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermReportsView) {
		return
	}
	q := newQuery(r.URL.Query())
	bq := reports.BalanceSheetQuery{
		AsOf:          q.date("as_of"),
		From:          q.date("from"),
		To:            q.date("to"),
		IncludeDrafts: q.bool("include_drafts"),
		BranchID:      q.uuid("branch_id"),
	}
	if err := q.Err(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	bq.EntityID = entityID
	ctx, cancel := withTimeout(r)
	defer cancel()
	bs, err := h.reports.BalanceSheet(ctx, bq)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermReportsView) {
		return
	}
	q := newQuery(r.URL.Query())
	pq := reports.ProfitAndLossQuery{
		From:          q.dateValue("from"),
		To:            q.dateValue("to"),
		IncludeDrafts: q.bool("include_drafts"),
		BranchID:      q.uuid("branch_id"),
		VendorID:      q.uuid("vendor_id"),
	}
	if err := q.Err(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	pq.EntityID = entityID
	ctx, cancel := withTimeout(r)
	defer cancel()
	pl, err := h.reports.ProfitAndLoss(ctx, pq)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) cashFlow(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermReportsView) {
		return
	}
	q := newQuery(r.URL.Query())
	cq := reports.CashFlowQuery{
		From:          q.dateValue("from"),
		To:            q.dateValue("to"),
		IncludeDrafts: q.bool("include_drafts"),
	}
	if err := q.Err(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	cq.EntityID = entityID
	ctx, cancel := withTimeout(r)
	defer cancel()
	cf, err := h.reports.CashFlow(ctx, cq)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cf)
}

func (h *Handler) accountStatement(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermReportsView) {
		return
	}
	q := newQuery(r.URL.Query())
	accountID := q.uuid("account_id")
	sq := reports.AccountStatementQuery{
		From:          q.dateValue("from"),
		To:            q.dateValue("to"),
		IncludeDrafts: q.bool("include_drafts"),
	}
	if err := q.Err(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if accountID == nil {
		httpx.RespondError(w, fmt.Errorf("%w: account_id is required", httpx.ErrValidation))
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	sq.EntityID, sq.AccountID = entityID, *accountID
	ctx, cancel := withTimeout(r)
	defer cancel()
	stmt, err := h.reports.AccountStatement(ctx, sq)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stmt)
}

func (h *Handler) ledgerEntries(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermReportsView) {
		return
	}
	q := newQuery(r.URL.Query())
	lq := reports.LedgerEntriesQuery{
		AsOf:          q.dateValue("as_of"),
		IncludeDrafts: q.bool("include_drafts"),
		Limit:         q.limit("limit", reports.MaxEntryLimit),
	}
	if err := q.Err(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	lq.EntityID = entityID
	ctx, cancel := withTimeout(r)
	defer cancel()
	entries, err := h.reports.LedgerEntries(ctx, lq)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermReportsView) {
		return
	}
	q := newQuery(r.URL.Query())
	sq := reports.SummaryQuery{
		AsOf:          q.dateValue("as_of"),
		IncludeDrafts: q.bool("include_drafts"),
		Entries:       q.limit("entries", reports.MaxEntryLimit),
	}
	if err := q.Err(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	sq.EntityID = entityID
	ctx, cancel := withTimeout(r)
	defer cancel()
	sum, err := h.reports.Summary(ctx, sq)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sum)
}
