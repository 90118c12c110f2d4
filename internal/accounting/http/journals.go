package accountinghttp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-books/internal/shared"
)

func (h *Handler) listJournals(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermJournalsView) {
		return
	}
	q := newQuery(r.URL.Query())
	filter := journals.ListFilter{
		From:   q.date("from"),
		To:     q.date("to"),
		Status: journals.Status(r.URL.Query().Get("status")),
	}
	if err := q.Err(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.Status != "" && !filter.Status.Valid() {
		httpx.RespondError(w, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, filter.Status))
		return
	}
	rs := scopeFrom(r)
	filter.Scope, filter.CompanyID = rs.scope, rs.companyID
	list, err := h.journals.ListEntityJournals(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]journalResponse, 0, len(list))
	for _, j := range list {
		out = append(out, toJournal(j))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createJournal(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermJournalsEdit) {
		return
	}
	var req journalRequest
	if !h.decode(w, r, &req) {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	in, err := req.input(entityID, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	journal, err := h.journals.CreateDraftJournal(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toJournal(journal))
}

func (h *Handler) createPostedJournal(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermJournalsEdit) || !h.allow(w, r, shared.PermJournalsPost) {
		return
	}
	var req journalRequest
	if !h.decode(w, r, &req) {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	in, err := req.input(entityID, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	journal, err := h.journals.PostJournal(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toJournal(journal))
}

func (h *Handler) getJournal(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermJournalsView) {
		return
	}
	journalID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	journal, err := h.journals.GetJournalWithLines(r.Context(), entityID, journalID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toJournal(journal))
}

func (h *Handler) updateJournal(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermJournalsEdit) {
		return
	}
	journalID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req journalRequest
	if !h.decode(w, r, &req) {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	in, err := req.input(entityID, shared.ActorFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	journal, err := h.journals.UpdateDraftJournal(r.Context(), journals.UpdateDraftInput{JournalID: journalID, DraftInput: in})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toJournal(journal))
}

func (h *Handler) postJournal(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermJournalsPost) {
		return
	}
	journalID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	journal, err := h.journals.MarkJournalAsPosted(r.Context(), journals.PostInput{
		EntityID:  entityID,
		JournalID: journalID,
		ActorID:   shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toJournal(journal))
}

func (h *Handler) reverseJournal(w http.ResponseWriter, r *http.Request) {
	if !h.allow(w, r, shared.PermJournalsEdit) {
		return
	}
	journalID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req reverseRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	entityID, ok := h.entity(w, r)
	if !ok {
		return
	}
	in := journals.ReverseInput{
		EntityID:    entityID,
		JournalID:   journalID,
		Description: req.Description,
		ActorID:     shared.ActorFromContext(r.Context()),
	}
	if req.Date != "" {
		date, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: date: %v", httpx.ErrValidation, err))
			return
		}
		in.Date = &date
	}
	journal, err := h.journals.ReverseJournal(r.Context(), in)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toJournal(journal))
}
