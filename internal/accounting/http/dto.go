package accountinghttp

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/journals"
	ledger "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
)

const dateLayout = ledger.DateLayout

type lineRequest struct {
	AccountID   uuid.UUID  `json:"account_id" validate:"required"`
	Description string     `json:"description" validate:"max=500"`
	Debit       string     `json:"debit" validate:"omitempty,numeric"`
	Credit      string     `json:"credit" validate:"omitempty,numeric"`
	EmployeeID  *uuid.UUID `json:"employee_id"`
	BranchID    *uuid.UUID `json:"branch_id"`
	VendorID    *uuid.UUID `json:"vendor_id"`
}

type journalRequest struct {
	Date        string        `json:"date" validate:"required,datetime=2006-01-02"`
	JournalType string        `json:"journal_type" validate:"max=50"`
	Description string        `json:"description" validate:"max=500"`
	Reference   string        `json:"reference" validate:"max=100"`
	Lines       []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (req journalRequest) input(entityID, actorID uuid.UUID) (journals.DraftInput, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return journals.DraftInput{}, fmt.Errorf("%w: date: %v", httpx.ErrValidation, err)
	}
	lines := make([]journals.LineInput, 0, len(req.Lines))
	for i, l := range req.Lines {
		debit, err := amount(l.Debit)
		if err != nil {
			return journals.DraftInput{}, fmt.Errorf("%w: lines[%d].debit: %v", httpx.ErrValidation, i, err)
		}
		credit, err := amount(l.Credit)
		if err != nil {
			return journals.DraftInput{}, fmt.Errorf("%w: lines[%d].credit: %v", httpx.ErrValidation, i, err)
		}
		lines = append(lines, journals.LineInput{
			AccountID:   l.AccountID,
			Description: strings.TrimSpace(l.Description),
			Debit:       debit,
			Credit:      credit,
			Dimensions: journals.Dimensions{
				EmployeeID: l.EmployeeID,
				BranchID:   l.BranchID,
				VendorID:   l.VendorID,
			},
		})
	}
	return journals.DraftInput{
		EntityID:    entityID,
		Date:        date,
		JournalType: req.JournalType,
		Description: strings.TrimSpace(req.Description),
		Reference:   strings.TrimSpace(req.Reference),
		Lines:       lines,
		ActorID:     actorID,
	}, nil
}

func amount(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, err
	}
	if !ledger.InRange(d) {
		return decimal.Zero, ledger.ErrAmountOutOfRange
	}
	return d, nil
}

type reverseRequest struct {
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description string `json:"description" validate:"max=500"`
}

type headingRequest struct {
	Code      string `json:"code" validate:"required,max=20"`
	Name      string `json:"name" validate:"required,max=200"`
	Statement string `json:"statement" validate:"required,oneof=balance_sheet profit_and_loss"`
}

type subheadingRequest struct {
	HeadingID uuid.UUID `json:"heading_id" validate:"required"`
	Code      string    `json:"code" validate:"required,max=20"`
	Name      string    `json:"name" validate:"required,max=200"`
}

type groupRequest struct {
	SubheadingID uuid.UUID `json:"subheading_id" validate:"required"`
	Code         string    `json:"code" validate:"required,max=20"`
	Name         string    `json:"name" validate:"required,max=200"`
}

type accountRequest struct {
	Code         string     `json:"code" validate:"required,numeric,max=20"`
	Name         string     `json:"name" validate:"required,max=200"`
	GroupID      uuid.UUID  `json:"group_id" validate:"required"`
	SubheadingID *uuid.UUID `json:"subheading_id"`
	HeadingID    *uuid.UUID `json:"heading_id"`
}

type accountPatchRequest struct {
	Code     *string    `json:"code" validate:"omitempty,numeric,max=20"`
	Name     *string    `json:"name" validate:"omitempty,max=200"`
	GroupID  *uuid.UUID `json:"group_id"`
	IsActive *bool      `json:"is_active"`
}

// standardRequest links an account to a standard catalog code. An empty code
// clears the link.
type standardRequest struct {
	StandardCode string `json:"standard_code" validate:"omitempty,numeric,max=20"`
}

type lineResponse struct {
	ID          uuid.UUID  `json:"id"`
	LineNo      int        `json:"line_no"`
	AccountID   uuid.UUID  `json:"account_id"`
	Description string     `json:"description,omitempty"`
	Debit       string     `json:"debit"`
	Credit      string     `json:"credit"`
	EmployeeID  *uuid.UUID `json:"employee_id,omitempty"`
	BranchID    *uuid.UUID `json:"branch_id,omitempty"`
	VendorID    *uuid.UUID `json:"vendor_id,omitempty"`
}

type journalResponse struct {
	ID                uuid.UUID      `json:"id"`
	EntityID          uuid.UUID      `json:"entity_id"`
	Number            string         `json:"number"`
	Date              string         `json:"date"`
	JournalType       string         `json:"journal_type"`
	Description       string         `json:"description,omitempty"`
	Reference         string         `json:"reference,omitempty"`
	Status            string         `json:"status"`
	PostedAt          *time.Time     `json:"posted_at,omitempty"`
	ReversesJournalID *uuid.UUID     `json:"reverses_journal_id,omitempty"`
	TotalDebit        string         `json:"total_debit"`
	TotalCredit       string         `json:"total_credit"`
	Lines             []lineResponse `json:"lines,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

func toJournal(j journals.Journal) journalResponse {
	debit, credit := j.Totals()
	out := journalResponse{
		ID:                j.ID,
		EntityID:          j.EntityID,
		Number:            j.DisplayNumber(),
		Date:              j.Date.Format(dateLayout),
		JournalType:       j.JournalType,
		Description:       j.Description,
		Reference:         j.Reference,
		Status:            string(j.Status),
		PostedAt:          j.PostedAt,
		ReversesJournalID: j.ReversesJournalID,
		TotalDebit:        ledger.Round(debit).StringFixed(2),
		TotalCredit:       ledger.Round(credit).StringFixed(2),
		CreatedAt:         j.CreatedAt,
	}
	for _, l := range j.Lines {
		out.Lines = append(out.Lines, lineResponse{
			ID:          l.ID,
			LineNo:      l.LineNo,
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit.StringFixed(2),
			Credit:      l.Credit.StringFixed(2),
			EmployeeID:  l.Dimensions.EmployeeID,
			BranchID:    l.Dimensions.BranchID,
			VendorID:    l.Dimensions.VendorID,
		})
	}
	return out
}

type nodeResponse struct {
	ID       uuid.UUID  `json:"id"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
	Code     string     `json:"code"`
	Name     string     `json:"name"`
}

type headingResponse struct {
	nodeResponse
	Statement string `json:"statement"`
}

type accountResponse struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Class        string    `json:"class"`
	HeadingID    uuid.UUID `json:"heading_id"`
	SubheadingID uuid.UUID `json:"subheading_id"`
	GroupID      uuid.UUID `json:"group_id"`
	IsActive     bool      `json:"is_active"`
	StandardCode string    `json:"standard_code,omitempty"`
}

type chartResponse struct {
	EntityID    uuid.UUID         `json:"entity_id"`
	Headings    []headingResponse `json:"headings"`
	Subheadings []nodeResponse    `json:"subheadings"`
	Groups      []nodeResponse    `json:"groups"`
	Accounts    []accountResponse `json:"accounts"`
}

func toHeading(h accounts.Heading) headingResponse {
	return headingResponse{nodeResponse: nodeResponse{ID: h.ID, Code: h.Code, Name: h.Name}, Statement: string(h.Statement)}
}

func toSubheading(s accounts.Subheading) nodeResponse {
	parent := s.HeadingID
	return nodeResponse{ID: s.ID, ParentID: &parent, Code: s.Code, Name: s.Name}
}

func toGroup(g accounts.Group) nodeResponse {
	parent := g.SubheadingID
	return nodeResponse{ID: g.ID, ParentID: &parent, Code: g.Code, Name: g.Name}
}

func toAccount(a accounts.Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Code:         a.Code,
		Name:         a.Name,
		Class:        a.Class().String(),
		HeadingID:    a.HeadingID,
		SubheadingID: a.SubheadingID,
		GroupID:      a.GroupID,
		IsActive:     a.IsActive,
		StandardCode: a.StandardCode,
	}
}

func toChart(c accounts.Chart) chartResponse {
	out := chartResponse{
		EntityID:    c.EntityID,
		Headings:    make([]headingResponse, 0, len(c.Headings)),
		Subheadings: make([]nodeResponse, 0, len(c.Subheadings)),
		Groups:      make([]nodeResponse, 0, len(c.Groups)),
		Accounts:    make([]accountResponse, 0, len(c.Accounts)),
	}
	for _, h := range c.Headings {
		out.Headings = append(out.Headings, toHeading(h))
	}
	for _, s := range c.Subheadings {
		out.Subheadings = append(out.Subheadings, toSubheading(s))
	}
	for _, g := range c.Groups {
		out.Groups = append(out.Groups, toGroup(g))
	}
	for _, a := range c.Accounts {
		out.Accounts = append(out.Accounts, toAccount(a))
	}
	return out
}
