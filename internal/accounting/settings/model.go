package settings

import (
	"time"

	"github.com/google/uuid"
)

// Role names one account mapping of a company.
type Role string

const (
	RoleARControl        Role = "ar_control"
	RoleAPControl        Role = "ap_control"
	RoleSalesRevenue     Role = "sales_revenue"
	RoleWorkshopRevenue  Role = "workshop_revenue"
	RoleRSARevenue       Role = "rsa_revenue"
	RoleRecoveryRevenue  Role = "recovery_revenue"
	RoleCOGS             Role = "cogs"
	RoleLaborCost        Role = "labor_cost"
	RoleInventory        Role = "inventory"
	RoleWIP              Role = "wip"
	RoleVATOutput        Role = "vat_output"
	RoleVATInput         Role = "vat_input"
	RoleDiscountGiven    Role = "discount_given"
	RoleDiscountReceived Role = "discount_received"
	RoleRoundingDiff     Role = "rounding_diff"
	RoleCash             Role = "cash"
	RoleBankClearing     Role = "bank_clearing"
)

// Roles lists every mapping in storage order.
func Roles() []Role {
	return []Role{
		RoleARControl, RoleAPControl, RoleSalesRevenue, RoleWorkshopRevenue, RoleRSARevenue,
		RoleRecoveryRevenue, RoleCOGS, RoleLaborCost, RoleInventory, RoleWIP, RoleVATOutput,
		RoleVATInput, RoleDiscountGiven, RoleDiscountReceived, RoleRoundingDiff, RoleCash,
		RoleBankClearing,
	}
}

// Settings maps operational roles of one company to accounts of its entity.
// Every mapping is optional.
type Settings struct {
	CompanyID          uuid.UUID  `json:"company_id"`
	ARControl          *uuid.UUID `json:"ar_control_account_id"`
	APControl          *uuid.UUID `json:"ap_control_account_id"`
	SalesRevenue       *uuid.UUID `json:"sales_revenue_account_id"`
	WorkshopRevenue    *uuid.UUID `json:"workshop_revenue_account_id"`
	RSARevenue         *uuid.UUID `json:"rsa_revenue_account_id"`
	RecoveryRevenue    *uuid.UUID `json:"recovery_revenue_account_id"`
	COGS               *uuid.UUID `json:"cogs_account_id"`
	LaborCost          *uuid.UUID `json:"labor_cost_account_id"`
	Inventory          *uuid.UUID `json:"inventory_account_id"`
	WIP                *uuid.UUID `json:"wip_account_id"`
	VATOutput          *uuid.UUID `json:"vat_output_account_id"`
	VATInput           *uuid.UUID `json:"vat_input_account_id"`
	DiscountGiven      *uuid.UUID `json:"discount_given_account_id"`
	DiscountReceived   *uuid.UUID `json:"discount_received_account_id"`
	RoundingDifference *uuid.UUID `json:"rounding_diff_account_id"`
	Cash               *uuid.UUID `json:"cash_account_id"`
	BankClearing       *uuid.UUID `json:"bank_clearing_account_id"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (s *Settings) slot(role Role) **uuid.UUID {
	switch role {
	case RoleARControl:
		return &s.ARControl
	case RoleAPControl:
		return &s.APControl
	case RoleSalesRevenue:
		return &s.SalesRevenue
	case RoleWorkshopRevenue:
		return &s.WorkshopRevenue
	case RoleRSARevenue:
		return &s.RSARevenue
	case RoleRecoveryRevenue:
		return &s.RecoveryRevenue
	case RoleCOGS:
		return &s.COGS
	case RoleLaborCost:
		return &s.LaborCost
	case RoleInventory:
		return &s.Inventory
	case RoleWIP:
		return &s.WIP
	case RoleVATOutput:
		return &s.VATOutput
	case RoleVATInput:
		return &s.VATInput
	case RoleDiscountGiven:
		return &s.DiscountGiven
	case RoleDiscountReceived:
		return &s.DiscountReceived
	case RoleRoundingDiff:
		return &s.RoundingDifference
	case RoleCash:
		return &s.Cash
	case RoleBankClearing:
		return &s.BankClearing
	}
	return nil
}

// AccountFor returns the account mapped to role.
func (s Settings) AccountFor(role Role) (uuid.UUID, bool) {
	slot := s.slot(role)
	if slot == nil || *slot == nil {
		return uuid.Nil, false
	}
	return **slot, true
}

// Set assigns or clears the account of role. Unknown roles are ignored.
func (s *Settings) Set(role Role, accountID *uuid.UUID) {
	if slot := s.slot(role); slot != nil {
		*slot = accountID
	}
}

// Mapped returns every assigned mapping.
func (s Settings) Mapped() map[Role]uuid.UUID {
	out := map[Role]uuid.UUID{}
	for _, role := range Roles() {
		if id, ok := s.AccountFor(role); ok {
			out[role] = id
		}
	}
	return out
}

// CashAccounts returns the distinct cash and bank clearing accounts.
func (s Settings) CashAccounts() []uuid.UUID {
	var out []uuid.UUID
	for _, role := range []Role{RoleCash, RoleBankClearing} {
		id, ok := s.AccountFor(role)
		if !ok {
			continue
		}
		if len(out) == 1 && out[0] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}
