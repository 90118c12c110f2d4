package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/reports"
	ledger "github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

func newTrialBalanceCommand(e *env) *cobra.Command {
	var (
		company string
		asOf    string
		drafts  bool
		asCSV   bool
	)
	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Print the trial balance of the global entity or one company",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			scope := ledger.ScopeGlobal
			var companyID *uuid.UUID
			if company != "" {
				id, err := uuid.Parse(company)
				if err != nil {
					return fmt.Errorf("--company: %w", err)
				}
				scope, companyID = ledger.ScopeCompany, &id
			}
			var dateTo time.Time
			if asOf != "" {
				parsed, err := ledger.ParseDate(asOf)
				if err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
				dateTo = parsed
			}

			books, closeFn, err := e.ledger(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			entityID, err := books.Resolver.ResolveEntityID(ctx, scope, companyID)
			if err != nil {
				return err
			}
			tb, err := books.Reports.TrialBalance(ctx, reports.TrialBalanceQuery{
				EntityID:      entityID,
				DateTo:        dateTo,
				IncludeDrafts: drafts,
			})
			if err != nil {
				return err
			}
			if asCSV {
				return reports.WriteTrialBalanceCSV(cmd.OutOrStdout(), tb)
			}
			if err := printTrialBalance(cmd.OutOrStdout(), tb); err != nil {
				return err
			}
			if !tb.Balanced {
				return errors.New("trial balance does not balance")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&company, "company", "", "company id (default: global entity)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "cut-off date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&drafts, "drafts", false, "include draft journals")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write CSV instead of a table")
	return cmd
}

func printTrialBalance(w io.Writer, tb reports.TrialBalance) error {
	fmt.Fprintf(w, "TRIAL BALANCE  entity %s  as of %s  (%s)\n\n", tb.EntityID, tb.Window.To.Format(ledger.DateLayout), tb.Currency)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Code\tName\tDebit\tCredit\tBalance\t")
	for _, row := range tb.Rows {
		if row.Debit.IsZero() && row.Credit.IsZero() {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", row.Code, row.Name,
			row.Debit.StringFixed(2), row.Credit.StringFixed(2), row.Balance.StringFixed(2))
	}
	fmt.Fprintf(tw, "\tTOTAL\t%s\t%s\t%s\t\n", tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2), tb.Difference.StringFixed(2))
	if err := tw.Flush(); err != nil {
		return err
	}
	if tb.Balanced {
		fmt.Fprintln(w, "\n[BALANCED]")
	} else {
		fmt.Fprintln(w, "\n[UNBALANCED]")
	}
	return nil
}

func newEntitiesCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List ledger entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			books, closeFn, err := e.ledger(ctx)
			if err != nil {
				return err
			}
			defer closeFn()
			list, err := books.Resolver.List(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSCOPE\tCOMPANY\tNAME\tCURRENCY")
			for _, ent := range list {
				company := "-"
				if ent.CompanyID != nil {
					company = ent.CompanyID.String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", ent.ID, ent.Scope, company, ent.Name, ent.BaseCurrency)
			}
			return tw.Flush()
		},
	}
}
