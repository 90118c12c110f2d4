package reports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads aggregated ledger data for reports.
type Repository interface {
	// AccountBalances returns one row per chart account of the entity, with
	// zero totals for accounts without matching lines.
	AccountBalances(ctx context.Context, q BalanceQuery) ([]AccountBalance, error)
	// Movements returns the lines of one account ordered by journal date and
	// line insertion sequence.
	Movements(ctx context.Context, q MovementQuery) ([]Movement, error)
	// UnbalancedJournals lists posted journals of the entity dated up to asOf
	// whose debit and credit totals differ.
	UnbalancedJournals(ctx context.Context, entityID uuid.UUID, asOf time.Time) ([]JournalImbalance, error)
	// RecentLines returns the latest lines of the entity, newest first. Each
	// balance runs over every matching line, not only the returned ones.
	RecentLines(ctx context.Context, q LedgerEntriesQuery) ([]LedgerEntry, error)
	// CountJournals counts the journals of the entity inside window.
	CountJournals(ctx context.Context, entityID uuid.UUID, window Window, includeDrafts bool) (int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx backed report repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const balancesSQL = `
SELECT a.entity_id, e.company_id, a.id, a.code, a.name, a.standard_code,
       h.id, h.name, s.id, s.name, g.id, g.name,
       COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM accounts a
JOIN ledger_entities e ON e.id = a.entity_id
JOIN account_headings h ON h.id = a.heading_id
JOIN account_subheadings s ON s.id = a.subheading_id
JOIN account_groups g ON g.id = a.group_id
LEFT JOIN (
    SELECT jl.account_id, jl.debit, jl.credit
    FROM journal_lines jl
    JOIN journals j ON j.id = jl.journal_id
    WHERE jl.entity_id = $1
      AND j.entity_id = $1
      AND ($2::date IS NULL OR j.date >= $2::date)
      AND j.date <= $3::date
      AND (j.status = 'posted' OR $4::boolean)
      AND ($5::uuid IS NULL OR jl.branch_id = $5::uuid)
      AND ($6::uuid IS NULL OR jl.vendor_id = $6::uuid)
) l ON l.account_id = a.id
WHERE a.entity_id = $1
  AND ($7::uuid[] IS NULL OR a.id = ANY($7::uuid[]))
GROUP BY a.entity_id, e.company_id, a.id, a.code, a.name, a.standard_code, h.id, h.name, s.id, s.name, g.id, g.name
ORDER BY a.code`

func (r *repository) AccountBalances(ctx context.Context, q BalanceQuery) ([]AccountBalance, error) {
	var ids []string
	for _, id := range q.AccountIDs {
		ids = append(ids, id.String())
	}
	rows, err := r.db.Query(ctx, balancesSQL,
		q.EntityID, q.Window.From, q.Window.To, q.IncludeDrafts, q.BranchID, q.VendorID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.EntityID, &b.CompanyID, &b.AccountID, &b.Code, &b.Name, &b.StandardCode,
			&b.HeadingID, &b.HeadingName, &b.SubheadingID, &b.SubheadingName, &b.GroupID, &b.GroupName,
			&b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const movementsSQL = `
SELECT jl.entity_id, e.company_id, j.id, j.number, j.reference, j.date, j.status,
       jl.seq, jl.line_no, jl.account_id, COALESCE(NULLIF(jl.description, ''), j.description),
       jl.debit, jl.credit
FROM journal_lines jl
JOIN journals j ON j.id = jl.journal_id
JOIN ledger_entities e ON e.id = jl.entity_id
WHERE jl.entity_id = $1
  AND jl.account_id = $2
  AND ($3::date IS NULL OR j.date >= $3::date)
  AND j.date <= $4::date
  AND (j.status = 'posted' OR $5::boolean)
ORDER BY j.date, jl.seq`

func (r *repository) Movements(ctx context.Context, q MovementQuery) ([]Movement, error) {
	rows, err := r.db.Query(ctx, movementsSQL, q.EntityID, q.AccountID, q.Window.From, q.Window.To, q.IncludeDrafts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Movement, error) {
		var m Movement
		err := row.Scan(&m.EntityID, &m.CompanyID, &m.JournalID, &m.JournalNumber, &m.Reference, &m.Date, &m.Status,
			&m.Seq, &m.LineNo, &m.AccountID, &m.Description, &m.Debit, &m.Credit)
		return m, err
	})
}

const unbalancedSQL = `
SELECT j.id, j.number, j.date, COALESCE(SUM(jl.debit), 0), COALESCE(SUM(jl.credit), 0)
FROM journals j
LEFT JOIN journal_lines jl ON jl.journal_id = j.id
WHERE j.entity_id = $1
  AND j.status = 'posted'
  AND j.date <= $2::date
GROUP BY j.id, j.number, j.date
HAVING COALESCE(SUM(jl.debit), 0) <> COALESCE(SUM(jl.credit), 0)
ORDER BY j.date, j.number`

func (r *repository) UnbalancedJournals(ctx context.Context, entityID uuid.UUID, asOf time.Time) ([]JournalImbalance, error) {
	rows, err := r.db.Query(ctx, unbalancedSQL, entityID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (JournalImbalance, error) {
		var ji JournalImbalance
		err := row.Scan(&ji.JournalID, &ji.Number, &ji.Date, &ji.Debit, &ji.Credit)
		return ji, err
	})
}

const recentLinesSQL = `
WITH ordered AS (
    SELECT jl.entity_id, e.company_id, jl.id AS line_id, j.id AS journal_id, j.number, j.date, j.status,
           jl.seq, jl.account_id, a.code, COALESCE(NULLIF(jl.description, ''), j.description) AS description,
           jl.debit, jl.credit,
           SUM(jl.debit - jl.credit) OVER (ORDER BY j.date, jl.seq) AS balance
    FROM journal_lines jl
    JOIN journals j ON j.id = jl.journal_id
    JOIN accounts a ON a.id = jl.account_id
    JOIN ledger_entities e ON e.id = jl.entity_id
    WHERE jl.entity_id = $1
      AND j.entity_id = $1
      AND j.date <= $2::date
      AND (j.status = 'posted' OR $3::boolean)
)
SELECT entity_id, company_id, line_id, journal_id, number, date, status, seq, account_id, code, description, debit, credit, balance
FROM ordered
ORDER BY date DESC, seq DESC
LIMIT $4`

func (r *repository) RecentLines(ctx context.Context, q LedgerEntriesQuery) ([]LedgerEntry, error) {
	rows, err := r.db.Query(ctx, recentLinesSQL, q.EntityID, q.AsOf, q.IncludeDrafts, q.limit())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (LedgerEntry, error) {
		var e LedgerEntry
		err := row.Scan(&e.EntityID, &e.CompanyID, &e.LineID, &e.JournalID, &e.Number, &e.Date, &e.Status,
			&e.Seq, &e.AccountID, &e.Code, &e.Description, &e.Debit, &e.Credit, &e.Balance)
		return e, err
	})
}

func (r *repository) CountJournals(ctx context.Context, entityID uuid.UUID, window Window, includeDrafts bool) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journals
WHERE entity_id = $1
  AND ($2::date IS NULL OR date >= $2::date)
  AND date <= $3::date
  AND (status = 'posted' OR $4::boolean)`, entityID, window.From, window.To, includeDrafts).Scan(&n)
	return n, err
}
