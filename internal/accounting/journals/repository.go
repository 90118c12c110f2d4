package journals

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	// GetJournal loads a journal of entityID. Journals of other entities are
	// reported as ErrJournalNotFound.
	GetJournal(ctx context.Context, entityID, id uuid.UUID) (Journal, error)
	ListJournals(ctx context.Context, q ListQuery) ([]Journal, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	InsertJournal(ctx context.Context, j Journal) (Journal, error)
	UpdateJournalHeader(ctx context.Context, j Journal) (Journal, error)
	GetJournalForUpdate(ctx context.Context, entityID, id uuid.UUID) (Journal, error)
	ListLines(ctx context.Context, journalID uuid.UUID) ([]Line, error)
	DeleteLines(ctx context.Context, journalID uuid.UUID) error
	InsertLines(ctx context.Context, j Journal, lines []LineInput) ([]Line, error)
	// MarkPosted flips a draft to posted and fails with ErrJournalNotDraft
	// when the row is no longer a draft.
	MarkPosted(ctx context.Context, id, actor uuid.UUID, at time.Time) (Journal, error)
	FindReversal(ctx context.Context, journalID uuid.UUID) (uuid.UUID, bool, error)
	GetAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]accounts.Account, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx backed journal repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const journalColumns = `id, entity_id, number, date, journal_type, description, reference, status, created_by, posted_by, posted_at, reverses_journal_id, created_at, updated_at`

const lineColumns = `id, journal_id, entity_id, line_no, seq, account_id, description, debit, credit, employee_id, branch_id, vendor_id`

func scanJournal(row pgx.Row) (Journal, error) {
	var (
		j                   Journal
		createdBy, postedBy *uuid.UUID
	)
	err := row.Scan(&j.ID, &j.EntityID, &j.Number, &j.Date, &j.JournalType, &j.Description, &j.Reference, &j.Status,
		&createdBy, &postedBy, &j.PostedAt, &j.ReversesJournalID, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Journal{}, shared.ErrJournalNotFound
	}
	if err != nil {
		return Journal{}, err
	}
	if createdBy != nil {
		j.CreatedBy = *createdBy
	}
	if postedBy != nil {
		j.PostedBy = *postedBy
	}
	return j, nil
}

func scanLine(row pgx.Row) (Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.JournalID, &l.EntityID, &l.LineNo, &l.Seq, &l.AccountID, &l.Description, &l.Debit, &l.Credit,
		&l.Dimensions.EmployeeID, &l.Dimensions.BranchID, &l.Dimensions.VendorID)
	return l, err
}

func (r *repository) GetJournal(ctx context.Context, entityID, id uuid.UUID) (Journal, error) {
	j, err := scanJournal(r.db.QueryRow(ctx, `SELECT `+journalColumns+` FROM journals WHERE id = $1 AND entity_id = $2`, id, entityID))
	if err != nil {
		return Journal{}, err
	}
	j.Lines, err = listLines(ctx, r.db, id)
	return j, err
}

func (r *repository) ListJournals(ctx context.Context, q ListQuery) ([]Journal, error) {
	var status any
	if q.Status != "" {
		status = string(q.Status)
	}
	rows, err := r.db.Query(ctx, `SELECT `+journalColumns+` FROM journals
WHERE entity_id = $1
  AND ($2::date IS NULL OR date >= $2)
  AND ($3::date IS NULL OR date <= $3)
  AND ($4::text IS NULL OR status = $4)
ORDER BY date DESC, number DESC`, q.EntityID, q.From, q.To, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Journal
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type lineQueryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listLines(ctx context.Context, q lineQueryer, journalID uuid.UUID) ([]Line, error) {
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM journal_lines WHERE journal_id = $1 ORDER BY line_no`, journalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertJournal(ctx context.Context, j Journal) (Journal, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journals (id, entity_id, date, journal_type, description, reference, status, created_by, reverses_journal_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+journalColumns,
		j.ID, j.EntityID, j.Date, j.JournalType, j.Description, j.Reference, j.Status, nullUUID(j.CreatedBy), j.ReversesJournalID)
	inserted, err := scanJournal(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_journals_reverses" {
			return Journal{}, shared.ErrAlreadyReversed
		}
		return Journal{}, err
	}
	return inserted, nil
}

func (r *txRepository) UpdateJournalHeader(ctx context.Context, j Journal) (Journal, error) {
	row := r.tx.QueryRow(ctx, `UPDATE journals SET date = $2, journal_type = $3, description = $4, reference = $5, updated_at = NOW()
WHERE id = $1 AND status = 'draft'
RETURNING `+journalColumns, j.ID, j.Date, j.JournalType, j.Description, j.Reference)
	updated, err := scanJournal(row)
	if errors.Is(err, shared.ErrJournalNotFound) {
		return Journal{}, shared.ErrJournalNotDraft
	}
	return updated, err
}

func (r *txRepository) GetJournalForUpdate(ctx context.Context, entityID, id uuid.UUID) (Journal, error) {
	return scanJournal(r.tx.QueryRow(ctx, `SELECT `+journalColumns+` FROM journals WHERE id = $1 AND entity_id = $2 FOR UPDATE`, id, entityID))
}

func (r *txRepository) ListLines(ctx context.Context, journalID uuid.UUID) ([]Line, error) {
	return listLines(ctx, r.tx, journalID)
}

func (r *txRepository) DeleteLines(ctx context.Context, journalID uuid.UUID) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE journal_id = $1`, journalID)
	return err
}

func (r *txRepository) InsertLines(ctx context.Context, j Journal, lines []LineInput) ([]Line, error) {
	out := make([]Line, 0, len(lines))
	for i, in := range lines {
		row := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (id, journal_id, entity_id, line_no, account_id, description, debit, credit, employee_id, branch_id, vendor_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING `+lineColumns,
			uuid.New(), j.ID, j.EntityID, i+1, in.AccountID, in.Description, shared.Round(in.Debit), shared.Round(in.Credit),
			in.Dimensions.EmployeeID, in.Dimensions.BranchID, in.Dimensions.VendorID)
		line, err := scanLine(row)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" && pgErr.ConstraintName == "journal_lines_account_id_fkey" {
				return nil, shared.ErrAccountNotFound
			}
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

func (r *txRepository) MarkPosted(ctx context.Context, id, actor uuid.UUID, at time.Time) (Journal, error) {
	row := r.tx.QueryRow(ctx, `UPDATE journals SET status = 'posted', posted_by = $2, posted_at = $3, updated_at = $3
WHERE id = $1 AND status = 'draft'
RETURNING `+journalColumns, id, nullUUID(actor), at)
	posted, err := scanJournal(row)
	if errors.Is(err, shared.ErrJournalNotFound) {
		return Journal{}, shared.ErrJournalNotDraft
	}
	return posted, err
}

func (r *txRepository) FindReversal(ctx context.Context, journalID uuid.UUID) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := r.tx.QueryRow(ctx, `SELECT id FROM journals WHERE reverses_journal_id = $1`, journalID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func (r *txRepository) GetAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]accounts.Account, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, entity_id, code, name, heading_id, subheading_id, group_id, is_active, created_at, updated_at
FROM accounts WHERE id = ANY($1::uuid[])`, uuidStrings(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uuid.UUID]accounts.Account, len(ids))
	for rows.Next() {
		var a accounts.Account
		if err := rows.Scan(&a.ID, &a.EntityID, &a.Code, &a.Name, &a.HeadingID, &a.SubheadingID, &a.GroupID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
