package accounts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	Chart(ctx context.Context, entityID uuid.UUID) (Chart, error)
	GetAccount(ctx context.Context, id uuid.UUID) (Account, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes chart writes inside a transaction.
type TxRepository interface {
	GetHeading(ctx context.Context, id uuid.UUID) (Heading, error)
	GetSubheading(ctx context.Context, id uuid.UUID) (Subheading, error)
	GetGroup(ctx context.Context, id uuid.UUID) (Group, error)
	InsertHeading(ctx context.Context, h Heading) (Heading, error)
	InsertSubheading(ctx context.Context, s Subheading) (Subheading, error)
	InsertGroup(ctx context.Context, g Group) (Group, error)
	InsertAccount(ctx context.Context, a Account) (Account, error)
	GetAccountForUpdate(ctx context.Context, id uuid.UUID) (Account, error)
	UpdateAccount(ctx context.Context, a Account) (Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	CountAccounts(ctx context.Context, entityID uuid.UUID) (int, error)
	CountLines(ctx context.Context, accountID uuid.UUID, postedOnly bool) (int, error)
}

type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx backed chart repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// NewTxRepository wraps an already open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{q: tx}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{q: tx})
	})
}

const accountColumns = `id, entity_id, code, name, heading_id, subheading_id, group_id, is_active, standard_code, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.EntityID, &a.Code, &a.Name, &a.HeadingID, &a.SubheadingID, &a.GroupID, &a.IsActive, &a.StandardCode, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, shared.ErrAccountNotFound
	}
	return a, err
}

func (r *repository) GetAccount(ctx context.Context, id uuid.UUID) (Account, error) {
	return scanAccount(r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *repository) Chart(ctx context.Context, entityID uuid.UUID) (Chart, error) {
	chart := Chart{EntityID: entityID}

	rows, err := r.db.Query(ctx, `SELECT id, entity_id, code, name, statement FROM account_headings WHERE entity_id = $1 ORDER BY name, code`, entityID)
	if err != nil {
		return Chart{}, err
	}
	for rows.Next() {
		var h Heading
		if err := rows.Scan(&h.ID, &h.EntityID, &h.Code, &h.Name, &h.Statement); err != nil {
			rows.Close()
			return Chart{}, err
		}
		chart.Headings = append(chart.Headings, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Chart{}, err
	}

	rows, err = r.db.Query(ctx, `SELECT id, entity_id, heading_id, code, name FROM account_subheadings WHERE entity_id = $1 ORDER BY name, code`, entityID)
	if err != nil {
		return Chart{}, err
	}
	for rows.Next() {
		var s Subheading
		if err := rows.Scan(&s.ID, &s.EntityID, &s.HeadingID, &s.Code, &s.Name); err != nil {
			rows.Close()
			return Chart{}, err
		}
		chart.Subheadings = append(chart.Subheadings, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Chart{}, err
	}

	rows, err = r.db.Query(ctx, `SELECT id, entity_id, subheading_id, code, name FROM account_groups WHERE entity_id = $1 ORDER BY name, code`, entityID)
	if err != nil {
		return Chart{}, err
	}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.EntityID, &g.SubheadingID, &g.Code, &g.Name); err != nil {
			rows.Close()
			return Chart{}, err
		}
		chart.Groups = append(chart.Groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Chart{}, err
	}

	rows, err = r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE entity_id = $1 ORDER BY code`, entityID)
	if err != nil {
		return Chart{}, err
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return Chart{}, err
		}
		chart.Accounts = append(chart.Accounts, a)
	}
	return chart, rows.Err()
}

type txRepository struct {
	q queryer
}

func (r *txRepository) GetHeading(ctx context.Context, id uuid.UUID) (Heading, error) {
	var h Heading
	err := r.q.QueryRow(ctx, `SELECT id, entity_id, code, name, statement FROM account_headings WHERE id = $1`, id).
		Scan(&h.ID, &h.EntityID, &h.Code, &h.Name, &h.Statement)
	if errors.Is(err, pgx.ErrNoRows) {
		return Heading{}, shared.ErrInvalidHierarchy
	}
	return h, err
}

func (r *txRepository) GetSubheading(ctx context.Context, id uuid.UUID) (Subheading, error) {
	var s Subheading
	err := r.q.QueryRow(ctx, `SELECT id, entity_id, heading_id, code, name FROM account_subheadings WHERE id = $1`, id).
		Scan(&s.ID, &s.EntityID, &s.HeadingID, &s.Code, &s.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Subheading{}, shared.ErrInvalidHierarchy
	}
	return s, err
}

func (r *txRepository) GetGroup(ctx context.Context, id uuid.UUID) (Group, error) {
	var g Group
	err := r.q.QueryRow(ctx, `SELECT id, entity_id, subheading_id, code, name FROM account_groups WHERE id = $1`, id).
		Scan(&g.ID, &g.EntityID, &g.SubheadingID, &g.Code, &g.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return Group{}, shared.ErrInvalidHierarchy
	}
	return g, err
}

func (r *txRepository) InsertHeading(ctx context.Context, h Heading) (Heading, error) {
	_, err := r.q.Exec(ctx, `INSERT INTO account_headings (id, entity_id, code, name, statement) VALUES ($1, $2, $3, $4, $5)`,
		h.ID, h.EntityID, h.Code, h.Name, h.Statement)
	return h, mapWriteError(err)
}

func (r *txRepository) InsertSubheading(ctx context.Context, s Subheading) (Subheading, error) {
	_, err := r.q.Exec(ctx, `INSERT INTO account_subheadings (id, entity_id, heading_id, code, name) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.EntityID, s.HeadingID, s.Code, s.Name)
	return s, mapWriteError(err)
}

func (r *txRepository) InsertGroup(ctx context.Context, g Group) (Group, error) {
	_, err := r.q.Exec(ctx, `INSERT INTO account_groups (id, entity_id, subheading_id, code, name) VALUES ($1, $2, $3, $4, $5)`,
		g.ID, g.EntityID, g.SubheadingID, g.Code, g.Name)
	return g, mapWriteError(err)
}

func (r *txRepository) InsertAccount(ctx context.Context, a Account) (Account, error) {
	row := r.q.QueryRow(ctx, `INSERT INTO accounts (id, entity_id, code, name, heading_id, subheading_id, group_id, is_active, standard_code)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+accountColumns, a.ID, a.EntityID, a.Code, a.Name, a.HeadingID, a.SubheadingID, a.GroupID, a.IsActive, a.StandardCode)
	inserted, err := scanAccount(row)
	return inserted, mapWriteError(err)
}

func (r *txRepository) GetAccountForUpdate(ctx context.Context, id uuid.UUID) (Account, error) {
	return scanAccount(r.q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
}

func (r *txRepository) UpdateAccount(ctx context.Context, a Account) (Account, error) {
	row := r.q.QueryRow(ctx, `UPDATE accounts SET code = $2, name = $3, heading_id = $4, subheading_id = $5, group_id = $6, is_active = $7, standard_code = $8, updated_at = NOW()
WHERE id = $1
RETURNING `+accountColumns, a.ID, a.Code, a.Name, a.HeadingID, a.SubheadingID, a.GroupID, a.IsActive, a.StandardCode)
	updated, err := scanAccount(row)
	return updated, mapWriteError(err)
}

func (r *txRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *txRepository) CountAccounts(ctx context.Context, entityID uuid.UUID) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE entity_id = $1`, entityID).Scan(&n)
	return n, err
}

func (r *txRepository) CountLines(ctx context.Context, accountID uuid.UUID, postedOnly bool) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM journal_lines jl
JOIN journals j ON j.id = jl.journal_id
WHERE jl.account_id = $1 AND ($2 = FALSE OR j.status = 'posted')`, accountID, postedOnly).Scan(&n)
	return n, err
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return shared.ErrDuplicateAccountCode
		case pgErr.Code == "23503" && pgErr.TableName == "journal_lines":
			return shared.ErrAccountInUse
		case pgErr.Code == "23503":
			return shared.ErrInvalidHierarchy
		}
	}
	return err
}
