package entities

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/accounts"
	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
	"github.com/odyssey-erp/odyssey-books/internal/platform/db"
)

// Repository persists ledger entities.
type Repository interface {
	FindGlobal(ctx context.Context) (Entity, error)
	FindByCompany(ctx context.Context, companyID uuid.UUID) (Entity, error)
	Get(ctx context.Context, id uuid.UUID) (Entity, error)
	List(ctx context.Context) ([]Entity, error)
	CountAccounts(ctx context.Context, entityID uuid.UUID) (int, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes bootstrap writes.
type TxRepository interface {
	// InsertEntity reports false when another writer already holds the
	// (scope, company) slot.
	InsertEntity(ctx context.Context, e Entity) (Entity, bool, error)
	LockEntity(ctx context.Context, id uuid.UUID) (Entity, error)
	Chart() accounts.TxRepository
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx backed entity repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entityColumns = `id, scope, company_id, name, base_currency, created_at, updated_at`

func scanEntity(row pgx.Row) (Entity, error) {
	var e Entity
	err := row.Scan(&e.ID, &e.Scope, &e.CompanyID, &e.Name, &e.BaseCurrency, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entity{}, shared.ErrEntityNotFound
	}
	return e, err
}

func (r *repository) FindGlobal(ctx context.Context) (Entity, error) {
	return scanEntity(r.db.QueryRow(ctx, `SELECT `+entityColumns+` FROM ledger_entities WHERE scope = 'global'`))
}

func (r *repository) FindByCompany(ctx context.Context, companyID uuid.UUID) (Entity, error) {
	return scanEntity(r.db.QueryRow(ctx, `SELECT `+entityColumns+` FROM ledger_entities WHERE scope = 'company' AND company_id = $1`, companyID))
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Entity, error) {
	return scanEntity(r.db.QueryRow(ctx, `SELECT `+entityColumns+` FROM ledger_entities WHERE id = $1`, id))
}

func (r *repository) List(ctx context.Context) ([]Entity, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entityColumns+` FROM ledger_entities ORDER BY scope DESC, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repository) CountAccounts(ctx context.Context, entityID uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE entity_id = $1`, entityID).Scan(&n)
	return n, err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) InsertEntity(ctx context.Context, e Entity) (Entity, bool, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO ledger_entities (id, scope, company_id, name, base_currency)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT DO NOTHING
RETURNING `+entityColumns, e.ID, e.Scope, e.CompanyID, e.Name, e.BaseCurrency)
	inserted, err := scanEntity(row)
	if errors.Is(err, shared.ErrEntityNotFound) {
		return Entity{}, false, nil
	}
	if err != nil {
		return Entity{}, false, err
	}
	return inserted, true, nil
}

func (r *txRepository) LockEntity(ctx context.Context, id uuid.UUID) (Entity, error) {
	return scanEntity(r.tx.QueryRow(ctx, `SELECT `+entityColumns+` FROM ledger_entities WHERE id = $1 FOR UPDATE`, id))
}

func (r *txRepository) Chart() accounts.TxRepository {
	return accounts.NewTxRepository(r.tx)
}
