package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-books/internal/accounting/shared"
)

// Repository persists company account mappings.
type Repository interface {
	Get(ctx context.Context, companyID uuid.UUID) (Settings, error)
	Upsert(ctx context.Context, s Settings) (Settings, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx backed settings repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func column(role Role) string {
	return string(role) + "_account_id"
}

func columns() []string {
	out := make([]string, 0, len(Roles()))
	for _, role := range Roles() {
		out = append(out, column(role))
	}
	return out
}

var (
	selectSQL = `SELECT company_id, ` + strings.Join(columns(), ", ") + `, created_at, updated_at
FROM company_accounting_settings WHERE company_id = $1`
	upsertSQL = buildUpsert()
)

func buildUpsert() string {
	cols := columns()
	placeholders := make([]string, len(cols))
	updates := make([]string, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		updates[i] = col + " = EXCLUDED." + col
	}
	return `INSERT INTO company_accounting_settings (company_id, ` + strings.Join(cols, ", ") + `)
VALUES ($1, ` + strings.Join(placeholders, ", ") + `)
ON CONFLICT (company_id) DO UPDATE SET ` + strings.Join(updates, ", ") + `, updated_at = NOW()
RETURNING company_id, ` + strings.Join(cols, ", ") + `, created_at, updated_at`
}

func scanSettings(row pgx.Row) (Settings, error) {
	var s Settings
	dest := []any{&s.CompanyID}
	for _, role := range Roles() {
		dest = append(dest, s.slot(role))
	}
	dest = append(dest, &s.CreatedAt, &s.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, shared.ErrSettingsNotFound
		}
		return Settings{}, err
	}
	return s, nil
}

func (r *repository) Get(ctx context.Context, companyID uuid.UUID) (Settings, error) {
	return scanSettings(r.db.QueryRow(ctx, selectSQL, companyID))
}

func (r *repository) Upsert(ctx context.Context, s Settings) (Settings, error) {
	args := []any{s.CompanyID}
	for _, role := range Roles() {
		args = append(args, *s.slot(role))
	}
	saved, err := scanSettings(r.db.QueryRow(ctx, upsertSQL, args...))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Settings{}, shared.ErrAccountNotFound
		}
		return Settings{}, err
	}
	return saved, nil
}
