package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationLockID = 7462839

// ErrMigrationLocked is returned when another migrator holds the advisory lock.
var ErrMigrationLocked = errors.New("platform/db: another migrator is running")

// ErrChecksumMismatch is returned when an applied migration file was edited.
var ErrChecksumMismatch = errors.New("platform/db: migration checksum mismatch")

// Migration is one NNN_description.sql file.
type Migration struct {
	Version  string
	Filename string
	Checksum string
	SQL      string
}

// MigrationResult lists the files applied and skipped by one run.
type MigrationResult struct {
	Applied []string
	Skipped []string
}

// LoadMigrations reads and orders the .sql files at the root of fsys.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("platform/db: read migrations: %w", err)
	}
	seen := make(map[string]string)
	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		name := entry.Name()
		version, _, ok := strings.Cut(name, "_")
		if !ok || version == "" {
			return nil, fmt.Errorf("platform/db: invalid migration filename %s, expected NNN_description.sql", name)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("platform/db: duplicate migration version %s (%s, %s)", version, prev, name)
		}
		seen[version] = name
		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("platform/db: read %s: %w", name, err)
		}
		sum := sha256.Sum256(body)
		out = append(out, Migration{Version: version, Filename: name, Checksum: hex.EncodeToString(sum[:]), SQL: string(body)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

// Migrate applies every pending migration of fsys, each in its own
// transaction, while holding a session advisory lock.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, logger *slog.Logger) (MigrationResult, error) {
	var result MigrationResult
	if logger == nil {
		logger = slog.Default()
	}
	migrations, err := LoadMigrations(fsys)
	if err != nil {
		return result, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return result, fmt.Errorf("platform/db: acquire: %w", err)
	}
	defer conn.Release()

	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, migrationLockID).Scan(&locked); err != nil {
		return result, fmt.Errorf("platform/db: advisory lock: %w", err)
	}
	if !locked {
		return result, ErrMigrationLocked
	}
	defer func() {
		_, _ = conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, migrationLockID)
	}()

	if _, err := conn.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return result, fmt.Errorf("platform/db: schema_migrations: %w", err)
	}

	for _, m := range migrations {
		var existing string
		err := conn.QueryRow(ctx, `SELECT checksum FROM schema_migrations WHERE version = $1`, m.Version).Scan(&existing)
		switch {
		case err == nil:
			if existing != m.Checksum {
				return result, fmt.Errorf("%w: %s recorded %s, file %s", ErrChecksumMismatch, m.Filename, existing, m.Checksum)
			}
			result.Skipped = append(result.Skipped, m.Filename)
			logger.Debug("migration already applied", slog.String("file", m.Filename))
			continue
		case !errors.Is(err, pgx.ErrNoRows):
			return result, fmt.Errorf("platform/db: lookup %s: %w", m.Filename, err)
		}

		if err := applyMigration(ctx, conn, m); err != nil {
			return result, err
		}
		result.Applied = append(result.Applied, m.Filename)
		logger.Info("migration applied", slog.String("file", m.Filename), slog.String("version", m.Version))
	}
	return result, nil
}

func applyMigration(ctx context.Context, conn *pgxpool.Conn, m Migration) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("platform/db: begin %s: %w", m.Filename, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("platform/db: execute %s: %w", m.Filename, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)`,
		m.Version, m.Filename, m.Checksum); err != nil {
		return fmt.Errorf("platform/db: record %s: %w", m.Filename, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit %s: %w", m.Filename, err)
	}
	return nil
}
