package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog represents a record stored in ledger_audit_logs.
type AuditLog struct {
	ActorID  uuid.UUID
	EntityID uuid.UUID
	Action   string
	Object   string
	ObjectID string
	Meta     map[string]any
	At       time.Time
}

// AuditLogger writes records into ledger_audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Object == "" || log.ObjectID == "" {
		return errors.New("audit log requires action/object/object_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !log.At.IsZero() {
		at = &log.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO ledger_audit_logs (actor_id, entity_id, action, object, object_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`,
		nullUUID(log.ActorID), nullUUID(log.EntityID), log.Action, log.Object, log.ObjectID, metaJSON, at)
	return err
}

func nullUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
