package shared

import (
	"context"

	platform "github.com/odyssey-erp/odyssey-books/internal/shared"
)

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log platform.AuditLog) error
}
