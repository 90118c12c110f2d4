package shared

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Ledger permissions.
const (
	PermJournalsView = "accounting.journals.view"
	PermJournalsEdit = "accounting.journals.edit"
	PermJournalsPost = "accounting.journals.post"
	PermChartView    = "accounting.chart.view"
	PermChartEdit    = "accounting.chart.edit"
	PermReportsView  = "accounting.reports.view"
	PermSettingsView = "accounting.settings.view"
	PermSettingsEdit = "accounting.settings.edit"
)

const permissionWildcard = "*"

// LedgerScopes lists all permissions related to the ledger.
func LedgerScopes() []string {
	return []string{
		PermJournalsView,
		PermJournalsEdit,
		PermJournalsPost,
		PermChartView,
		PermChartEdit,
		PermReportsView,
		PermSettingsView,
		PermSettingsEdit,
	}
}

// ScopeContext describes what a caller is acting on.
type ScopeContext struct {
	Scope     string
	CompanyID *uuid.UUID
}

// PermissionGate decides whether the request may perform action in scope.
type PermissionGate interface {
	Allow(r *http.Request, action string, scope ScopeContext) bool
}

// Header names set by the upstream gateway after authentication.
const (
	HeaderPermissions = "X-Permissions"
	HeaderCompanies   = "X-Company-IDs"
	HeaderActor       = "X-User-ID"
)

// TrustedHeaderGate trusts permissions asserted by an authenticating proxy.
// X-Permissions is a comma separated list; X-Company-IDs restricts company
// scopes and may be "*".
type TrustedHeaderGate struct{}

// Allow implements PermissionGate.
func (TrustedHeaderGate) Allow(r *http.Request, action string, scope ScopeContext) bool {
	if !containsToken(r.Header.Get(HeaderPermissions), action) {
		return false
	}
	if scope.CompanyID == nil {
		return true
	}
	return containsToken(r.Header.Get(HeaderCompanies), scope.CompanyID.String())
}

// AllowAll permits every action. Used by tests and trusted internal callers.
type AllowAll struct{}

// Allow implements PermissionGate.
func (AllowAll) Allow(*http.Request, string, ScopeContext) bool { return true }

func containsToken(list, want string) bool {
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == permissionWildcard || strings.EqualFold(item, want) {
			return true
		}
	}
	return false
}

type actorContextKey struct{}

// ContextWithActor stores the acting user id in context.
func ContextWithActor(ctx context.Context, actor uuid.UUID) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting user id, uuid.Nil when unknown.
func ActorFromContext(ctx context.Context) uuid.UUID {
	actor, _ := ctx.Value(actorContextKey{}).(uuid.UUID)
	return actor
}

// ActorMiddleware copies the X-User-ID header into the request context.
func ActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(HeaderActor); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				r = r.WithContext(ContextWithActor(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}
