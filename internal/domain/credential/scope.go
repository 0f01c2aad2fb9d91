package credential

import "github.com/apigw/backend/internal/domain/shared"

// ScopeAll is the universal wildcard grant
const ScopeAll = "*"

// Permission scopes, one closed set per vertical
const (
	ScopeLeadsRead         = "leads:read"
	ScopeLeadsWrite        = "leads:write"
	ScopeAppointmentsRead  = "appointments:read"
	ScopeAppointmentsWrite = "appointments:write"
	ScopeMenuRead          = "menu:read"
	ScopeMenuWrite         = "menu:write"
	ScopeReportsRead       = "reports:read"
	ScopeWebhooksManage    = "webhooks:manage"
	ScopeCredentialsManage = "credentials:manage"
	ScopeAuditRead         = "audit:read"
)

// ScopeDef describes one grantable permission.
//
// Requires lists soft prerequisites shown in the dashboard when composing a
// grant (a write scope is presented alongside its read scope). They are
// presentation metadata only: authorization checks a single scope verbatim
// and a credential holding "leads:write" without "leads:read" still passes a
// write check.
type ScopeDef struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Requires    []string `json:"requires,omitempty"`
}

// Catalog is the closed set of grantable scopes
var Catalog = []ScopeDef{
	{Name: ScopeLeadsRead, Description: "Read leads"},
	{Name: ScopeLeadsWrite, Description: "Create and update leads", Requires: []string{ScopeLeadsRead}},
	{Name: ScopeAppointmentsRead, Description: "Read appointments"},
	{Name: ScopeAppointmentsWrite, Description: "Create and update appointments", Requires: []string{ScopeAppointmentsRead}},
	{Name: ScopeMenuRead, Description: "Read menu items"},
	{Name: ScopeMenuWrite, Description: "Create and update menu items", Requires: []string{ScopeMenuRead}},
	{Name: ScopeReportsRead, Description: "Read reports"},
	{Name: ScopeWebhooksManage, Description: "Manage webhook subscriptions"},
	{Name: ScopeCredentialsManage, Description: "Manage API credentials"},
	{Name: ScopeAuditRead, Description: "Read audit logs"},
}

var catalogIndex = func() map[string]ScopeDef {
	m := make(map[string]ScopeDef, len(Catalog))
	for _, def := range Catalog {
		m[def.Name] = def
	}
	return m
}()

// IsKnownScope reports whether the scope is in the catalog or is the wildcard
func IsKnownScope(scope string) bool {
	if scope == ScopeAll {
		return true
	}
	_, ok := catalogIndex[scope]
	return ok
}

// DescribeScope returns the catalog entry for a scope
func DescribeScope(scope string) (ScopeDef, bool) {
	def, ok := catalogIndex[scope]
	return def, ok
}

// ValidateScopes checks that the grant set is non-empty and every entry is known
func ValidateScopes(scopes []string) error {
	if len(scopes) == 0 {
		return shared.NewDomainError("INVALID_SCOPES", "At least one scope must be granted")
	}
	for _, s := range scopes {
		if !IsKnownScope(s) {
			return shared.NewDomainError("UNKNOWN_SCOPE", "Unknown scope: "+s)
		}
	}
	return nil
}
