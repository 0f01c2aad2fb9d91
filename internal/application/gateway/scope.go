package gateway

import (
	"github.com/apigw/backend/internal/domain/credential"
)

// ScopeGuard checks the resolved credential's grant set against the
// permission an operation requires. Matching is verbatim or via the
// universal wildcard; documented scope prerequisites are presentation
// guidance and deliberately not enforced here.
type ScopeGuard struct{}

// NewScopeGuard creates a new ScopeGuard
func NewScopeGuard() ScopeGuard {
	return ScopeGuard{}
}

// Check rejects with the missing permission named, never the full grant set
func (ScopeGuard) Check(cred *credential.APICredential, required string) error {
	if required == "" {
		return nil
	}
	if !cred.HasScope(required) {
		return insufficientScopeError(required)
	}
	return nil
}
