package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/apigw/backend/internal/domain/credential"
	"github.com/apigw/backend/internal/domain/shared"
	"github.com/apigw/backend/internal/infrastructure/auth"
)

// CredentialResolver turns a raw bearer token into a resolved credential.
// Every failure variant maps to the same external 401 (see errors.go); the
// precise reason travels with the error for audit metadata only.
type CredentialResolver struct {
	creds credential.Repository
	keys  *auth.APIKeyService
	now   func() time.Time
}

// NewCredentialResolver creates a new CredentialResolver
func NewCredentialResolver(creds credential.Repository, keys *auth.APIKeyService) *CredentialResolver {
	return &CredentialResolver{
		creds: creds,
		keys:  keys,
		now:   time.Now,
	}
}

// Resolve validates the token lexically, looks it up by hash, and checks
// liveness. It also performs the self-healing daily rollover: when the
// stored usage date is stale for the current UTC day, the counter is zeroed
// in place rather than by a scheduled job.
func (r *CredentialResolver) Resolve(ctx context.Context, token string) (*credential.APICredential, error) {
	if token == "" {
		return nil, unauthorizedError("missing_token")
	}
	if !r.keys.ValidateFormat(token) {
		return nil, unauthorizedError("malformed_token")
	}

	cred, err := r.creds.FindByKeyHash(ctx, r.keys.Hash(token))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, unauthorizedError("unknown_key")
		}
		return nil, serviceUnavailableError("credential_lookup_failed")
	}

	if !cred.Active {
		return nil, unauthorizedError("revoked")
	}
	now := r.now()
	if cred.IsExpired(now) {
		return nil, unauthorizedError("expired")
	}

	today := now.UTC().Format("2006-01-02")
	if cred.NeedsUsageReset(today) {
		if err := r.creds.ResetDailyUsage(ctx, cred.ID, today); err != nil {
			return nil, serviceUnavailableError("usage_rollover_failed")
		}
		cred.DailyUsageCount = 0
		cred.UsageDate = today
	}

	return cred, nil
}
