package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/apigw/backend/internal/domain/audit"
	"github.com/apigw/backend/internal/domain/credential"
	"github.com/apigw/backend/internal/infrastructure/auth"
	"github.com/apigw/backend/internal/infrastructure/config"
	"github.com/apigw/backend/internal/infrastructure/ratelimit"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testEnv struct {
	service  *AuthorizationService
	creds    *fakeCredentialRepo
	branches *fakeBranchRepo
	audits   *fakeAuditRepo
	recorder *AuditRecorder
	keys     *auth.APIKeyService
}

func newTestEnv(t *testing.T, phase string) *testEnv {
	t.Helper()
	creds := newFakeCredentialRepo()
	branches := newFakeBranchRepo()
	audits := newFakeAuditRepo()
	keys := auth.NewAPIKeyService()

	// Long interval and large batch: tests drive flushes explicitly
	recorder := NewAuditRecorder(audits, zap.NewNop(), time.Hour, 1000, time.Second)

	gate := NewDeprecationGate(config.DeprecationConfig{
		Phase:             phase,
		SunsetDate:        time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC),
		MigrationGuideURL: "https://docs.example.com/migrate-branch-filtering",
	})

	service := NewAuthorizationService(
		NewCredentialResolver(creds, keys),
		NewRateLimiter(ratelimit.NewInMemoryCounterStore(), creds),
		NewScopeGuard(),
		NewBranchFilterResolver(branches),
		gate,
		recorder,
		2*time.Second,
		zap.NewNop(),
	)

	return &testEnv{
		service:  service,
		creds:    creds,
		branches: branches,
		audits:   audits,
		recorder: recorder,
		keys:     keys,
	}
}

// issue creates a credential in the fake store and returns it with its
// plaintext bearer token.
func (e *testEnv) issue(t *testing.T, tenantID uuid.UUID, scopeType credential.ScopeType, branchID *uuid.UUID, scopes []string) (*credential.APICredential, string) {
	t.Helper()
	token, err := e.keys.Generate()
	require.NoError(t, err)

	cred, err := credential.NewAPICredential(tenantID, "test key", scopeType, branchID, scopes, token[:7], e.keys.Hash(token))
	require.NoError(t, err)
	e.creds.add(cred)
	return cred, token
}

func baseInput(token string) AuthorizeInput {
	return AuthorizeInput{
		Token:         token,
		ClientIP:      "198.51.100.7",
		UserAgent:     "client/1.0",
		RequiredScope: credential.ScopeLeadsRead,
		Path:          "/api/v1/leads",
		Method:        "GET",
	}
}

func TestAuthorizationService_Authentication(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	tests := []struct {
		name   string
		token  func(e *testEnv) string
		reason string
	}{
		{"missing token", func(e *testEnv) string { return "" }, "missing_token"},
		{"malformed token", func(e *testEnv) string { return "not-a-key" }, "malformed_token"},
		{"unknown key", func(e *testEnv) string {
			token, _ := e.keys.Generate()
			return token
		}, "unknown_key"},
		{"revoked credential", func(e *testEnv) string {
			cred, token := e.issue(t, tenantID, credential.ScopeTypeTenant, nil, []string{credential.ScopeLeadsRead})
			require.NoError(t, cred.Revoke())
			e.creds.add(cred)
			return token
		}, "revoked"},
		{"expired credential", func(e *testEnv) string {
			cred, token := e.issue(t, tenantID, credential.ScopeTypeTenant, nil, []string{credential.ScopeLeadsRead})
			cred.SetExpiration(time.Now().Add(-time.Hour))
			e.creds.add(cred)
			return token
		}, "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, config.PhaseWarning)
			result, err := env.service.Authorize(ctx, baseInput(tt.token(env)))
			assert.Nil(t, result)

			// Every variant shares the same external shape
			gwErr := asGatewayError(err)
			assert.Equal(t, 401, gwErr.Status)
			assert.Equal(t, "UNAUTHORIZED", gwErr.Code)

			// but the audit trail keeps the real reason
			entries := env.audits.recorded()
			require.Len(t, entries, 1)
			assert.Equal(t, audit.ActionAuthFailed, entries[0].Action)
			assert.Equal(t, tt.reason, entries[0].Metadata["reason"])
		})
	}

	t.Run("persistence failure fails closed", func(t *testing.T) {
		env := newTestEnv(t, config.PhaseWarning)
		_, token := env.issue(t, tenantID, credential.ScopeTypeTenant, nil, []string{credential.ScopeLeadsRead})
		env.creds.fail = true

		result, err := env.service.Authorize(ctx, baseInput(token))
		assert.Nil(t, result)
		gwErr := asGatewayError(err)
		assert.Equal(t, 503, gwErr.Status)
		assert.Equal(t, "SERVICE_UNAVAILABLE", gwErr.Code)
	})
}

func TestAuthorizationService_FailClosedLogsBackendFailure(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.ErrorLevel)

	creds := newFakeCredentialRepo()
	keys := auth.NewAPIKeyService()
	recorder := NewAuditRecorder(newFakeAuditRepo(), zap.NewNop(), time.Hour, 1000, time.Second)
	service := NewAuthorizationService(
		NewCredentialResolver(creds, keys),
		NewRateLimiter(ratelimit.NewInMemoryCounterStore(), creds),
		NewScopeGuard(),
		NewBranchFilterResolver(newFakeBranchRepo()),
		NewDeprecationGate(config.DeprecationConfig{Phase: config.PhaseWarning}),
		recorder,
		2*time.Second,
		zap.New(core),
	)

	token, err := keys.Generate()
	require.NoError(t, err)
	creds.fail = true

	_, err = service.Authorize(ctx, baseInput(token))
	assert.Equal(t, 503, asGatewayError(err).Status)

	// The generic 503 hides the cause from the caller; the log names the
	// failing stage.
	entries := logs.FilterMessage("authorization backend failure, request rejected").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "resolve", entries[0].ContextMap()["stage"])
}

func TestAuthorizationService_IPAllowlist(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.PhaseWarning)
	cred, token := env.issue(t, uuid.New(), credential.ScopeTypeTenant, nil, []string{credential.ScopeLeadsRead})
	require.NoError(t, cred.SetAllowedIPs([]string{"203.0.113.1"}))
	env.creds.add(cred)

	t.Run("blocks callers off the allowlist", func(t *testing.T) {
		result, err := env.service.Authorize(ctx, baseInput(token))
		assert.Nil(t, result)
		gwErr := asGatewayError(err)
		assert.Equal(t, 403, gwErr.Status)
		assert.Equal(t, "IP_NOT_ALLOWED", gwErr.Code)
		assert.Contains(t, env.audits.actions(), audit.ActionIPBlocked)
	})

	t.Run("admits allowlisted callers", func(t *testing.T) {
		in := baseInput(token)
		in.ClientIP = "203.0.113.1"
		result, err := env.service.Authorize(ctx, in)
		require.NoError(t, err)
		assert.NotNil(t, result)
	})
}

func TestAuthorizationService_RateLimits(t *testing.T) {
	ctx := context.Background()

	t.Run("minute ceiling admits exactly rpm requests", func(t *testing.T) {
		env := newTestEnv(t, config.PhaseWarning)
		cred, token := env.issue(t, uuid.New(), credential.ScopeTypeTenant, nil, []string{credential.ScopeLeadsRead})
		require.NoError(t, cred.SetRateLimits(3, 10000))
		env.creds.add(cred)

		for i := 0; i < 3; i++ {
			_, err := env.service.Authorize(ctx, baseInput(token))
			require.NoError(t, err)
		}

		result, err := env.service.Authorize(ctx, baseInput(token))
		gwErr := asGatewayError(err)
		assert.Equal(t, 429, gwErr.Status)
		assert.Equal(t, "RATE_LIMIT_EXCEEDED", gwErr.Code)
		assert.GreaterOrEqual(t, gwErr.RetryAfter, 1)
		assert.LessOrEqual(t, gwErr.RetryAfter, 60)

		// telemetry still available for response headers
		require.NotNil(t, result)
		require.NotNil(t, result.Quota)
		assert.Equal(t, int64(0), result.Quota.MinuteRemaining)
	})

	t.Run("daily ceiling uses a distinct code without retry-after", func(t *testing.T) {
		env := newTestEnv(t, config.PhaseWarning)
		cred, token := env.issue(t, uuid.New(), credential.ScopeTypeTenant, nil, []string{credential.ScopeLeadsRead})
		require.NoError(t, cred.SetRateLimits(10000, 2))
		env.creds.add(cred)

		for i := 0; i < 2; i++ {
			_, err := env.service.Authorize(ctx, baseInput(token))
			require.NoError(t, err)
		}

		_, err := env.service.Authorize(ctx, baseInput(token))
		gwErr := asGatewayError(err)
		assert.Equal(t, 429, gwErr.Status)
		assert.Equal(t, "DAILY_LIMIT_EXCEEDED", gwErr.Code)
		assert.Zero(t, gwErr.RetryAfter)
		assert.Contains(t, env.audits.actions(), audit.ActionRateLimited)
	})

	t.Run("stale usage date rolls over before counting", func(t *testing.T) {
		env := newTestEnv(t, config.PhaseWarning)
		cred, token := env.issue(t, uuid.New(), credential.ScopeTypeTenant, nil, []string{credential.ScopeLeadsRead})
		require.NoError(t, cred.SetRateLimits(10000, 100))
		cred.UsageDate = "2020-01-01"
		cred.DailyUsageCount = 99999
		env.creds.add(cred)

		result, err := env.service.Authorize(ctx, baseInput(token))
		require.NoError(t, err)
		assert.Equal(t, int64(99), result.Quota.DailyRemaining)
	})
}

func TestAuthorizationService_Scopes(t *testing.T) {
	ctx := context.Background()

	t.Run("missing scope is rejected naming only the missing permission", func(t *testing.T) {
		env := newTestEnv(t, config.PhaseWarning)
		_, token := env.issue(t, uuid.New(), credential.ScopeTypeTenant, nil, []string{credential.ScopeLeadsWrite})

		result, err := env.service.Authorize(ctx, baseInput(token))
		assert.Nil(t, result)
		gwErr := asGatewayError(err)
		assert.Equal(t, 403, gwErr.Status)
		assert.Equal(t, "INSUFFICIENT_SCOPE", gwErr.Code)
		assert.Contains(t, gwErr.Message, credential.ScopeLeadsRead)
		assert.NotContains(t, gwErr.Message, credential.ScopeLeadsWrite)
		assert.Contains(t, env.audits.actions(), audit.ActionScopeDenied)
	})

	t.Run("wildcard grant satisfies any permission", func(t *testing.T) {
		env := newTestEnv(t, config.PhaseWarning)
		_, token := env.issue(t, uuid.New(), credential.ScopeTypeTenant, nil, []string{credential.ScopeAll})

		_, err := env.service.Authorize(ctx, baseInput(token))
		assert.NoError(t, err)
	})

	t.Run("write does not imply read", func(t *testing.T) {
		// Prerequisites in the catalog are advisory; a write-only grant
		// passes a write check and fails a read check, nothing more.
		env := newTestEnv(t, config.PhaseWarning)
		_, token := env.issue(t, uuid.New(), credential.ScopeTypeTenant, nil, []string{credential.ScopeLeadsWrite})

		in := baseInput(token)
		in.RequiredScope = credential.ScopeLeadsWrite
		_, err := env.service.Authorize(ctx, in)
		assert.NoError(t, err)
	})
}

func TestAuthorizationService_BranchIsolation(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	ownBranch := uuid.New()
	otherBranch := uuid.New()

	setup := func(t *testing.T) (*testEnv, string) {
		env := newTestEnv(t, config.PhaseWarning)
		env.branches.owners[ownBranch] = tenantID
		env.branches.owners[otherBranch] = uuid.New()
		_, token := env.issue(t, tenantID, credential.ScopeTypeBranch, &ownBranch, []string{credential.ScopeLeadsRead})
		return env, token
	}

	// The selector must be provably inert for branch-scoped credentials:
	// absent, own, foreign, and malformed values all pin to the bound branch.
	selectors := []struct {
		name     string
		selector string
	}{
		{"absent selector", ""},
		{"own branch", ownBranch.String()},
		{"foreign branch", otherBranch.String()},
		{"malformed selector", "not-a-uuid"},
	}

	for _, tt := range selectors {
		t.Run("branch scoped ignores "+tt.name, func(t *testing.T) {
			env, token := setup(t)
			in := baseInput(token)
			in.BranchSelector = tt.selector

			result, err := env.service.Authorize(ctx, in)
			require.NoError(t, err)
			require.NotNil(t, result.Branch.BranchID)
			assert.Equal(t, ownBranch, *result.Branch.BranchID)
			assert.Equal(t, tt.selector != "", result.Branch.SelectorIgnored)
			assert.False(t, result.Branch.LegacyUsage)
			assert.False(t, result.Deprecation.Deprecated)
		})
	}
}

func TestAuthorizationService_TenantBranchFiltering(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	ownBranch := uuid.New()
	foreignBranch := uuid.New()

	setup := func(t *testing.T, phase string) (*testEnv, string) {
		env := newTestEnv(t, phase)
		env.branches.owners[ownBranch] = tenantID
		env.branches.owners[foreignBranch] = uuid.New()
		_, token := env.issue(t, tenantID, credential.ScopeTypeTenant, nil, []string{credential.ScopeLeadsRead})
		return env, token
	}

	t.Run("absent selector leaves all branches visible", func(t *testing.T) {
		env, token := setup(t, config.PhaseWarning)
		result, err := env.service.Authorize(ctx, baseInput(token))
		require.NoError(t, err)
		assert.Nil(t, result.Branch.BranchID)
		assert.False(t, result.Branch.LegacyUsage)
	})

	t.Run("malformed selector is rejected regardless of other parameters", func(t *testing.T) {
		env, token := setup(t, config.PhaseHardDeprecation)
		in := baseInput(token)
		in.BranchSelector = "not-a-uuid"
		in.AllowLegacy = true

		_, err := env.service.Authorize(ctx, in)
		gwErr := asGatewayError(err)
		assert.Equal(t, 400, gwErr.Status)
		assert.Equal(t, "invalid_branch_id", gwErr.Code)
	})

	t.Run("foreign branch is always denied", func(t *testing.T) {
		env, token := setup(t, config.PhaseWarning)
		in := baseInput(token)
		in.BranchSelector = foreignBranch.String()

		_, err := env.service.Authorize(ctx, in)
		gwErr := asGatewayError(err)
		assert.Equal(t, 403, gwErr.Status)
		assert.Equal(t, "branch_access_denied", gwErr.Code)
	})

	t.Run("owned branch narrows the scope in warning phase", func(t *testing.T) {
		env, token := setup(t, config.PhaseWarning)
		in := baseInput(token)
		in.BranchSelector = ownBranch.String()

		result, err := env.service.Authorize(ctx, in)
		require.NoError(t, err)
		require.NotNil(t, result.Branch.BranchID)
		assert.Equal(t, ownBranch, *result.Branch.BranchID)
		assert.True(t, result.Branch.LegacyUsage)
		assert.True(t, result.Deprecation.Deprecated)
		assert.Equal(t, config.PhaseWarning, result.Deprecation.Phase)
	})
}

func TestAuthorizationService_DeprecationPhases(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	ownBranch := uuid.New()

	legacyRequest := func(t *testing.T, phase string, optIn bool) (*Authorization, error) {
		env := newTestEnv(t, phase)
		env.branches.owners[ownBranch] = tenantID
		_, token := env.issue(t, tenantID, credential.ScopeTypeTenant, nil, []string{credential.ScopeLeadsRead})
		in := baseInput(token)
		in.BranchSelector = ownBranch.String()
		in.AllowLegacy = optIn
		return env.service.Authorize(ctx, in)
	}

	t.Run("warning annotates but never blocks", func(t *testing.T) {
		result, err := legacyRequest(t, config.PhaseWarning, false)
		require.NoError(t, err)
		assert.True(t, result.Deprecation.Deprecated)
		assert.NotEmpty(t, result.Deprecation.MigrationGuideURL)
	})

	t.Run("soft enforcement rejects without opt-in", func(t *testing.T) {
		_, err := legacyRequest(t, config.PhaseSoftEnforcement, false)
		gwErr := asGatewayError(err)
		assert.Equal(t, 400, gwErr.Status)
		assert.Equal(t, "DEPRECATED_FEATURE", gwErr.Code)
		assert.Contains(t, gwErr.Message, "https://docs.example.com/migrate-branch-filtering")
	})

	t.Run("soft enforcement honors the opt-in header", func(t *testing.T) {
		result, err := legacyRequest(t, config.PhaseSoftEnforcement, true)
		require.NoError(t, err)
		assert.True(t, result.Deprecation.Deprecated)
	})

	t.Run("hard deprecation ignores the opt-in header", func(t *testing.T) {
		_, err := legacyRequest(t, config.PhaseHardDeprecation, true)
		gwErr := asGatewayError(err)
		assert.Equal(t, 410, gwErr.Status)
		assert.Equal(t, "FEATURE_REMOVED", gwErr.Code)
	})

	t.Run("non-legacy requests pass every phase untouched", func(t *testing.T) {
		for _, phase := range []string{config.PhaseWarning, config.PhaseSoftEnforcement, config.PhaseHardDeprecation} {
			env := newTestEnv(t, phase)
			_, token := env.issue(t, tenantID, credential.ScopeTypeTenant, nil, []string{credential.ScopeLeadsRead})
			result, err := env.service.Authorize(ctx, baseInput(token))
			require.NoError(t, err, "phase %s", phase)
			assert.False(t, result.Deprecation.Deprecated)
		}
	})
}

func TestAuthorizationService_AuditTrail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, config.PhaseWarning)
	cred, token := env.issue(t, uuid.New(), credential.ScopeTypeTenant, nil, []string{credential.ScopeLeadsRead})

	_, err := env.service.Authorize(ctx, baseInput(token))
	require.NoError(t, err)

	// Routine usage is buffered, not written synchronously
	assert.Empty(t, env.audits.recorded())
	assert.Equal(t, 1, env.recorder.Pending())

	env.recorder.Flush(ctx)
	entries := env.audits.recorded()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionUsed, entries[0].Action)
	assert.Equal(t, cred.ID.String(), entries[0].ActorID)
	assert.Equal(t, cred.TenantID, entries[0].TenantID)
	assert.Equal(t, "198.51.100.7", entries[0].IPAddress)
}
