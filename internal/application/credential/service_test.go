package credential

import (
	"context"
	"testing"
	"time"

	"github.com/apigw/backend/internal/application/gateway"
	"github.com/apigw/backend/internal/domain/audit"
	"github.com/apigw/backend/internal/domain/credential"
	"github.com/apigw/backend/internal/domain/identity"
	"github.com/apigw/backend/internal/domain/shared"
	"github.com/apigw/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memCredentialRepo struct {
	byID map[uuid.UUID]*credential.APICredential
}

func newMemCredentialRepo() *memCredentialRepo {
	return &memCredentialRepo{byID: make(map[uuid.UUID]*credential.APICredential)}
}

func (r *memCredentialRepo) FindByID(_ context.Context, id uuid.UUID) (*credential.APICredential, error) {
	if cred, ok := r.byID[id]; ok {
		return cred, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memCredentialRepo) FindByIDForTenant(_ context.Context, tenantID, id uuid.UUID) (*credential.APICredential, error) {
	if cred, ok := r.byID[id]; ok && cred.TenantID == tenantID {
		return cred, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memCredentialRepo) FindByKeyHash(_ context.Context, keyHash string) (*credential.APICredential, error) {
	for _, cred := range r.byID {
		if cred.KeyHash == keyHash {
			return cred, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memCredentialRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]credential.APICredential, error) {
	var out []credential.APICredential
	for _, cred := range r.byID {
		if cred.TenantID == tenantID {
			out = append(out, *cred)
		}
	}
	return out, nil
}

func (r *memCredentialRepo) CountForTenant(_ context.Context, tenantID uuid.UUID) (int64, error) {
	var n int64
	for _, cred := range r.byID {
		if cred.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

func (r *memCredentialRepo) Save(_ context.Context, cred *credential.APICredential) error {
	r.byID[cred.ID] = cred
	return nil
}

func (r *memCredentialRepo) IncrementDailyUsage(_ context.Context, id uuid.UUID) (int64, error) {
	cred := r.byID[id]
	cred.DailyUsageCount++
	return cred.DailyUsageCount, nil
}

func (r *memCredentialRepo) ResetDailyUsage(_ context.Context, id uuid.UUID, usageDate string) error {
	cred := r.byID[id]
	cred.DailyUsageCount = 0
	cred.UsageDate = usageDate
	return nil
}

type memBranchRepo struct {
	owners map[uuid.UUID]uuid.UUID
}

func (r *memBranchRepo) FindByID(_ context.Context, _ uuid.UUID) (*identity.Branch, error) {
	return nil, shared.ErrNotFound
}

func (r *memBranchRepo) FindAllForTenant(_ context.Context, _ uuid.UUID) ([]identity.Branch, error) {
	return nil, nil
}

func (r *memBranchRepo) Save(_ context.Context, branch *identity.Branch) error {
	r.owners[branch.ID] = branch.TenantID
	return nil
}

func (r *memBranchRepo) BelongsToTenant(_ context.Context, branchID, tenantID uuid.UUID) (bool, error) {
	owner, ok := r.owners[branchID]
	return ok && owner == tenantID, nil
}

type memAuditRepo struct {
	entries []*audit.Entry
}

func (r *memAuditRepo) Insert(_ context.Context, entry *audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memAuditRepo) InsertBatch(_ context.Context, entries []*audit.Entry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *memAuditRepo) FindAllForTenant(_ context.Context, _ uuid.UUID, _ shared.Filter) ([]audit.Entry, int64, error) {
	return nil, 0, nil
}

func (r *memAuditRepo) actions() []audit.Action {
	out := make([]audit.Action, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

type serviceEnv struct {
	service  *CredentialService
	creds    *memCredentialRepo
	branches *memBranchRepo
	audits   *memAuditRepo
	keys     *auth.APIKeyService
	tenantID uuid.UUID
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()
	creds := newMemCredentialRepo()
	branches := &memBranchRepo{owners: make(map[uuid.UUID]uuid.UUID)}
	audits := &memAuditRepo{}
	keys := auth.NewAPIKeyService()
	recorder := gateway.NewAuditRecorder(audits, zap.NewNop(), time.Hour, 1000, time.Second)
	return &serviceEnv{
		service:  NewCredentialService(creds, branches, keys, recorder, 24*time.Hour, zap.NewNop()),
		creds:    creds,
		branches: branches,
		audits:   audits,
		keys:     keys,
		tenantID: uuid.New(),
	}
}

func TestCredentialService_Create(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	issued, err := env.service.Create(ctx, env.tenantID, "admin", CreateCredentialInput{
		Name:      "CRM integration",
		ScopeType: "tenant",
		Scopes:    []string{credential.ScopeLeadsRead},
	})
	require.NoError(t, err)

	assert.True(t, env.keys.ValidateFormat(issued.PlainKey), "plaintext key is returned once, well formed")
	assert.Equal(t, issued.PlainKey[:8], issued.Credential.KeyPrefix)

	stored, err := env.creds.FindByKeyHash(ctx, env.keys.Hash(issued.PlainKey))
	require.NoError(t, err)
	assert.NotEqual(t, issued.PlainKey, stored.KeyHash, "only the hash is persisted")
	assert.Equal(t, credential.DefaultRateLimitRPM, stored.RateLimitRPM)

	assert.Equal(t, []audit.Action{audit.ActionCreated}, env.audits.actions())
}

func TestCredentialService_CreateBranchScoped(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	owned, err := identity.NewBranch(env.tenantID, "Downtown")
	require.NoError(t, err)
	require.NoError(t, env.branches.Save(ctx, owned))

	foreign, err := identity.NewBranch(uuid.New(), "Elsewhere")
	require.NoError(t, err)
	require.NoError(t, env.branches.Save(ctx, foreign))

	_, err = env.service.Create(ctx, env.tenantID, "admin", CreateCredentialInput{
		Name:      "POS key",
		ScopeType: "branch",
		BranchID:  &foreign.ID,
		Scopes:    []string{credential.ScopeLeadsRead},
	})
	require.Error(t, err, "foreign branch must be rejected at issue time")

	issued, err := env.service.Create(ctx, env.tenantID, "admin", CreateCredentialInput{
		Name:      "POS key",
		ScopeType: "branch",
		BranchID:  &owned.ID,
		Scopes:    []string{credential.ScopeLeadsRead},
	})
	require.NoError(t, err)
	assert.Equal(t, "branch", issued.Credential.ScopeType)
}

func TestCredentialService_Rotate(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	issued, err := env.service.Create(ctx, env.tenantID, "admin", CreateCredentialInput{
		Name:         "rotating key",
		ScopeType:    "tenant",
		Scopes:       []string{credential.ScopeLeadsRead},
		RateLimitRPM: 120,
		RateLimitRPD: 5000,
	})
	require.NoError(t, err)
	oldID := issued.Credential.ID

	rotated, err := env.service.Rotate(ctx, env.tenantID, oldID, "admin")
	require.NoError(t, err)
	assert.NotEqual(t, oldID, rotated.Credential.ID)
	assert.NotEqual(t, issued.PlainKey, rotated.PlainKey)

	// Successor inherits the settings.
	assert.Equal(t, 120, rotated.Credential.RateLimitRPM)
	assert.Equal(t, 5000, rotated.Credential.RateLimitRPD)

	// The old key stays valid only for the grace window.
	old := env.creds.byID[oldID]
	require.NotNil(t, old.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *old.ExpiresAt, time.Minute)
	assert.Equal(t, rotated.Credential.ID, *old.RotatedTo)
	assert.True(t, old.Active, "old key keeps working during grace")

	assert.Contains(t, env.audits.actions(), audit.ActionRotated)
}

func TestCredentialService_Revoke(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	issued, err := env.service.Create(ctx, env.tenantID, "admin", CreateCredentialInput{
		Name:      "doomed key",
		ScopeType: "tenant",
		Scopes:    []string{credential.ScopeLeadsRead},
	})
	require.NoError(t, err)

	require.NoError(t, env.service.Revoke(ctx, env.tenantID, issued.Credential.ID, "admin"))

	stored := env.creds.byID[issued.Credential.ID]
	assert.False(t, stored.Active)
	assert.NotNil(t, stored.RevokedAt, "soft delete keeps the row for audit linkage")

	err = env.service.Revoke(ctx, env.tenantID, issued.Credential.ID, "admin")
	assert.Error(t, err, "double revoke is rejected")
}

func TestCredentialService_TenantIsolation(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	issued, err := env.service.Create(ctx, env.tenantID, "admin", CreateCredentialInput{
		Name:      "mine",
		ScopeType: "tenant",
		Scopes:    []string{credential.ScopeLeadsRead},
	})
	require.NoError(t, err)

	otherTenant := uuid.New()
	_, err = env.service.Get(ctx, otherTenant, issued.Credential.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	err = env.service.Revoke(ctx, otherTenant, issued.Credential.ID, "admin")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCredentialService_Update(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	issued, err := env.service.Create(ctx, env.tenantID, "admin", CreateCredentialInput{
		Name:      "before",
		ScopeType: "tenant",
		Scopes:    []string{credential.ScopeLeadsRead},
	})
	require.NoError(t, err)

	newName := "after"
	rpm := 30
	updated, err := env.service.Update(ctx, env.tenantID, issued.Credential.ID, "admin", UpdateCredentialInput{
		Name:         &newName,
		RateLimitRPM: &rpm,
	})
	require.NoError(t, err)

	assert.Equal(t, "after", updated.Name)
	assert.Equal(t, 30, updated.RateLimitRPM)
	// Untouched fields survive a partial update.
	assert.Equal(t, credential.DefaultRateLimitRPD, updated.RateLimitRPD)
	assert.Equal(t, []string{credential.ScopeLeadsRead}, updated.Scopes)
}
