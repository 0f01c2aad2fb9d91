package gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/apigw/backend/internal/domain/audit"
	"github.com/apigw/backend/internal/domain/credential"
	"github.com/apigw/backend/internal/domain/identity"
	"github.com/apigw/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var errStoreDown = errors.New("store down")

type fakeCredentialRepo struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*credential.APICredential
	byHash map[string]*credential.APICredential
	fail   bool
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{
		byID:   make(map[uuid.UUID]*credential.APICredential),
		byHash: make(map[string]*credential.APICredential),
	}
}

func (r *fakeCredentialRepo) add(c *credential.APICredential) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = c
	r.byHash[c.KeyHash] = c
}

func (r *fakeCredentialRepo) FindByID(_ context.Context, id uuid.UUID) (*credential.APICredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, errStoreDown
	}
	c, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *fakeCredentialRepo) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*credential.APICredential, error) {
	c, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (r *fakeCredentialRepo) FindByKeyHash(_ context.Context, keyHash string) (*credential.APICredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return nil, errStoreDown
	}
	c, ok := r.byHash[keyHash]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *fakeCredentialRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID, _ shared.Filter) ([]credential.APICredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []credential.APICredential
	for _, c := range r.byID {
		if c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeCredentialRepo) CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	creds, err := r.FindAllForTenant(ctx, tenantID, shared.Filter{})
	return int64(len(creds)), err
}

func (r *fakeCredentialRepo) Save(_ context.Context, cred *credential.APICredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errStoreDown
	}
	clone := *cred
	r.byID[cred.ID] = &clone
	r.byHash[cred.KeyHash] = &clone
	return nil
}

func (r *fakeCredentialRepo) IncrementDailyUsage(_ context.Context, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return 0, errStoreDown
	}
	c, ok := r.byID[id]
	if !ok {
		return 0, shared.ErrNotFound
	}
	c.DailyUsageCount++
	return c.DailyUsageCount, nil
}

func (r *fakeCredentialRepo) ResetDailyUsage(_ context.Context, id uuid.UUID, usageDate string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errStoreDown
	}
	c, ok := r.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	if c.UsageDate != usageDate {
		c.DailyUsageCount = 0
		c.UsageDate = usageDate
	}
	return nil
}

type fakeBranchRepo struct {
	owners map[uuid.UUID]uuid.UUID // branch -> tenant
	fail   bool
}

func newFakeBranchRepo() *fakeBranchRepo {
	return &fakeBranchRepo{owners: make(map[uuid.UUID]uuid.UUID)}
}

func (r *fakeBranchRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.Branch, error) {
	tenantID, ok := r.owners[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	b := &identity.Branch{Name: "branch"}
	b.ID = id
	b.TenantID = tenantID
	return b, nil
}

func (r *fakeBranchRepo) FindAllForTenant(_ context.Context, tenantID uuid.UUID) ([]identity.Branch, error) {
	var out []identity.Branch
	for branchID, owner := range r.owners {
		if owner == tenantID {
			b := identity.Branch{Name: "branch"}
			b.ID = branchID
			b.TenantID = owner
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBranchRepo) Save(_ context.Context, branch *identity.Branch) error {
	r.owners[branch.ID] = branch.TenantID
	return nil
}

func (r *fakeBranchRepo) BelongsToTenant(_ context.Context, branchID, tenantID uuid.UUID) (bool, error) {
	if r.fail {
		return false, errStoreDown
	}
	owner, ok := r.owners[branchID]
	return ok && owner == tenantID, nil
}

type fakeAuditRepo struct {
	mu          sync.Mutex
	entries     []*audit.Entry
	failInserts bool
	failBatches int // fail this many batch calls before succeeding
	batchCalls  int
}

func newFakeAuditRepo() *fakeAuditRepo {
	return &fakeAuditRepo{}
}

func (r *fakeAuditRepo) Insert(_ context.Context, entry *audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInserts {
		return errStoreDown
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) InsertBatch(_ context.Context, entries []*audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchCalls++
	if r.failBatches > 0 {
		r.failBatches--
		return errStoreDown
	}
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeAuditRepo) FindAllForTenant(context.Context, uuid.UUID, shared.Filter) ([]audit.Entry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) recorded() []*audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*audit.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *fakeAuditRepo) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Action, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}
