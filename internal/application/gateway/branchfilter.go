package gateway

import (
	"context"

	"github.com/apigw/backend/internal/domain/credential"
	"github.com/apigw/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// BranchScope is the effective data visibility decided for one request.
// A nil BranchID means every branch of the tenant is visible.
type BranchScope struct {
	BranchID *uuid.UUID
	// SelectorIgnored marks that a branch-scoped credential supplied a
	// selector which was discarded, not honored
	SelectorIgnored bool
	// LegacyUsage marks the deprecated pattern: a tenant-scoped credential
	// narrowing via the caller-supplied branch_id parameter
	LegacyUsage bool
}

// BranchFilterResolver decides the branch filter applied downstream.
//
// The asymmetry is the core isolation guarantee: a branch-scoped credential
// is always pinned to its branch and no request parameter can widen it,
// while a tenant-scoped credential may optionally narrow to one of its own
// branches after validation and an ownership check.
type BranchFilterResolver struct {
	branches identity.BranchRepository
}

// NewBranchFilterResolver creates a new BranchFilterResolver
func NewBranchFilterResolver(branches identity.BranchRepository) *BranchFilterResolver {
	return &BranchFilterResolver{branches: branches}
}

// Resolve computes the effective branch scope for the credential and the
// raw caller-supplied selector (empty when absent).
func (r *BranchFilterResolver) Resolve(ctx context.Context, cred *credential.APICredential, selector string) (*BranchScope, error) {
	if cred.ScopeType == credential.ScopeTypeBranch {
		// The selector is silently ignored whatever it contains, malformed
		// or not; it must be provably inert for branch-scoped credentials.
		return &BranchScope{
			BranchID:        cred.BranchID,
			SelectorIgnored: selector != "",
		}, nil
	}

	if selector == "" {
		return &BranchScope{}, nil
	}

	branchID, err := uuid.Parse(selector)
	if err != nil {
		return nil, invalidBranchError()
	}

	owned, err := r.branches.BelongsToTenant(ctx, branchID, cred.TenantID)
	if err != nil {
		return nil, serviceUnavailableError("branch_ownership_check_failed")
	}
	if !owned {
		return nil, branchAccessDeniedError()
	}

	return &BranchScope{
		BranchID:    &branchID,
		LegacyUsage: true,
	}, nil
}
