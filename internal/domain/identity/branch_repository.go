package identity

import (
	"context"

	"github.com/google/uuid"
)

// BranchRepository defines persistence operations for branches
type BranchRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Branch, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]Branch, error)
	Save(ctx context.Context, branch *Branch) error

	// BelongsToTenant reports whether the branch exists and is owned by the
	// tenant. It backs the cross-tenant isolation check on the request path,
	// so implementations should keep it a single indexed query.
	BelongsToTenant(ctx context.Context, branchID, tenantID uuid.UUID) (bool, error)
}
