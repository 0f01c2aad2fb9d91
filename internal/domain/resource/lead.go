// Package resource holds the minimal read models the gateway filters by
// branch. The full vertical entities live in the dashboard services; the
// gateway only needs enough shape to apply and prove the data scope.
package resource

import (
	"context"

	"github.com/apigw/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Lead is a branch-scoped sales lead read model
type Lead struct {
	shared.BaseEntity
	TenantID uuid.UUID
	BranchID uuid.UUID
	Name     string
	Phone    string
	Status   string
}

// LeadRepository reads leads under an effective branch filter.
// A nil branchID means every branch of the tenant is visible.
type LeadRepository interface {
	FindForTenant(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, filter shared.Filter) ([]Lead, int64, error)
}
