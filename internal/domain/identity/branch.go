package identity

import (
	"github.com/apigw/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Branch is a sub-unit of a tenant (typically a physical location) used to
// scope data visibility.
type Branch struct {
	shared.TenantAggregateRoot
	Name     string
	Timezone string
	Active   bool
}

// NewBranch creates a branch under the given tenant
func NewBranch(tenantID uuid.UUID, name string) (*Branch, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Branch name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Branch name cannot exceed 200 characters")
	}
	return &Branch{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		Active:              true,
	}, nil
}

// BelongsTo reports whether the branch is owned by the given tenant
func (b *Branch) BelongsTo(tenantID uuid.UUID) bool {
	return b.TenantID == tenantID
}
