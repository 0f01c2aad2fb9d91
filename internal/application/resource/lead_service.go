package resource

import (
	"context"
	"time"

	"github.com/apigw/backend/internal/domain/resource"
	"github.com/apigw/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// LeadDTO is the external representation of a lead
type LeadDTO struct {
	ID        uuid.UUID `json:"id"`
	BranchID  uuid.UUID `json:"branch_id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// LeadService serves branch-filtered lead listings. The effective branch
// filter is decided upstream by the authorization pipeline; this service
// only applies it.
type LeadService struct {
	leads resource.LeadRepository
}

// NewLeadService creates a new lead service
func NewLeadService(leads resource.LeadRepository) *LeadService {
	return &LeadService{leads: leads}
}

// List returns the tenant's leads under the effective branch filter.
// A nil branchID leaves every branch visible.
func (s *LeadService) List(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, filter shared.Filter) (*shared.Paginated[LeadDTO], error) {
	leads, total, err := s.leads.FindForTenant(ctx, tenantID, branchID, filter)
	if err != nil {
		return nil, err
	}

	dtos := make([]LeadDTO, len(leads))
	for i, l := range leads {
		dtos[i] = LeadDTO{
			ID:        l.ID,
			BranchID:  l.BranchID,
			Name:      l.Name,
			Phone:     l.Phone,
			Status:    l.Status,
			CreatedAt: l.CreatedAt,
		}
	}
	page := shared.NewPaginated(dtos, total, filter.Page, filter.PageSize)
	return &page, nil
}
