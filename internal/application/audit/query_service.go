package audit

import (
	"context"
	"time"

	"github.com/apigw/backend/internal/domain/audit"
	"github.com/apigw/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// EntryDTO is the external representation of one audit log entry
type EntryDTO struct {
	ID        uuid.UUID              `json:"id"`
	ActorID   string                 `json:"actor_id"`
	ActorType string                 `json:"actor_type"`
	Action    string                 `json:"action"`
	TargetID  string                 `json:"target_id,omitempty"`
	Outcome   string                 `json:"outcome"`
	Severity  string                 `json:"severity"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// QueryService serves read access to the append-only audit log
type QueryService struct {
	repo audit.Repository
}

// NewQueryService creates a new audit query service
func NewQueryService(repo audit.Repository) *QueryService {
	return &QueryService{repo: repo}
}

// List returns the tenant's audit entries, paginated
func (s *QueryService) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[EntryDTO], error) {
	entries, total, err := s.repo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = EntryDTO{
			ID:        e.ID,
			ActorID:   e.ActorID,
			ActorType: string(e.ActorType),
			Action:    string(e.Action),
			TargetID:  e.TargetID,
			Outcome:   string(e.Outcome),
			Severity:  string(e.Severity),
			Metadata:  e.Metadata,
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			CreatedAt: e.CreatedAt,
		}
	}
	page := shared.NewPaginated(dtos, total, filter.Page, filter.PageSize)
	return &page, nil
}
