package persistence

import (
	"context"

	"github.com/apigw/backend/internal/domain/resource"
	"github.com/apigw/backend/internal/domain/shared"
	"github.com/apigw/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLeadRepository implements resource.LeadRepository using GORM
type GormLeadRepository struct {
	db *gorm.DB
}

// NewGormLeadRepository creates a new GormLeadRepository
func NewGormLeadRepository(db *gorm.DB) *GormLeadRepository {
	return &GormLeadRepository{db: db}
}

// FindForTenant finds leads of a tenant under the effective branch filter.
// A nil branchID makes every branch of the tenant visible.
func (r *GormLeadRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, branchID *uuid.UUID, filter shared.Filter) ([]resource.Lead, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.LeadModel{}).
		Where("tenant_id = ?", tenantID)

	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}

	if filter.Search != "" {
		keyword := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ? OR phone ILIKE ?", keyword, keyword)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, LeadSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder)

	offset := (filter.Page - 1) * filter.PageSize
	if offset < 0 {
		offset = 0
	}
	limit := filter.PageSize
	if limit <= 0 {
		limit = 20
	}
	query = query.Offset(offset).Limit(limit)

	var leadModels []models.LeadModel
	if err := query.Find(&leadModels).Error; err != nil {
		return nil, 0, err
	}

	leads := make([]resource.Lead, len(leadModels))
	for i, model := range leadModels {
		leads[i] = model.ToDomain()
	}

	return leads, total, nil
}
