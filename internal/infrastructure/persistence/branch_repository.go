package persistence

import (
	"context"
	"errors"

	"github.com/apigw/backend/internal/domain/identity"
	"github.com/apigw/backend/internal/domain/shared"
	"github.com/apigw/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBranchRepository implements identity.BranchRepository using GORM
type GormBranchRepository struct {
	db *gorm.DB
}

// NewGormBranchRepository creates a new GormBranchRepository
func NewGormBranchRepository(db *gorm.DB) *GormBranchRepository {
	return &GormBranchRepository{db: db}
}

// FindByID finds a branch by its ID
func (r *GormBranchRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Branch, error) {
	var model models.BranchModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all branches of a tenant
func (r *GormBranchRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]identity.Branch, error) {
	var branchModels []models.BranchModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&branchModels).Error; err != nil {
		return nil, err
	}

	branches := make([]identity.Branch, len(branchModels))
	for i, model := range branchModels {
		branches[i] = *model.ToDomain()
	}
	return branches, nil
}

// Save creates or updates a branch
func (r *GormBranchRepository) Save(ctx context.Context, branch *identity.Branch) error {
	model := models.BranchModelFromDomain(branch)
	return r.db.WithContext(ctx).Save(model).Error
}

// BelongsToTenant reports whether the branch exists and is owned by the tenant.
// A single indexed count keeps the request-path check cheap.
func (r *GormBranchRepository) BelongsToTenant(ctx context.Context, branchID, tenantID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.BranchModel{}).
		Where("id = ? AND tenant_id = ?", branchID, tenantID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
