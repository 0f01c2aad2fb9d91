package persistence

import (
	"context"
	"errors"

	"github.com/apigw/backend/internal/domain/credential"
	"github.com/apigw/backend/internal/domain/shared"
	"github.com/apigw/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCredentialRepository implements credential.Repository using GORM
type GormCredentialRepository struct {
	db *gorm.DB
}

// NewGormCredentialRepository creates a new GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

// FindByID finds a credential by its ID
func (r *GormCredentialRepository) FindByID(ctx context.Context, id uuid.UUID) (*credential.APICredential, error) {
	var model models.CredentialModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByIDForTenant finds a credential by ID constrained to the owning tenant
func (r *GormCredentialRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*credential.APICredential, error) {
	var model models.CredentialModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByKeyHash finds a credential by the hash of its bearer key.
// This is the hot-path lookup, served by the unique index on key_hash.
func (r *GormCredentialRepository) FindByKeyHash(ctx context.Context, keyHash string) (*credential.APICredential, error) {
	var model models.CredentialModel
	if err := r.db.WithContext(ctx).
		Where("key_hash = ?", keyHash).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindAllForTenant finds all credentials of a tenant matching the filter
func (r *GormCredentialRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]credential.APICredential, error) {
	var credentialModels []models.CredentialModel
	query := r.db.WithContext(ctx).Model(&models.CredentialModel{}).
		Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		keyword := "%" + filter.Search + "%"
		query = query.Where("name ILIKE ?", keyword)
	}

	sortField := ValidateSortField(filter.OrderBy, CredentialSortFields, "created_at")
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

	if err := query.Find(&credentialModels).Error; err != nil {
		return nil, err
	}

	credentials := make([]credential.APICredential, len(credentialModels))
	for i, model := range credentialModels {
		c, err := model.ToDomain()
		if err != nil {
			return nil, err
		}
		credentials[i] = *c
	}

	return credentials, nil
}

// CountForTenant counts the credentials of a tenant
func (r *GormCredentialRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CredentialModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a credential
func (r *GormCredentialRepository) Save(ctx context.Context, cred *credential.APICredential) error {
	model, err := models.CredentialModelFromDomain(cred)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(model).Error
}

// IncrementDailyUsage adds one to the daily counter as a single fetch-and-add
// statement and returns the post-increment value. Concurrent instances each
// observe a distinct value.
func (r *GormCredentialRepository) IncrementDailyUsage(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		"UPDATE api_credentials SET daily_usage_count = daily_usage_count + 1 WHERE id = ? RETURNING daily_usage_count",
		id,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ResetDailyUsage zeroes the daily counter and stamps the new usage date.
// The guard on usage_date means only the first instance to observe the new
// UTC day performs the rollover; later callers match zero rows and move on.
func (r *GormCredentialRepository) ResetDailyUsage(ctx context.Context, id uuid.UUID, usageDate string) error {
	return r.db.WithContext(ctx).
		Model(&models.CredentialModel{}).
		Where("id = ? AND usage_date <> ?", id, usageDate).
		Updates(map[string]interface{}{
			"daily_usage_count": 0,
			"usage_date":        usageDate,
		}).Error
}
