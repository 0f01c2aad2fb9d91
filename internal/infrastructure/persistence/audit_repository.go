package persistence

import (
	"context"

	"github.com/apigw/backend/internal/domain/audit"
	"github.com/apigw/backend/internal/domain/shared"
	"github.com/apigw/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditRepository implements audit.Repository using GORM.
// The store is append-only; no update or delete methods exist.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Insert appends a single audit entry
func (r *GormAuditRepository) Insert(ctx context.Context, entry *audit.Entry) error {
	model, err := models.AuditLogModelFromDomain(entry)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// InsertBatch appends a batch of audit entries in one statement
func (r *GormAuditRepository) InsertBatch(ctx context.Context, entries []*audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := make([]*models.AuditLogModel, len(entries))
	for i, entry := range entries {
		model, err := models.AuditLogModelFromDomain(entry)
		if err != nil {
			return err
		}
		batch[i] = model
	}
	return r.db.WithContext(ctx).Create(&batch).Error
}

// FindAllForTenant finds audit entries of a tenant matching the filter,
// returning the page and the total count.
func (r *GormAuditRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]audit.Entry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLogModel{}).
		Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		keyword := "%" + filter.Search + "%"
		query = query.Where("action ILIKE ? OR target_id ILIKE ?", keyword, keyword)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField := ValidateSortField(filter.OrderBy, AuditSortFields, "created_at")
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

	var logModels []models.AuditLogModel
	if err := query.Find(&logModels).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]audit.Entry, len(logModels))
	for i, model := range logModels {
		e, err := model.ToDomain()
		if err != nil {
			return nil, 0, err
		}
		entries[i] = *e
	}

	return entries, total, nil
}
