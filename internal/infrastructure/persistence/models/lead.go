package models

import (
	"github.com/apigw/backend/internal/domain/resource"
	"github.com/google/uuid"
)

// LeadModel is the persistence model for the branch-scoped lead read model
type LeadModel struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	BranchID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name     string    `gorm:"not null;size:200"`
	Phone    string    `gorm:"size:32"`
	Status   string    `gorm:"not null;size:32"`
}

// TableName specifies the table name for LeadModel
func (LeadModel) TableName() string {
	return "leads"
}

// ToDomain converts the persistence model to the domain read model
func (m *LeadModel) ToDomain() resource.Lead {
	return resource.Lead{
		BaseEntity: m.BaseModel.ToDomain(),
		TenantID:   m.TenantID,
		BranchID:   m.BranchID,
		Name:       m.Name,
		Phone:      m.Phone,
		Status:     m.Status,
	}
}

// LeadModelFromDomain converts the domain read model to the persistence model
func LeadModelFromDomain(l *resource.Lead) *LeadModel {
	m := &LeadModel{
		TenantID: l.TenantID,
		BranchID: l.BranchID,
		Name:     l.Name,
		Phone:    l.Phone,
		Status:   l.Status,
	}
	m.FromDomainBaseEntity(l.BaseEntity)
	return m
}
