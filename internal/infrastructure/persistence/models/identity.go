package models

import (
	"github.com/apigw/backend/internal/domain/identity"
)

// BranchModel is the persistence model for branches
type BranchModel struct {
	TenantAggregateModel
	Name     string `gorm:"not null;size:200"`
	Timezone string `gorm:"size:64"`
	Active   bool   `gorm:"not null;default:true"`
}

// TableName specifies the table name for BranchModel
func (BranchModel) TableName() string {
	return "branches"
}

// ToDomain converts the persistence model to the domain aggregate
func (m *BranchModel) ToDomain() *identity.Branch {
	b := &identity.Branch{
		Name:     m.Name,
		Timezone: m.Timezone,
		Active:   m.Active,
	}
	m.PopulateTenantAggregateRoot(&b.TenantAggregateRoot)
	return b
}

// BranchModelFromDomain converts the domain aggregate to the persistence model
func BranchModelFromDomain(b *identity.Branch) *BranchModel {
	m := &BranchModel{
		Name:     b.Name,
		Timezone: b.Timezone,
		Active:   b.Active,
	}
	m.FromDomainTenantAggregateRoot(b.TenantAggregateRoot)
	return m
}
