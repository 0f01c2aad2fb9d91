package models

import (
	"encoding/json"
	"time"

	"github.com/apigw/backend/internal/domain/credential"
	"github.com/google/uuid"
)

// CredentialModel is the persistence model for API credentials.
// Scopes and AllowedIPs are stored as JSON arrays in text columns.
type CredentialModel struct {
	TenantAggregateModel
	Name            string     `gorm:"not null;size:200"`
	BranchID        *uuid.UUID `gorm:"type:uuid;index"`
	ScopeType       string     `gorm:"not null;size:16"`
	Scopes          string     `gorm:"not null;type:text"`
	KeyPrefix       string     `gorm:"not null;size:16"`
	KeyHash         string     `gorm:"not null;size:64;uniqueIndex"`
	RateLimitRPM    int        `gorm:"not null"`
	RateLimitRPD    int        `gorm:"not null"`
	DailyUsageCount int64      `gorm:"not null;default:0"`
	UsageDate       string     `gorm:"not null;size:10"`
	AllowedIPs      string     `gorm:"not null;type:text"`
	ExpiresAt       *time.Time `gorm:"index"`
	Active          bool       `gorm:"not null;default:true;index"`
	RevokedAt       *time.Time
	RotatedTo       *uuid.UUID `gorm:"type:uuid"`
}

// TableName specifies the table name for CredentialModel
func (CredentialModel) TableName() string {
	return "api_credentials"
}

// ToDomain converts the persistence model to the domain aggregate
func (m *CredentialModel) ToDomain() (*credential.APICredential, error) {
	var scopes []string
	if err := json.Unmarshal([]byte(m.Scopes), &scopes); err != nil {
		return nil, err
	}
	var allowedIPs []string
	if err := json.Unmarshal([]byte(m.AllowedIPs), &allowedIPs); err != nil {
		return nil, err
	}

	c := &credential.APICredential{
		Name:            m.Name,
		BranchID:        m.BranchID,
		ScopeType:       credential.ScopeType(m.ScopeType),
		Scopes:          scopes,
		KeyPrefix:       m.KeyPrefix,
		KeyHash:         m.KeyHash,
		RateLimitRPM:    m.RateLimitRPM,
		RateLimitRPD:    m.RateLimitRPD,
		DailyUsageCount: m.DailyUsageCount,
		UsageDate:       m.UsageDate,
		AllowedIPs:      allowedIPs,
		ExpiresAt:       m.ExpiresAt,
		Active:          m.Active,
		RevokedAt:       m.RevokedAt,
		RotatedTo:       m.RotatedTo,
	}
	m.PopulateTenantAggregateRoot(&c.TenantAggregateRoot)
	return c, nil
}

// CredentialModelFromDomain converts the domain aggregate to the persistence model
func CredentialModelFromDomain(c *credential.APICredential) (*CredentialModel, error) {
	scopes, err := json.Marshal(c.Scopes)
	if err != nil {
		return nil, err
	}
	allowedIPs := c.AllowedIPs
	if allowedIPs == nil {
		allowedIPs = []string{}
	}
	ips, err := json.Marshal(allowedIPs)
	if err != nil {
		return nil, err
	}

	m := &CredentialModel{
		Name:            c.Name,
		BranchID:        c.BranchID,
		ScopeType:       string(c.ScopeType),
		Scopes:          string(scopes),
		KeyPrefix:       c.KeyPrefix,
		KeyHash:         c.KeyHash,
		RateLimitRPM:    c.RateLimitRPM,
		RateLimitRPD:    c.RateLimitRPD,
		DailyUsageCount: c.DailyUsageCount,
		UsageDate:       c.UsageDate,
		AllowedIPs:      string(ips),
		ExpiresAt:       c.ExpiresAt,
		Active:          c.Active,
		RevokedAt:       c.RevokedAt,
		RotatedTo:       c.RotatedTo,
	}
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	return m, nil
}
