package credential

import (
	"time"

	"github.com/apigw/backend/internal/domain/credential"
	"github.com/google/uuid"
)

// CredentialDTO is the external representation of a credential.
// The key hash never leaves the application layer; only the display prefix does.
type CredentialDTO struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	ScopeType       string     `json:"scope_type"`
	BranchID        *uuid.UUID `json:"branch_id,omitempty"`
	Scopes          []string   `json:"scopes"`
	KeyPrefix       string     `json:"key_prefix"`
	RateLimitRPM    int        `json:"rate_limit_rpm"`
	RateLimitRPD    int        `json:"rate_limit_rpd"`
	DailyUsageCount int64      `json:"daily_usage_count"`
	AllowedIPs      []string   `json:"allowed_ips,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Active          bool       `json:"active"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
	RotatedTo       *uuid.UUID `json:"rotated_to,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateCredentialInput contains input for issuing a credential
type CreateCredentialInput struct {
	Name         string
	ScopeType    string
	BranchID     *uuid.UUID
	Scopes       []string
	RateLimitRPM int // 0 keeps the default
	RateLimitRPD int // 0 keeps the default
	AllowedIPs   []string
	ExpiresAt    *time.Time
}

// UpdateCredentialInput contains input for updating a credential.
// Nil fields are left unchanged.
type UpdateCredentialInput struct {
	Name         *string
	Scopes       []string
	RateLimitRPM *int
	RateLimitRPD *int
	AllowedIPs   []string
	ExpiresAt    *time.Time
}

// IssuedCredential pairs the stored credential with its plaintext key,
// which is shown exactly once at issue or rotation time.
type IssuedCredential struct {
	Credential CredentialDTO `json:"credential"`
	PlainKey   string        `json:"plain_key"`
}

func toDTO(c *credential.APICredential) CredentialDTO {
	return CredentialDTO{
		ID:              c.ID,
		Name:            c.Name,
		ScopeType:       string(c.ScopeType),
		BranchID:        c.BranchID,
		Scopes:          c.Scopes,
		KeyPrefix:       c.KeyPrefix,
		RateLimitRPM:    c.RateLimitRPM,
		RateLimitRPD:    c.RateLimitRPD,
		DailyUsageCount: c.DailyUsageCount,
		AllowedIPs:      c.AllowedIPs,
		ExpiresAt:       c.ExpiresAt,
		Active:          c.Active,
		RevokedAt:       c.RevokedAt,
		RotatedTo:       c.RotatedTo,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
