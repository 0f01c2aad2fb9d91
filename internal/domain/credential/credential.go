package credential

import (
	"net"
	"time"

	"github.com/apigw/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ScopeType determines the data visibility of a credential
type ScopeType string

const (
	// ScopeTypeTenant credentials see every branch of the owning tenant
	ScopeTypeTenant ScopeType = "tenant"
	// ScopeTypeBranch credentials are pinned to a single branch
	ScopeTypeBranch ScopeType = "branch"
)

// Default rate ceilings applied when a credential is created without explicit limits
const (
	DefaultRateLimitRPM = 60
	DefaultRateLimitRPD = 10000
)

// APICredential is the aggregate root for one issued API key.
//
// The plaintext secret is never stored; only its one-way hash. Revocation is a
// soft delete (Active=false) so audit entries keep a valid target. A branch
// scoped credential always carries the branch it is pinned to; a tenant scoped
// credential never does — this pair of invariants is enforced at construction
// and on every mutation.
type APICredential struct {
	shared.TenantAggregateRoot
	Name            string
	BranchID        *uuid.UUID
	ScopeType       ScopeType
	Scopes          []string
	KeyPrefix       string
	KeyHash         string
	RateLimitRPM    int
	RateLimitRPD    int
	DailyUsageCount int64
	UsageDate       string // UTC calendar date (YYYY-MM-DD) the daily counter applies to
	AllowedIPs      []string
	ExpiresAt       *time.Time
	Active          bool
	RevokedAt       *time.Time
	RotatedTo       *uuid.UUID
}

// NewAPICredential creates a credential aggregate. For branch scope the branch
// ID is mandatory; for tenant scope it must be absent. Branch/tenant ownership
// is checked by the caller against the branch repository before persisting.
func NewAPICredential(tenantID uuid.UUID, name string, scopeType ScopeType, branchID *uuid.UUID, scopes []string, keyPrefix, keyHash string) (*APICredential, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateScopeBinding(scopeType, branchID); err != nil {
		return nil, err
	}
	if err := ValidateScopes(scopes); err != nil {
		return nil, err
	}
	if keyHash == "" {
		return nil, shared.NewDomainError("INVALID_KEY_HASH", "Key hash cannot be empty")
	}

	return &APICredential{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Name:                name,
		BranchID:            branchID,
		ScopeType:           scopeType,
		Scopes:              scopes,
		KeyPrefix:           keyPrefix,
		KeyHash:             keyHash,
		RateLimitRPM:        DefaultRateLimitRPM,
		RateLimitRPD:        DefaultRateLimitRPD,
		DailyUsageCount:     0,
		UsageDate:           time.Now().UTC().Format("2006-01-02"),
		Active:              true,
	}, nil
}

// Rename updates the display name
func (c *APICredential) Rename(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	c.Name = name
	c.touch()
	return nil
}

// SetScopes replaces the granted permission set
func (c *APICredential) SetScopes(scopes []string) error {
	if err := ValidateScopes(scopes); err != nil {
		return err
	}
	c.Scopes = scopes
	c.touch()
	return nil
}

// SetRateLimits updates both request ceilings
func (c *APICredential) SetRateLimits(rpm, rpd int) error {
	if rpm <= 0 || rpd <= 0 {
		return shared.NewDomainError("INVALID_RATE_LIMIT", "Rate limits must be positive")
	}
	c.RateLimitRPM = rpm
	c.RateLimitRPD = rpd
	c.touch()
	return nil
}

// SetAllowedIPs replaces the caller IP allowlist. An empty list disables the check.
func (c *APICredential) SetAllowedIPs(ips []string) error {
	for _, ip := range ips {
		if net.ParseIP(ip) == nil {
			return shared.NewDomainError("INVALID_IP", "Allowlist entries must be valid IP addresses")
		}
	}
	c.AllowedIPs = ips
	c.touch()
	return nil
}

// SetExpiration sets an absolute expiry timestamp
func (c *APICredential) SetExpiration(expiresAt time.Time) {
	c.ExpiresAt = &expiresAt
	c.touch()
}

// Revoke soft-deletes the credential. The row is kept so audit entries remain linked.
func (c *APICredential) Revoke() error {
	if !c.Active {
		return shared.NewDomainError("ALREADY_REVOKED", "Credential is already revoked")
	}
	now := time.Now()
	c.Active = false
	c.RevokedAt = &now
	c.touch()
	return nil
}

// Supersede marks this credential as rotated to a successor and bounds its
// remaining lifetime to the grace period. An earlier expiry always wins.
func (c *APICredential) Supersede(successor uuid.UUID, grace time.Duration) error {
	if !c.Active {
		return shared.NewDomainError("INVALID_STATE", "Cannot rotate a revoked credential")
	}
	if grace <= 0 {
		return shared.NewDomainError("INVALID_GRACE_PERIOD", "Grace period must be positive")
	}
	graceEnd := time.Now().Add(grace)
	if c.ExpiresAt == nil || graceEnd.Before(*c.ExpiresAt) {
		c.ExpiresAt = &graceEnd
	}
	c.RotatedTo = &successor
	c.touch()
	return nil
}

// IsExpired reports whether the credential is past its expiry at the given instant
func (c *APICredential) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// HasScope reports whether the granted set satisfies the required permission.
// A universal wildcard grant satisfies everything. Advisory prerequisites
// (see Catalog) are deliberately not consulted here.
func (c *APICredential) HasScope(required string) bool {
	for _, s := range c.Scopes {
		if s == ScopeAll || s == required {
			return true
		}
	}
	return false
}

// AllowsIP reports whether the caller IP passes the allowlist.
// An empty allowlist admits every caller.
func (c *APICredential) AllowsIP(ip string) bool {
	if len(c.AllowedIPs) == 0 {
		return true
	}
	for _, allowed := range c.AllowedIPs {
		if allowed == ip {
			return true
		}
	}
	return false
}

// NeedsUsageReset reports whether the stored usage date is stale for the given
// UTC calendar date, meaning the daily counter must roll over before counting.
func (c *APICredential) NeedsUsageReset(today string) bool {
	return c.UsageDate != today
}

func (c *APICredential) touch() {
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

func validateName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Credential name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Credential name cannot exceed 200 characters")
	}
	return nil
}

func validateScopeBinding(scopeType ScopeType, branchID *uuid.UUID) error {
	switch scopeType {
	case ScopeTypeBranch:
		if branchID == nil || *branchID == uuid.Nil {
			return shared.NewDomainError("BRANCH_REQUIRED", "Branch scoped credentials must reference a branch")
		}
	case ScopeTypeTenant:
		if branchID != nil {
			return shared.NewDomainError("BRANCH_NOT_ALLOWED", "Tenant scoped credentials cannot reference a branch")
		}
	default:
		return shared.NewDomainError("INVALID_SCOPE_TYPE", "Scope type must be tenant or branch")
	}
	return nil
}
