package credential

import (
	"context"
	"time"

	"github.com/apigw/backend/internal/application/gateway"
	"github.com/apigw/backend/internal/domain/audit"
	"github.com/apigw/backend/internal/domain/credential"
	"github.com/apigw/backend/internal/domain/identity"
	"github.com/apigw/backend/internal/domain/shared"
	"github.com/apigw/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CredentialService handles the credential lifecycle: issue, update,
// rotate, revoke. Every mutation is written to the audit log synchronously;
// these are the high-value events the sync path exists for.
type CredentialService struct {
	creds    credential.Repository
	branches identity.BranchRepository
	keys     *auth.APIKeyService
	recorder *gateway.AuditRecorder
	grace    time.Duration
	logger   *zap.Logger
}

// NewCredentialService creates a new credential service. grace bounds how
// long a rotated-out credential keeps working.
func NewCredentialService(
	creds credential.Repository,
	branches identity.BranchRepository,
	keys *auth.APIKeyService,
	recorder *gateway.AuditRecorder,
	grace time.Duration,
	logger *zap.Logger,
) *CredentialService {
	if grace <= 0 {
		grace = 24 * time.Hour
	}
	return &CredentialService{
		creds:    creds,
		branches: branches,
		keys:     keys,
		recorder: recorder,
		grace:    grace,
		logger:   logger,
	}
}

// Create issues a new credential and returns it with the plaintext key.
// The plaintext is not retrievable afterwards.
func (s *CredentialService) Create(ctx context.Context, tenantID uuid.UUID, actorID string, input CreateCredentialInput) (*IssuedCredential, error) {
	if credential.ScopeType(input.ScopeType) == credential.ScopeTypeBranch && input.BranchID != nil {
		owned, err := s.branches.BelongsToTenant(ctx, *input.BranchID, tenantID)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, shared.NewDomainError("BRANCH_NOT_OWNED", "Branch does not belong to this tenant")
		}
	}

	plainKey, err := s.keys.Generate()
	if err != nil {
		return nil, err
	}

	cred, err := credential.NewAPICredential(
		tenantID,
		input.Name,
		credential.ScopeType(input.ScopeType),
		input.BranchID,
		input.Scopes,
		displayPrefix(plainKey),
		s.keys.Hash(plainKey),
	)
	if err != nil {
		return nil, err
	}

	if input.RateLimitRPM > 0 || input.RateLimitRPD > 0 {
		rpm := orDefault(input.RateLimitRPM, credential.DefaultRateLimitRPM)
		rpd := orDefault(input.RateLimitRPD, credential.DefaultRateLimitRPD)
		if err := cred.SetRateLimits(rpm, rpd); err != nil {
			return nil, err
		}
	}
	if len(input.AllowedIPs) > 0 {
		if err := cred.SetAllowedIPs(input.AllowedIPs); err != nil {
			return nil, err
		}
	}
	if input.ExpiresAt != nil {
		cred.SetExpiration(*input.ExpiresAt)
	}

	if err := s.creds.Save(ctx, cred); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.NewEntry(tenantID, audit.ActorHuman, actorID, audit.ActionCreated, cred.ID.String(), audit.OutcomeSuccess).
		WithMetadata("name", cred.Name).
		WithMetadata("scope_type", string(cred.ScopeType)))

	s.logger.Info("credential issued",
		zap.String("credential_id", cred.ID.String()),
		zap.String("tenant_id", tenantID.String()))

	dto := toDTO(cred)
	return &IssuedCredential{Credential: dto, PlainKey: plainKey}, nil
}

// Get returns one credential of the tenant
func (s *CredentialService) Get(ctx context.Context, tenantID, id uuid.UUID) (*CredentialDTO, error) {
	cred, err := s.creds.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(cred)
	return &dto, nil
}

// List returns the tenant's credentials, paginated
func (s *CredentialService) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[CredentialDTO], error) {
	creds, err := s.creds.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.creds.CountForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	dtos := make([]CredentialDTO, len(creds))
	for i := range creds {
		dtos[i] = toDTO(&creds[i])
	}
	page := shared.NewPaginated(dtos, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Update applies the non-nil fields of the input
func (s *CredentialService) Update(ctx context.Context, tenantID, id uuid.UUID, actorID string, input UpdateCredentialInput) (*CredentialDTO, error) {
	cred, err := s.creds.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := cred.Rename(*input.Name); err != nil {
			return nil, err
		}
	}
	if input.Scopes != nil {
		if err := cred.SetScopes(input.Scopes); err != nil {
			return nil, err
		}
	}
	if input.RateLimitRPM != nil || input.RateLimitRPD != nil {
		rpm := cred.RateLimitRPM
		rpd := cred.RateLimitRPD
		if input.RateLimitRPM != nil {
			rpm = *input.RateLimitRPM
		}
		if input.RateLimitRPD != nil {
			rpd = *input.RateLimitRPD
		}
		if err := cred.SetRateLimits(rpm, rpd); err != nil {
			return nil, err
		}
	}
	if input.AllowedIPs != nil {
		if err := cred.SetAllowedIPs(input.AllowedIPs); err != nil {
			return nil, err
		}
	}
	if input.ExpiresAt != nil {
		cred.SetExpiration(*input.ExpiresAt)
	}

	if err := s.creds.Save(ctx, cred); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.NewEntry(tenantID, audit.ActorHuman, actorID, audit.ActionUpdated, cred.ID.String(), audit.OutcomeSuccess))

	dto := toDTO(cred)
	return &dto, nil
}

// Rotate issues a successor with the same settings and bounds the old
// credential's remaining lifetime to the grace period. Both keys work
// during the grace window so integrations can switch without downtime.
func (s *CredentialService) Rotate(ctx context.Context, tenantID, id uuid.UUID, actorID string) (*IssuedCredential, error) {
	old, err := s.creds.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	plainKey, err := s.keys.Generate()
	if err != nil {
		return nil, err
	}

	successor, err := credential.NewAPICredential(
		tenantID,
		old.Name,
		old.ScopeType,
		old.BranchID,
		old.Scopes,
		displayPrefix(plainKey),
		s.keys.Hash(plainKey),
	)
	if err != nil {
		return nil, err
	}
	if err := successor.SetRateLimits(old.RateLimitRPM, old.RateLimitRPD); err != nil {
		return nil, err
	}
	if len(old.AllowedIPs) > 0 {
		if err := successor.SetAllowedIPs(old.AllowedIPs); err != nil {
			return nil, err
		}
	}

	if err := old.Supersede(successor.ID, s.grace); err != nil {
		return nil, err
	}

	if err := s.creds.Save(ctx, successor); err != nil {
		return nil, err
	}
	if err := s.creds.Save(ctx, old); err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.NewEntry(tenantID, audit.ActorHuman, actorID, audit.ActionRotated, old.ID.String(), audit.OutcomeSuccess).
		WithMetadata("successor_id", successor.ID.String()).
		WithMetadata("grace_hours", int(s.grace.Hours())))

	s.logger.Info("credential rotated",
		zap.String("credential_id", old.ID.String()),
		zap.String("successor_id", successor.ID.String()))

	dto := toDTO(successor)
	return &IssuedCredential{Credential: dto, PlainKey: plainKey}, nil
}

// Revoke soft-deletes the credential immediately
func (s *CredentialService) Revoke(ctx context.Context, tenantID, id uuid.UUID, actorID string) error {
	cred, err := s.creds.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := cred.Revoke(); err != nil {
		return err
	}
	if err := s.creds.Save(ctx, cred); err != nil {
		return err
	}

	s.recorder.Record(ctx, audit.NewEntry(tenantID, audit.ActorHuman, actorID, audit.ActionRevoked, cred.ID.String(), audit.OutcomeSuccess))

	s.logger.Info("credential revoked",
		zap.String("credential_id", cred.ID.String()),
		zap.String("tenant_id", tenantID.String()))
	return nil
}

// Scopes returns the closed catalog of grantable scopes
func (s *CredentialService) Scopes() []credential.ScopeDef {
	return credential.Catalog
}

// displayPrefix is the short fragment of the key shown in listings so an
// operator can tell keys apart without seeing the secret.
func displayPrefix(plainKey string) string {
	if len(plainKey) < 8 {
		return plainKey
	}
	return plainKey[:8]
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
