package gateway

import (
	"context"
	"time"

	"github.com/apigw/backend/internal/domain/audit"
	"github.com/apigw/backend/internal/domain/credential"
	"github.com/apigw/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuthorizeInput is everything the pipeline needs from one HTTP request
type AuthorizeInput struct {
	Token          string
	ClientIP       string
	UserAgent      string
	RequiredScope  string
	BranchSelector string // raw branch_id query value, empty when absent
	AllowLegacy    bool   // X-Allow-Legacy-Filtering: true
	Path           string
	Method         string
}

// Authorization is the pipeline's admitted result. On rate-limit rejection
// it is still returned alongside the error so the transport layer can emit
// the X-RateLimit telemetry headers.
type Authorization struct {
	Credential  *credential.APICredential
	Quota       *Quota
	Branch      *BranchScope
	Deprecation *DeprecationVerdict
}

// AuthorizationService runs the full request authorization pipeline:
// resolve credential → IP allowlist → rate limits → scope → branch filter →
// deprecation gate, auditing along the way. Every stage fails fast; no
// stage runs past an earlier rejection.
type AuthorizationService struct {
	resolver *CredentialResolver
	limiter  *RateLimiter
	scopes   ScopeGuard
	branches *BranchFilterResolver
	gate     *DeprecationGate
	recorder *AuditRecorder
	timeout  time.Duration
	logger   *zap.Logger
}

// NewAuthorizationService creates the pipeline. timeout bounds every
// persistence-touching stage; on expiry the request is rejected, not
// admitted.
func NewAuthorizationService(
	resolver *CredentialResolver,
	limiter *RateLimiter,
	scopes ScopeGuard,
	branches *BranchFilterResolver,
	gate *DeprecationGate,
	recorder *AuditRecorder,
	timeout time.Duration,
	logger *zap.Logger,
) *AuthorizationService {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &AuthorizationService{
		resolver: resolver,
		limiter:  limiter,
		scopes:   scopes,
		branches: branches,
		gate:     gate,
		recorder: recorder,
		timeout:  timeout,
		logger:   logger,
	}
}

// Authorize runs the pipeline. A non-nil Authorization may accompany a
// rate-limit error; every other rejection returns a nil result.
func (s *AuthorizationService) Authorize(ctx context.Context, in AuthorizeInput) (*Authorization, error) {
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cred, err := s.resolver.Resolve(pctx, in.Token)
	if err != nil {
		switch gwErr := asGatewayError(err); gwErr.Status {
		case 401:
			entry := audit.NewEntry(uuid.Nil, audit.ActorCredential, "", audit.ActionAuthFailed, "", audit.OutcomeFailure).
				WithMetadata("reason", gwErr.Reason()).
				WithMetadata("path", in.Path).
				WithClient(in.ClientIP, in.UserAgent)
			s.recorder.Record(ctx, entry)
		case 503:
			s.logFailClosed(ctx, "resolve", err)
		}
		return nil, err
	}

	if !cred.AllowsIP(in.ClientIP) {
		entry := audit.NewEntry(cred.TenantID, audit.ActorCredential, cred.ID.String(), audit.ActionIPBlocked, "", audit.OutcomeBlocked).
			WithMetadata("path", in.Path).
			WithClient(in.ClientIP, in.UserAgent)
		s.recorder.Record(ctx, entry)
		return nil, ipNotAllowedError()
	}

	quota, err := s.limiter.Check(pctx, cred)
	if err != nil {
		gwErr := asGatewayError(err)
		if gwErr.Status == 429 {
			entry := audit.NewEntry(cred.TenantID, audit.ActorCredential, cred.ID.String(), audit.ActionRateLimited, "", audit.OutcomeBlocked).
				WithMetadata("limit", gwErr.Code).
				WithMetadata("path", in.Path).
				WithClient(in.ClientIP, in.UserAgent)
			s.recorder.Enqueue(entry)
			// quota travels with the rejection for telemetry headers
			return &Authorization{Credential: cred, Quota: quota}, err
		}
		s.logFailClosed(ctx, "rate_limit", err)
		return nil, err
	}

	if err := s.scopes.Check(cred, in.RequiredScope); err != nil {
		entry := audit.NewEntry(cred.TenantID, audit.ActorCredential, cred.ID.String(), audit.ActionScopeDenied, "", audit.OutcomeBlocked).
			WithMetadata("required_scope", in.RequiredScope).
			WithMetadata("path", in.Path).
			WithClient(in.ClientIP, in.UserAgent)
		s.recorder.Enqueue(entry)
		return nil, err
	}

	branch, err := s.branches.Resolve(pctx, cred, in.BranchSelector)
	if err != nil {
		gwErr := asGatewayError(err)
		switch {
		case gwErr.Code == "branch_access_denied":
			entry := audit.NewEntry(cred.TenantID, audit.ActorCredential, cred.ID.String(), audit.ActionScopeDenied, in.BranchSelector, audit.OutcomeBlocked).
				WithMetadata("reason", "branch_access_denied").
				WithMetadata("path", in.Path).
				WithClient(in.ClientIP, in.UserAgent)
			s.recorder.Enqueue(entry)
		case gwErr.Status == 503:
			s.logFailClosed(ctx, "branch_filter", err)
		}
		return nil, err
	}

	verdict, err := s.gate.Evaluate(branch.LegacyUsage, in.AllowLegacy)
	if err != nil {
		entry := audit.NewEntry(cred.TenantID, audit.ActorCredential, cred.ID.String(), audit.ActionUsed, in.Path, audit.OutcomeBlocked).
			WithMetadata("reason", "legacy_filtering_rejected").
			WithMetadata("phase", s.gate.Phase()).
			WithClient(in.ClientIP, in.UserAgent)
		s.recorder.Enqueue(entry)
		return nil, err
	}

	entry := audit.NewEntry(cred.TenantID, audit.ActorCredential, cred.ID.String(), audit.ActionUsed, in.Path, audit.OutcomeSuccess).
		WithMetadata("method", in.Method).
		WithClient(in.ClientIP, in.UserAgent)
	s.recorder.Enqueue(entry)

	return &Authorization{
		Credential:  cred,
		Quota:       quota,
		Branch:      branch,
		Deprecation: verdict,
	}, nil
}

// logFailClosed reports a backend failure that rejected a request the
// pipeline could not judge. Trace and request correlation come from the
// context so the entry lines up with the access log.
func (s *AuthorizationService) logFailClosed(ctx context.Context, stage string, err error) {
	fields := []zap.Field{zap.String("stage", stage), zap.Error(err)}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	logger.WithTraceContext(ctx, s.logger).Error("authorization backend failure, request rejected", fields...)
}

// asGatewayError normalizes any pipeline error into a *Error, mapping
// unexpected failures to the fail-closed 503.
func asGatewayError(err error) *Error {
	if gwErr, ok := err.(*Error); ok {
		return gwErr
	}
	return serviceUnavailableError("internal_error")
}
