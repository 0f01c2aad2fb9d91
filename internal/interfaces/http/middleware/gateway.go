package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/apigw/backend/internal/application/gateway"
	"github.com/apigw/backend/internal/domain/credential"
	"github.com/apigw/backend/internal/infrastructure/logger"
	"github.com/apigw/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Context keys set by the gateway middleware
const (
	// AuthorizationKey holds the full *gateway.Authorization
	AuthorizationKey = "gateway_authorization"
)

// Authorize returns a middleware that runs the full authorization pipeline
// for the route: credential resolution, IP allowlist, rate limits, the
// required scope, branch filtering and the deprecation gate. On success the
// authorization is stored in the gin context and the telemetry headers are
// set; on rejection the pipeline's status, code and headers are emitted and
// the chain aborts.
func Authorize(service *gateway.AuthorizationService, requiredScope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		input := gateway.AuthorizeInput{
			Token:          bearerToken(c),
			ClientIP:       c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
			RequiredScope:  requiredScope,
			BranchSelector: c.Query("branch_id"),
			AllowLegacy:    strings.EqualFold(c.GetHeader("X-Allow-Legacy-Filtering"), "true"),
			Path:           c.Request.URL.Path,
			Method:         c.Request.Method,
		}

		result, err := service.Authorize(c.Request.Context(), input)
		if err != nil {
			// Rate-limit rejections still carry quota telemetry
			if result != nil && result.Quota != nil {
				setQuotaHeaders(c, result.Quota)
			}
			abortWithGatewayError(c, err)
			return
		}

		setQuotaHeaders(c, result.Quota)
		setDeprecationHeaders(c, result.Deprecation)
		setBranchFilterHeaders(c, result)

		// Everything downstream logs with the authenticated identity:
		// logger.L picks the IDs up from the request context, GetGinLogger
		// gets the enriched logger directly.
		ctx := c.Request.Context()
		log := logger.GetGinLogger(c)
		ctx, log = logger.WithTenantID(ctx, log, result.Credential.TenantID.String())
		ctx, log = logger.WithCredentialID(ctx, log, result.Credential.ID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set("logger", log)

		c.Set(AuthorizationKey, result)
		c.Next()
	}
}

// GetAuthorization retrieves the authorization from the gin context
func GetAuthorization(c *gin.Context) (*gateway.Authorization, bool) {
	value, exists := c.Get(AuthorizationKey)
	if !exists {
		return nil, false
	}
	authz, ok := value.(*gateway.Authorization)
	return authz, ok
}

// MustGetAuthorization retrieves the authorization or panics; for use in
// handlers that only run behind Authorize.
func MustGetAuthorization(c *gin.Context) *gateway.Authorization {
	authz, ok := GetAuthorization(c)
	if !ok {
		panic("authorization not found in context - handler registered without Authorize middleware")
	}
	return authz
}

// GetTenantID returns the authenticated tenant
func GetTenantID(c *gin.Context) uuid.UUID {
	return MustGetAuthorization(c).Credential.TenantID
}

// GetEffectiveBranchID returns the branch filter decided by the pipeline;
// nil means all branches of the tenant are visible.
func GetEffectiveBranchID(c *gin.Context) *uuid.UUID {
	return MustGetAuthorization(c).Branch.BranchID
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func abortWithGatewayError(c *gin.Context, err error) {
	gwErr, ok := err.(*gateway.Error)
	if !ok {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable,
			dto.NewErrorResponse(dto.ErrCodeServiceUnavailable, "Authorization backend temporarily unavailable"))
		return
	}

	if gwErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(gwErr.RetryAfter))
	}

	c.AbortWithStatusJSON(gwErr.Status, dto.NewErrorResponse(gwErr.Code, gwErr.Message))
}

func setQuotaHeaders(c *gin.Context, quota *gateway.Quota) {
	if quota == nil {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(quota.MinuteLimit))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(quota.MinuteRemaining, 10))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(quota.MinuteReset.Unix(), 10))
	c.Header("X-RateLimit-Daily-Limit", strconv.Itoa(quota.DailyLimit))
	c.Header("X-RateLimit-Daily-Remaining", strconv.FormatInt(quota.DailyRemaining, 10))
	c.Header("X-RateLimit-Daily-Reset", strconv.FormatInt(quota.DailyReset.Unix(), 10))
}

func setDeprecationHeaders(c *gin.Context, verdict *gateway.DeprecationVerdict) {
	if verdict == nil || !verdict.Deprecated {
		return
	}
	c.Header("Deprecation", "true")
	c.Header("Sunset", verdict.SunsetDate.UTC().Format(http.TimeFormat))
	c.Header("Warning", `299 - "Legacy branch_id filtering is deprecated and will be removed"`)
	c.Header("X-Deprecation-Phase", verdict.Phase)
	c.Header("X-Migration-Guide", verdict.MigrationGuideURL)
}

func setBranchFilterHeaders(c *gin.Context, result *gateway.Authorization) {
	if result.Branch == nil {
		return
	}
	if result.Branch.BranchID != nil {
		c.Header("X-Filtered-Branch-ID", result.Branch.BranchID.String())
		return
	}
	// A tenant-scoped credential with no filter sees every branch; flag it
	// so integrators notice they are consuming multi-branch data.
	if result.Credential.ScopeType == credential.ScopeTypeTenant {
		c.Header("X-Branch-Filter-Warning", "response contains unfiltered data from all branches")
	}
}
