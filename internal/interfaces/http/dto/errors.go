package dto

import "net/http"

// Machine codes emitted by the authorization pipeline. The lowercase codes
// are part of the published branch-filtering contract and must not be
// renamed.
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeIPNotAllowed       = "IP_NOT_ALLOWED"
	ErrCodeInsufficientScope  = "INSUFFICIENT_SCOPE"
	ErrCodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	ErrCodeDailyLimitExceeded = "DAILY_LIMIT_EXCEEDED"
	ErrCodeInvalidBranchID    = "invalid_branch_id"
	ErrCodeBranchAccessDenied = "branch_access_denied"
	ErrCodeDeprecatedFeature  = "DEPRECATED_FEATURE"
	ErrCodeFeatureRemoved     = "FEATURE_REMOVED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// General API error codes
const (
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInvalidState = "INVALID_STATE"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

var statusByCode = map[string]int{
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeIPNotAllowed:       http.StatusForbidden,
	ErrCodeInsufficientScope:  http.StatusForbidden,
	ErrCodeRateLimitExceeded:  http.StatusTooManyRequests,
	ErrCodeDailyLimitExceeded: http.StatusTooManyRequests,
	ErrCodeInvalidBranchID:    http.StatusBadRequest,
	ErrCodeBranchAccessDenied: http.StatusForbidden,
	ErrCodeDeprecatedFeature:  http.StatusBadRequest,
	ErrCodeFeatureRemoved:     http.StatusGone,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeInvalidState:       http.StatusConflict,
	ErrCodeInternal:           http.StatusInternalServerError,
}

// GetHTTPStatus maps a machine code to its HTTP status, defaulting to 500
func GetHTTPStatus(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
