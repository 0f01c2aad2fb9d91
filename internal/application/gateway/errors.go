package gateway

// Error is an authorization pipeline rejection. It carries the HTTP status
// and machine code the transport layer must emit, plus an internal reason
// string used only for audit metadata and never shown to the caller.
type Error struct {
	Status     int
	Code       string
	Message    string
	RetryAfter int // seconds until retrying makes sense; zero when not applicable
	reason     string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// Reason returns the internal failure detail for audit metadata
func (e *Error) Reason() string {
	if e.reason != "" {
		return e.reason
	}
	return e.Code
}

// All authentication failures share one external shape so a caller cannot
// probe which keys exist, which are revoked, and which merely expired. The
// distinction survives only in audit metadata.
func unauthorizedError(reason string) *Error {
	return &Error{
		Status:  401,
		Code:    "UNAUTHORIZED",
		Message: "Invalid or missing API credentials",
		reason:  reason,
	}
}

func ipNotAllowedError() *Error {
	return &Error{
		Status:  403,
		Code:    "IP_NOT_ALLOWED",
		Message: "Caller IP address is not permitted for this credential",
	}
}

func insufficientScopeError(required string) *Error {
	return &Error{
		Status:  403,
		Code:    "INSUFFICIENT_SCOPE",
		Message: "Missing required permission: " + required,
	}
}

func minuteLimitError(retryAfter int) *Error {
	return &Error{
		Status:     429,
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Per-minute rate limit exceeded",
		RetryAfter: retryAfter,
	}
}

// Daily rejections carry no retry-after; the quota only resets at UTC midnight
func dailyLimitError() *Error {
	return &Error{
		Status:  429,
		Code:    "DAILY_LIMIT_EXCEEDED",
		Message: "Daily request quota exhausted",
	}
}

func invalidBranchError() *Error {
	return &Error{
		Status:  400,
		Code:    "invalid_branch_id",
		Message: "branch_id must be a well-formed UUID",
	}
}

func branchAccessDeniedError() *Error {
	return &Error{
		Status:  403,
		Code:    "branch_access_denied",
		Message: "Branch does not belong to your tenant",
	}
}

func deprecatedFeatureError(guideURL string) *Error {
	return &Error{
		Status:  400,
		Code:    "DEPRECATED_FEATURE",
		Message: "Legacy branch_id filtering is deprecated; see " + guideURL,
	}
}

func featureRemovedError(guideURL string) *Error {
	return &Error{
		Status:  410,
		Code:    "FEATURE_REMOVED",
		Message: "Legacy branch_id filtering has been removed; see " + guideURL,
	}
}

// Persistence trouble fails closed: admitting a request the backend cannot
// vet would defeat both isolation and throttling.
func serviceUnavailableError(reason string) *Error {
	return &Error{
		Status:  503,
		Code:    "SERVICE_UNAVAILABLE",
		Message: "Authorization backend temporarily unavailable",
		reason:  reason,
	}
}
