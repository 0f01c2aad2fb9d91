package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action is the closed set of authorization-relevant events
type Action string

const (
	ActionCreated     Action = "created"
	ActionUpdated     Action = "updated"
	ActionRevoked     Action = "revoked"
	ActionRotated     Action = "rotated"
	ActionExpired     Action = "expired"
	ActionAuthFailed  Action = "auth_failed"
	ActionRateLimited Action = "rate_limited"
	ActionIPBlocked   Action = "ip_blocked"
	ActionScopeDenied Action = "scope_denied"
	ActionUsed        Action = "used"
)

// Outcome classifies how the audited event ended
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeBlocked Outcome = "blocked"
)

// Severity levels, ordered info < warning < error < critical
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// ActorType identifies who performed the audited action
type ActorType string

const (
	ActorHuman      ActorType = "human"
	ActorSystem     ActorType = "system"
	ActorCredential ActorType = "credential"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarning:  1,
	SeverityError:    2,
	SeverityCritical: 3,
}

var defaultSeverity = map[Action]Severity{
	ActionCreated:     SeverityInfo,
	ActionUpdated:     SeverityInfo,
	ActionRevoked:     SeverityWarning,
	ActionRotated:     SeverityInfo,
	ActionExpired:     SeverityWarning,
	ActionAuthFailed:  SeverityWarning,
	ActionRateLimited: SeverityWarning,
	ActionIPBlocked:   SeverityError,
	ActionScopeDenied: SeverityWarning,
	ActionUsed:        SeverityInfo,
}

// Entry is one immutable audit record. It is created at event time and never
// mutated or deleted by this subsystem.
type Entry struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	ActorID    string
	ActorType  ActorType
	Action     Action
	TargetID   string
	Outcome    Outcome
	Severity   Severity
	Metadata   map[string]interface{}
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
}

// NewEntry creates an audit entry with the severity derived from the action
// type, raised to the minimum floor implied by a failure or blocked outcome.
func NewEntry(tenantID uuid.UUID, actorType ActorType, actorID string, action Action, targetID string, outcome Outcome) *Entry {
	return &Entry{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ActorID:   actorID,
		ActorType: actorType,
		Action:    action,
		TargetID:  targetID,
		Outcome:   outcome,
		Severity:  EffectiveSeverity(action, outcome, ""),
		Metadata:  make(map[string]interface{}),
		CreatedAt: time.Now().UTC(),
	}
}

// EffectiveSeverity resolves the severity for an entry. An explicit override
// wins unless the outcome floor exceeds it; failure and blocked outcomes
// never go below warning.
func EffectiveSeverity(action Action, outcome Outcome, override Severity) Severity {
	sev, ok := defaultSeverity[action]
	if !ok {
		sev = SeverityInfo
	}
	if override != "" {
		sev = override
	}
	if outcome == OutcomeFailure || outcome == OutcomeBlocked {
		if severityRank[sev] < severityRank[SeverityWarning] {
			sev = SeverityWarning
		}
	}
	return sev
}

// WithSeverity overrides the derived severity, still subject to the outcome floor
func (e *Entry) WithSeverity(sev Severity) *Entry {
	e.Severity = EffectiveSeverity(e.Action, e.Outcome, sev)
	return e
}

// WithMetadata attaches one metadata key/value pair
func (e *Entry) WithMetadata(key string, value interface{}) *Entry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithClient records the caller network identity
func (e *Entry) WithClient(ip, userAgent string) *Entry {
	e.IPAddress = ip
	e.UserAgent = userAgent
	return e
}
