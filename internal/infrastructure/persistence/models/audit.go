package models

import (
	"encoding/json"
	"time"

	"github.com/apigw/backend/internal/domain/audit"
	"github.com/google/uuid"
)

// AuditLogModel is the persistence model for audit log entries.
// Rows are append-only; there is no update path.
type AuditLogModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ActorID   string    `gorm:"not null;size:100"`
	ActorType string    `gorm:"not null;size:20"`
	Action    string    `gorm:"not null;size:40;index"`
	TargetID  string    `gorm:"size:100;index"`
	Outcome   string    `gorm:"not null;size:20"`
	Severity  string    `gorm:"not null;size:20;index"`
	Metadata  string    `gorm:"not null;type:text"`
	IPAddress string    `gorm:"size:45"`
	UserAgent string    `gorm:"size:500"`
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName specifies the table name for AuditLogModel
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to the domain entry
func (m *AuditLogModel) ToDomain() (*audit.Entry, error) {
	metadata := make(map[string]interface{})
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			return nil, err
		}
	}
	return &audit.Entry{
		ID:        m.ID,
		TenantID:  m.TenantID,
		ActorID:   m.ActorID,
		ActorType: audit.ActorType(m.ActorType),
		Action:    audit.Action(m.Action),
		TargetID:  m.TargetID,
		Outcome:   audit.Outcome(m.Outcome),
		Severity:  audit.Severity(m.Severity),
		Metadata:  metadata,
		IPAddress: m.IPAddress,
		UserAgent: m.UserAgent,
		CreatedAt: m.CreatedAt,
	}, nil
}

// AuditLogModelFromDomain converts the domain entry to the persistence model
func AuditLogModelFromDomain(e *audit.Entry) (*AuditLogModel, error) {
	metadata := e.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return &AuditLogModel{
		ID:        e.ID,
		TenantID:  e.TenantID,
		ActorID:   e.ActorID,
		ActorType: string(e.ActorType),
		Action:    string(e.Action),
		TargetID:  e.TargetID,
		Outcome:   string(e.Outcome),
		Severity:  string(e.Severity),
		Metadata:  string(raw),
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
		CreatedAt: e.CreatedAt,
	}, nil
}
