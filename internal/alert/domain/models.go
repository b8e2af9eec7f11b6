package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindBalanceMismatch Kind = "balance_mismatch"
	KindCreditExceeded  Kind = "credit_exceeded"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is a persisted anomaly notification. Writes are best-effort: a
// failed insert is logged and dropped, never surfaced to the caller.
type Alert struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID      `gorm:"index" json:"tenant_id"`
	Kind      Kind              `gorm:"type:text;not null;index" json:"kind"`
	Title     string            `gorm:"not null" json:"title"`
	Message   string            `gorm:"not null" json:"message"`
	Severity  Severity          `gorm:"type:text;not null" json:"severity"`
	Context   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"context,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Alert) TableName() string { return "alerts" }
