package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Customer carries identity plus derived financial fields. The financial
// fields are never authored directly: only the balance mutator writes them,
// always from a full ledger recomputation.
type Customer struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID        snowflake.ID    `gorm:"not null;index" json:"tenant_id"`
	Name            string          `gorm:"not null" json:"name"`
	Email           string          `gorm:"not null" json:"email"`
	CreditLimit     decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"credit_limit"`
	TotalSales      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_sales"`
	TotalPayments   decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_payments"`
	PendingBalance  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"pending_balance"`
	LastPaymentDate *time.Time      `json:"last_payment_date,omitempty"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

// FinancialSnapshot is the set of derived fields the mutator writes in one
// transaction.
type FinancialSnapshot struct {
	TotalSales      decimal.Decimal
	TotalPayments   decimal.Decimal
	PendingBalance  decimal.Decimal
	LastPaymentDate *time.Time
	UpdatedAt       time.Time
}
