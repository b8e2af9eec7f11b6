package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PaymentStatus classifies a payment's settlement state. Only cleared
// payments without a return link count as collections.
type PaymentStatus string

const (
	PaymentStatusCleared PaymentStatus = "cleared"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Sale is an invoice header. Immutable once created except for the
// soft-delete flag; deleted sales never count toward totals.
type Sale struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID    `gorm:"not null;index" json:"tenant_id"`
	CustomerID snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	GrandTotal decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"grand_total"`
	IsDeleted  bool            `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Sale) TableName() string { return "sales" }

// Payment records money received from a customer. A non-null SaleReturnID
// marks it as a refund regardless of status.
type Payment struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID     snowflake.ID    `gorm:"not null;index" json:"tenant_id"`
	CustomerID   snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Status       PaymentStatus   `gorm:"type:text;not null" json:"status"`
	SaleReturnID *snowflake.ID   `gorm:"index" json:"sale_return_id,omitempty"`
	PaidAt       time.Time       `gorm:"not null" json:"paid_at"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Payment) TableName() string { return "payments" }

// SaleReturn is credit issued back to a customer. All returns count toward
// totalSalesReturns whether or not a refund payment was ever made.
type SaleReturn struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	TenantID   snowflake.ID    `gorm:"not null;index" json:"tenant_id"`
	CustomerID snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	GrandTotal decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"grand_total"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (SaleReturn) TableName() string { return "sale_returns" }
