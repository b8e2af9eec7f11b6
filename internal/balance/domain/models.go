package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Tolerance is the absolute difference below which a stored balance field
// and its recomputed value are considered equal (one cent).
var Tolerance = decimal.RequireFromString("0.01")

// Snapshot is the authoritative output of a full ledger recomputation for
// one customer. It always satisfies
//
//	PendingBalance = TotalSales - TotalPayments - TotalSalesReturns + RefundsPaid
type Snapshot struct {
	TotalSales        decimal.Decimal `json:"total_sales"`
	TotalPayments     decimal.Decimal `json:"total_payments"`
	TotalSalesReturns decimal.Decimal `json:"total_sales_returns"`
	RefundsPaid       decimal.Decimal `json:"refunds_paid"`
	PendingBalance    decimal.Decimal `json:"pending_balance"`
	LastPaymentDate   *time.Time      `json:"last_payment_date,omitempty"`
}

// FieldMismatch pairs a stored field with its recomputed value.
type FieldMismatch struct {
	Field  string          `json:"field"`
	Stored decimal.Decimal `json:"stored"`
	Actual decimal.Decimal `json:"actual"`
}

// ValidationResult reports whether the stored customer fields match a fresh
// recomputation within Tolerance.
type ValidationResult struct {
	CustomerID snowflake.ID    `json:"customer_id"`
	Valid      bool            `json:"valid"`
	Mismatches []FieldMismatch `json:"mismatches,omitempty"`
}

// CreditDecision is the credit gate's answer to a proposed charge.
type CreditDecision struct {
	Allowed        bool            `json:"allowed"`
	PendingBalance decimal.Decimal `json:"pending_balance"`
	CreditLimit    decimal.Decimal `json:"credit_limit"`
}

// WithinTolerance reports |a-b| <= Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().Cmp(Tolerance) <= 0
}
