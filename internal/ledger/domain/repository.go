package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository exposes the read-only ledger aggregates the balance engine
// needs. Callers pass the db handle so the queries run inside the caller's
// transaction snapshot.
type Repository interface {
	// SumSales sums grand totals of non-deleted sales.
	SumSales(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) (decimal.Decimal, error)
	// SumCollections sums cleared payments without a return link.
	SumCollections(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) (decimal.Decimal, error)
	// SumClearedPayments sums all cleared payments, used when the schema
	// predates the return-link column.
	SumClearedPayments(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) (decimal.Decimal, error)
	// SumReturns sums grand totals of all sale returns.
	SumReturns(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) (decimal.Decimal, error)
	// SumRefunds sums payments linked to a return, any status.
	SumRefunds(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) (decimal.Decimal, error)
	// LastPaymentDate returns the most recent payment date, any status.
	LastPaymentDate(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) (*time.Time, error)
}
