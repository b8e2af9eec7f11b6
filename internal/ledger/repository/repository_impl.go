package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hexabill/hexabill/internal/ledger/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) SumSales(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) (decimal.Decimal, error) {
	return sumQuery(ctx, db,
		`SELECT COALESCE(SUM(grand_total), 0)
		 FROM sales
		 WHERE tenant_id = ? AND customer_id = ? AND is_deleted = ?`,
		tenantID, customerID, false,
	)
}

func (r *repo) SumCollections(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) (decimal.Decimal, error) {
	return sumQuery(ctx, db,
		`SELECT COALESCE(SUM(amount), 0)
		 FROM payments
		 WHERE tenant_id = ? AND customer_id = ? AND status = ? AND sale_return_id IS NULL`,
		tenantID, customerID, domain.PaymentStatusCleared,
	)
}

func (r *repo) SumClearedPayments(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) (decimal.Decimal, error) {
	return sumQuery(ctx, db,
		`SELECT COALESCE(SUM(amount), 0)
		 FROM payments
		 WHERE tenant_id = ? AND customer_id = ? AND status = ?`,
		tenantID, customerID, domain.PaymentStatusCleared,
	)
}

func (r *repo) SumReturns(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) (decimal.Decimal, error) {
	return sumQuery(ctx, db,
		`SELECT COALESCE(SUM(grand_total), 0)
		 FROM sale_returns
		 WHERE tenant_id = ? AND customer_id = ?`,
		tenantID, customerID,
	)
}

func (r *repo) SumRefunds(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) (decimal.Decimal, error) {
	return sumQuery(ctx, db,
		`SELECT COALESCE(SUM(amount), 0)
		 FROM payments
		 WHERE tenant_id = ? AND customer_id = ? AND sale_return_id IS NOT NULL`,
		tenantID, customerID,
	)
}

func (r *repo) LastPaymentDate(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) (*time.Time, error) {
	var last *time.Time
	err := db.WithContext(ctx).Raw(
		`SELECT MAX(paid_at)
		 FROM payments
		 WHERE tenant_id = ? AND customer_id = ?`,
		tenantID, customerID,
	).Scan(&last).Error
	if err != nil {
		return nil, err
	}
	return last, nil
}

func sumQuery(ctx context.Context, db *gorm.DB, query string, args ...any) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := db.WithContext(ctx).Raw(query, args...).Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
