package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/hexabill/hexabill/internal/customer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, tenant_id, name, email, credit_limit, total_sales, total_payments, pending_balance, last_payment_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.TenantID,
		customer.Name,
		customer.Email,
		customer.CreditLimit,
		customer.TotalSales,
		customer.TotalPayments,
		customer.PendingBalance,
		customer.LastPaymentDate,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, email, credit_limit, total_sales, total_payments, pending_balance, last_payment_date, created_at, updated_at
		 FROM customers WHERE id = ?`,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) UpdateFinancials(ctx context.Context, db *gorm.DB, id snowflake.ID, snap domain.FinancialSnapshot) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE customers
		 SET total_sales = ?, total_payments = ?, pending_balance = ?, last_payment_date = ?, updated_at = ?
		 WHERE id = ?`,
		snap.TotalSales,
		snap.TotalPayments,
		snap.PendingBalance,
		snap.LastPaymentDate,
		snap.UpdatedAt,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
