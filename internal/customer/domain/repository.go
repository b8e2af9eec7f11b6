package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	// UpdateFinancials writes the derived balance fields for one customer.
	// Returns false when no row matched the id.
	UpdateFinancials(ctx context.Context, db *gorm.DB, id snowflake.ID, snap FinancialSnapshot) (bool, error)
}
