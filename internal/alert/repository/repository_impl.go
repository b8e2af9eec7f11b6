package repository

import (
	"context"

	"github.com/hexabill/hexabill/internal/alert/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, alert *domain.Alert) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO alerts (id, tenant_id, kind, title, message, severity, context, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID,
		alert.TenantID,
		alert.Kind,
		alert.Title,
		alert.Message,
		alert.Severity,
		alert.Context,
		alert.CreatedAt,
	).Error
}
