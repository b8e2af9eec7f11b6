package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/hexabill/hexabill/internal/alert/domain"
	"github.com/hexabill/hexabill/internal/balance/domain"
	hbclock "github.com/hexabill/hexabill/internal/clock"
	customerdomain "github.com/hexabill/hexabill/internal/customer/domain"
	"github.com/hexabill/hexabill/internal/ledger"
	ledgerdomain "github.com/hexabill/hexabill/internal/ledger/domain"
	obsmetrics "github.com/hexabill/hexabill/internal/observability/metrics"
	"github.com/hexabill/hexabill/pkg/tenantctx"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        hbclock.Clock
	CustomerRepo customerdomain.Repository
	LedgerRepo   ledgerdomain.Repository
	Schema       *ledger.SchemaCheck
	Sink         alertdomain.Sink
	Metrics      *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        hbclock.Clock
	customerRepo customerdomain.Repository
	ledgerRepo   ledgerdomain.Repository
	schema       *ledger.SchemaCheck
	sink         alertdomain.Sink
	metrics      *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("balance.service"),
		clock:        p.Clock,
		customerRepo: p.CustomerRepo,
		ledgerRepo:   p.LedgerRepo,
		schema:       p.Schema,
		sink:         p.Sink,
		metrics:      p.Metrics,
	}
}

// readSnapshotTxOptions picks the isolation level that gives one consistent
// read snapshot for the whole transaction. Postgres and mysql default to
// READ COMMITTED, where each aggregate statement would see its own snapshot
// and a commit landing between two sums could mix ledger states; repeatable
// read pins every statement to the snapshot taken at transaction start.
// Sqlite is serialized already.
func readSnapshotTxOptions(dialect string) *sql.TxOptions {
	switch dialect {
	case "postgres", "mysql":
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	default:
		return &sql.TxOptions{}
	}
}

func (s *Service) txOptions() *sql.TxOptions {
	return readSnapshotTxOptions(s.db.Dialector.Name())
}

// recalculate runs the ledger aggregates on the given handle. Callers wrap
// it in a transaction so all sums read the same snapshot.
func (s *Service) recalculate(ctx context.Context, tx *gorm.DB, customer *customerdomain.Customer) (domain.Snapshot, error) {
	tenantID, customerID := customer.TenantID, customer.ID

	totalSales, err := s.ledgerRepo.SumSales(ctx, tx, tenantID, customerID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("sum sales: %w", err)
	}

	var totalPayments, refundsPaid decimal.Decimal
	if s.schema.HasReturnLink() {
		totalPayments, err = s.ledgerRepo.SumCollections(ctx, tx, tenantID, customerID)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("sum collections: %w", err)
		}
		refundsPaid, err = s.ledgerRepo.SumRefunds(ctx, tx, tenantID, customerID)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("sum refunds: %w", err)
		}
	} else {
		// Pre-return-link schema: every cleared payment is a collection.
		totalPayments, err = s.ledgerRepo.SumClearedPayments(ctx, tx, tenantID, customerID)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("sum cleared payments: %w", err)
		}
		refundsPaid = decimal.Zero
	}

	totalReturns, err := s.ledgerRepo.SumReturns(ctx, tx, tenantID, customerID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("sum returns: %w", err)
	}

	lastPayment, err := s.ledgerRepo.LastPaymentDate(ctx, tx, tenantID, customerID)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("last payment date: %w", err)
	}

	pending := totalSales.Sub(totalPayments).Sub(totalReturns).Add(refundsPaid)

	return domain.Snapshot{
		TotalSales:        totalSales,
		TotalPayments:     totalPayments,
		TotalSalesReturns: totalReturns,
		RefundsPaid:       refundsPaid,
		PendingBalance:    pending,
		LastPaymentDate:   lastPayment,
	}, nil
}

// loadCustomer fetches the customer and enforces tenant isolation when the
// context carries a tenant ID. A cross-tenant id reads as not found.
func (s *Service) loadCustomer(ctx context.Context, tx *gorm.DB, customerID snowflake.ID) (*customerdomain.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, customerdomain.ErrNotFound
	}
	if tenantID, ok := tenantctx.TenantIDFromContext(ctx); ok && tenantID != 0 && tenantID != customer.TenantID {
		return nil, customerdomain.ErrNotFound
	}
	return customer, nil
}

func (s *Service) Recalculate(ctx context.Context, customerID snowflake.ID) (domain.Snapshot, error) {
	var snapshot domain.Snapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.loadCustomer(ctx, tx, customerID)
		if err != nil {
			return err
		}
		snapshot, err = s.recalculate(ctx, tx, customer)
		return err
	}, s.txOptions())
	if err != nil {
		return domain.Snapshot{}, err
	}
	return snapshot, nil
}

func (s *Service) Validate(ctx context.Context, customerID snowflake.ID) (domain.ValidationResult, error) {
	var (
		customer *customerdomain.Customer
		snapshot domain.Snapshot
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		customer, err = s.loadCustomer(ctx, tx, customerID)
		if err != nil {
			return err
		}
		snapshot, err = s.recalculate(ctx, tx, customer)
		return err
	}, s.txOptions())
	if err != nil {
		return domain.ValidationResult{}, err
	}

	result := domain.ValidationResult{CustomerID: customerID, Valid: true}
	checks := []struct {
		field  string
		stored decimal.Decimal
		actual decimal.Decimal
	}{
		{"total_sales", customer.TotalSales, snapshot.TotalSales},
		{"total_payments", customer.TotalPayments, snapshot.TotalPayments},
		{"pending_balance", customer.PendingBalance, snapshot.PendingBalance},
	}
	for _, check := range checks {
		if !domain.WithinTolerance(check.stored, check.actual) {
			result.Valid = false
			result.Mismatches = append(result.Mismatches, domain.FieldMismatch{
				Field:  check.field,
				Stored: check.stored,
				Actual: check.actual,
			})
		}
	}

	if !result.Valid {
		s.metrics.RecordDriftDetected(ctx)
		s.log.Warn("balance drift detected",
			zap.String("customer_id", customerID.String()),
			zap.String("stored_pending", customer.PendingBalance.String()),
			zap.String("actual_pending", snapshot.PendingBalance.String()),
		)
		s.sink.Emit(ctx, alertdomain.Alert{
			TenantID: customer.TenantID,
			Kind:     alertdomain.KindBalanceMismatch,
			Title:    "Customer balance mismatch",
			Message:  fmt.Sprintf("customer %s stored pending balance %s differs from recomputed %s", customerID, customer.PendingBalance, snapshot.PendingBalance),
			Severity: alertdomain.SeverityWarning,
			Context: map[string]any{
				"customer_id":    customerID.String(),
				"stored_pending": customer.PendingBalance.String(),
				"actual_pending": snapshot.PendingBalance.String(),
			},
		})
	}

	return result, nil
}

func (s *Service) Reconcile(ctx context.Context, customerID snowflake.ID) (domain.Snapshot, error) {
	var (
		snapshot domain.Snapshot
		repaired bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.loadCustomer(ctx, tx, customerID)
		if err != nil {
			return err
		}

		snapshot, err = s.recalculate(ctx, tx, customer)
		if err != nil {
			return err
		}

		repaired = !domain.WithinTolerance(customer.TotalSales, snapshot.TotalSales) ||
			!domain.WithinTolerance(customer.TotalPayments, snapshot.TotalPayments) ||
			!domain.WithinTolerance(customer.PendingBalance, snapshot.PendingBalance)

		updated, err := s.customerRepo.UpdateFinancials(ctx, tx, customerID, customerdomain.FinancialSnapshot{
			TotalSales:      snapshot.TotalSales,
			TotalPayments:   snapshot.TotalPayments,
			PendingBalance:  snapshot.PendingBalance,
			LastPaymentDate: snapshot.LastPaymentDate,
			UpdatedAt:       s.clock.Now(),
		})
		if err != nil {
			return err
		}
		if !updated {
			// Customer deleted between read and write.
			return customerdomain.ErrNotFound
		}
		return nil
	}, s.txOptions())

	if err != nil {
		s.metrics.RecordReconciliation(ctx, "error")
		return domain.Snapshot{}, err
	}
	if repaired {
		obsmetrics.Sweep().IncDriftRepaired()
	}
	s.metrics.RecordReconciliation(ctx, "ok")
	return snapshot, nil
}

func (s *Service) CheckCredit(ctx context.Context, customerID snowflake.ID, amount decimal.Decimal) (domain.CreditDecision, error) {
	customer, err := s.loadCustomer(ctx, s.db, customerID)
	if err != nil {
		if errors.Is(err, customerdomain.ErrNotFound) {
			// Fail closed: an unknown customer is never admitted.
			s.metrics.RecordCreditDenial(ctx, "not_found")
			s.log.Warn("credit check denied for unknown customer",
				zap.String("customer_id", customerID.String()),
				zap.String("amount", amount.String()),
			)
			return domain.CreditDecision{Allowed: false}, nil
		}
		return domain.CreditDecision{}, err
	}

	projected := customer.PendingBalance.Add(amount)
	decision := domain.CreditDecision{
		Allowed:        projected.Cmp(customer.CreditLimit) <= 0,
		PendingBalance: customer.PendingBalance,
		CreditLimit:    customer.CreditLimit,
	}

	if !decision.Allowed {
		s.metrics.RecordCreditDenial(ctx, "limit_exceeded")
		s.sink.Emit(ctx, alertdomain.Alert{
			TenantID: customer.TenantID,
			Kind:     alertdomain.KindCreditExceeded,
			Title:    "Credit limit exceeded",
			Message:  fmt.Sprintf("customer %s charge %s denied: pending %s, limit %s", customerID, amount, customer.PendingBalance, customer.CreditLimit),
			Severity: alertdomain.SeverityWarning,
			Context: map[string]any{
				"customer_id":     customerID.String(),
				"amount":          amount.String(),
				"pending_balance": customer.PendingBalance.String(),
				"credit_limit":    customer.CreditLimit.String(),
			},
		})
	}

	return decision, nil
}
