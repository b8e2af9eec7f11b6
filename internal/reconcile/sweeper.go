package reconcile

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	obsmetrics "github.com/hexabill/hexabill/internal/observability/metrics"
	"go.uber.org/zap"
)

// SweepResult summarizes one full pass over the customer population.
type SweepResult struct {
	Processed int
	Failed    int
}

// Sweep reconciles every billing-relevant customer in fixed-size batches.
// A per-customer failure is logged and counted without stopping the sweep;
// only a failure of the sweep mechanism itself (the enumeration query)
// returns an error.
func (s *Scheduler) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	sweepMetrics := obsmetrics.Sweep()

	ids, err := s.enumerateCustomers(ctx)
	if err != nil {
		return result, fmt.Errorf("enumerate customers: %w", err)
	}
	s.log.Info("sweep started", zap.Int("customers", len(ids)), zap.Int("batch_size", s.cfg.BatchSize))

	for start := 0; start < len(ids); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(ids) {
			end = len(ids)
		}

		for _, id := range ids[start:end] {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			if err := s.reconcileOne(ctx, id); err != nil {
				result.Failed++
				sweepMetrics.IncCustomerFailed(err)
				s.log.Warn("customer reconciliation failed",
					zap.String("customer_id", id.String()),
					zap.Error(err),
				)
				continue
			}
			result.Processed++
			sweepMetrics.IncCustomerProcessed()
		}

		s.log.Info("sweep progress",
			zap.Int("processed", result.Processed),
			zap.Int("failed", result.Failed),
			zap.Int("remaining", len(ids)-end),
		)
	}

	s.log.Info("sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Scheduler) reconcileOne(parent context.Context, id snowflake.ID) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.PerCustomerLimit)
	defer cancel()
	_, err := s.balanceSvc.Reconcile(ctx, id)
	return err
}

// enumerateCustomers lists ids of customers whose tenant has billing
// activity, plus any customer carrying a nonzero stored balance (which may
// be drift that needs healing even without ledger rows).
func (s *Scheduler) enumerateCustomers(ctx context.Context) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := s.db.WithContext(ctx).Raw(
		`SELECT c.id
		 FROM customers c
		 WHERE EXISTS (SELECT 1 FROM sales s WHERE s.customer_id = c.id)
		    OR EXISTS (SELECT 1 FROM payments p WHERE p.customer_id = c.id)
		    OR EXISTS (SELECT 1 FROM sale_returns r WHERE r.customer_id = c.id)
		    OR c.pending_balance <> 0
		    OR c.total_sales <> 0
		    OR c.total_payments <> 0
		 ORDER BY c.id`,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
