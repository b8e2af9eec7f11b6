package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Service is the customer balance core. Reconcile is the only sanctioned
// path that writes a customer's financial fields; every ledger-changing
// event (invoice created/edited/deleted, payment created/deleted) triggers
// it as a full recomputation, never an incremental delta.
type Service interface {
	// Recalculate computes authoritative balance figures from the ledger
	// inside one read transaction. Pure read; nothing is persisted.
	Recalculate(ctx context.Context, customerID snowflake.ID) (Snapshot, error)

	// Validate compares the stored customer fields against a fresh
	// recomputation. On mismatch it emits a best-effort warning alert and
	// returns the stored/actual pairs. Never mutates.
	Validate(ctx context.Context, customerID snowflake.ID) (ValidationResult, error)

	// Reconcile recomputes and applies the balance fields in a single
	// transaction and returns the figures it persisted. Returns the
	// customer domain's not-found error when the customer vanished before
	// commit.
	Reconcile(ctx context.Context, customerID snowflake.ID) (Snapshot, error)

	// CheckCredit admits a proposed charge when pending balance plus amount
	// stays within the credit limit. A missing customer is denied, never
	// allowed.
	CheckCredit(ctx context.Context, customerID snowflake.ID, amount decimal.Decimal) (CreditDecision, error)
}
