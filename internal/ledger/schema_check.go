package ledger

import (
	"sync"
	"time"

	"github.com/hexabill/hexabill/internal/clock"
	"github.com/hexabill/hexabill/internal/ledger/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const schemaCheckTTL = 10 * time.Minute

// SchemaCheck answers whether the payments table carries the sale_return_id
// column. Databases migrated from older schemas may not have it yet; the
// balance engine then cannot split refunds from collections and falls back
// to counting every cleared payment as a collection.
//
// The answer is cached with an expiry so the (cross-dialect, catalog-backed)
// column lookup does not run on every recalculation. The cache is an
// injected object, not package state, so tests control time and instances.
type SchemaCheck struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	ttl   time.Duration

	mu      sync.Mutex
	cached  bool
	expires time.Time
}

func NewSchemaCheck(db *gorm.DB, log *zap.Logger, clk clock.Clock) *SchemaCheck {
	return &SchemaCheck{
		db:    db,
		log:   log.Named("ledger.schema"),
		clock: clk,
		ttl:   schemaCheckTTL,
	}
}

// HasReturnLink reports whether payments.sale_return_id exists.
func (c *SchemaCheck) HasReturnLink() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if now.Before(c.expires) {
		return c.cached
	}

	has := c.db.Migrator().HasColumn(&domain.Payment{}, "sale_return_id")
	if !has {
		c.log.Warn("payments.sale_return_id missing; refunds indistinguishable from collections")
	}
	c.cached = has
	c.expires = now.Add(c.ttl)
	return has
}
