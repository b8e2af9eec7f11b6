package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	balancedomain "github.com/hexabill/hexabill/internal/balance/domain"
	"github.com/hexabill/hexabill/internal/clock"
	customerdomain "github.com/hexabill/hexabill/internal/customer/domain"
	ledgerdomain "github.com/hexabill/hexabill/internal/ledger/domain"
	settingsdomain "github.com/hexabill/hexabill/internal/settings/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&ledgerdomain.Sale{},
		&ledgerdomain.Payment{},
		&ledgerdomain.SaleReturn{},
	))
	return db
}

type stubBalance struct {
	mu      sync.Mutex
	calls   []snowflake.ID
	failFor map[snowflake.ID]error
}

func (s *stubBalance) Recalculate(context.Context, snowflake.ID) (balancedomain.Snapshot, error) {
	return balancedomain.Snapshot{}, nil
}

func (s *stubBalance) Validate(context.Context, snowflake.ID) (balancedomain.ValidationResult, error) {
	return balancedomain.ValidationResult{Valid: true}, nil
}

func (s *stubBalance) Reconcile(_ context.Context, id snowflake.ID) (balancedomain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, id)
	if err, ok := s.failFor[id]; ok {
		return balancedomain.Snapshot{}, err
	}
	return balancedomain.Snapshot{}, nil
}

func (s *stubBalance) CheckCredit(context.Context, snowflake.ID, decimal.Decimal) (balancedomain.CreditDecision, error) {
	return balancedomain.CreditDecision{}, nil
}

func (s *stubBalance) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubSettings struct {
	mu       sync.Mutex
	schedule settingsdomain.Schedule
	reads    int
}

func (s *stubSettings) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (s *stubSettings) Set(context.Context, string, string) error        { return nil }

func (s *stubSettings) ReconcileSchedule(context.Context) settingsdomain.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.schedule
}

func (s *stubSettings) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func newTestScheduler(t *testing.T, db *gorm.DB, fc *clock.FakeClock, balance balancedomain.Service, settings settingsdomain.Service) *Scheduler {
	t.Helper()
	sched, err := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       fc,
		BalanceSvc:  balance,
		SettingsSvc: settings,
	})
	require.NoError(t, err)
	return sched
}

func seedCustomerWithSale(t *testing.T, db *gorm.DB, id snowflake.ID) {
	t.Helper()
	require.NoError(t, db.Create(&customerdomain.Customer{
		ID:       id,
		TenantID: 1,
		Name:     "Customer",
		Email:    "customer@example.com",
	}).Error)
	require.NoError(t, db.Create(&ledgerdomain.Sale{
		ID:         id + 1000,
		TenantID:   1,
		CustomerID: id,
		GrandTotal: decimal.NewFromInt(100),
	}).Error)
}

func TestSweepIsolatesPerCustomerFailures(t *testing.T) {
	db := newTestDB(t)
	for i := snowflake.ID(1); i <= 5; i++ {
		seedCustomerWithSale(t, db, i)
	}

	balance := &stubBalance{failFor: map[snowflake.ID]error{
		3: errors.New("not_found"),
	}}
	sched := newTestScheduler(t, db, clock.NewFakeClock(time.Now()), balance, &stubSettings{})

	result, err := sched.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, result.Processed)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, 5, balance.callCount())
}

func TestSweepEnumeratesOnlyBillingRelevantCustomers(t *testing.T) {
	db := newTestDB(t)

	// Active ledger, nonzero stored balance, and fully inactive customers.
	seedCustomerWithSale(t, db, 1)
	require.NoError(t, db.Create(&customerdomain.Customer{
		ID:             2,
		TenantID:       1,
		Name:           "Stale balance",
		Email:          "stale@example.com",
		PendingBalance: decimal.NewFromInt(50),
	}).Error)
	require.NoError(t, db.Create(&customerdomain.Customer{
		ID:       3,
		TenantID: 1,
		Name:     "Inactive",
		Email:    "inactive@example.com",
	}).Error)

	balance := &stubBalance{}
	sched := newTestScheduler(t, db, clock.NewFakeClock(time.Now()), balance, &stubSettings{})

	result, err := sched.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Processed)
	require.ElementsMatch(t, []snowflake.ID{1, 2}, balance.calls)
}

func TestSweepFailsWhenEnumerationFails(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrator().DropTable("customers"))

	sched := newTestScheduler(t, db, clock.NewFakeClock(time.Now()), &stubBalance{}, &stubSettings{})

	_, err := sched.Sweep(context.Background())
	require.Error(t, err)
}

func TestSweepStopsOnCancellation(t *testing.T) {
	db := newTestDB(t)
	seedCustomerWithSale(t, db, 1)

	sched := newTestScheduler(t, db, clock.NewFakeClock(time.Now()), &stubBalance{}, &stubSettings{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sched.Sweep(ctx)
	require.Error(t, err)
}

func TestSchedulerRechecksWhileDisabled(t *testing.T) {
	db := newTestDB(t)
	fc := clock.NewFakeClock(time.Date(2026, 1, 2, 1, 0, 0, 0, time.UTC))
	settings := &stubSettings{schedule: settingsdomain.Schedule{Enabled: false}}
	sched := newTestScheduler(t, db, fc, &stubBalance{}, settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	require.Eventually(t, func() bool {
		return settings.readCount() == 1 && fc.Pending() == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, StateIdle, sched.State())

	fc.Advance(6 * time.Hour)
	require.Eventually(t, func() bool {
		return settings.readCount() == 2
	}, time.Second, time.Millisecond)
	require.Equal(t, StateIdle, sched.State())
}

func TestSchedulerSweepsAtScheduledTime(t *testing.T) {
	db := newTestDB(t)
	seedCustomerWithSale(t, db, 1)

	fc := clock.NewFakeClock(time.Date(2026, 1, 2, 1, 0, 0, 0, time.UTC))
	settings := &stubSettings{schedule: settingsdomain.Schedule{
		Enabled: true,
		RunAt:   settingsdomain.TimeOfDay{Hour: 2},
	}}
	balance := &stubBalance{}
	sched := newTestScheduler(t, db, fc, balance, settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	require.Eventually(t, func() bool {
		return fc.Pending() == 1
	}, time.Second, time.Millisecond)
	require.Equal(t, 0, balance.callCount())

	fc.Advance(time.Hour)
	require.Eventually(t, func() bool {
		return balance.callCount() == 1 && fc.Pending() == 1
	}, time.Second, time.Millisecond)
}

func TestSchedulerBacksOffOnSweepMechanismFailure(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrator().DropTable("customers"))

	fc := clock.NewFakeClock(time.Date(2026, 1, 2, 1, 0, 0, 0, time.UTC))
	settings := &stubSettings{schedule: settingsdomain.Schedule{
		Enabled: true,
		RunAt:   settingsdomain.TimeOfDay{Hour: 2},
	}}
	sched := newTestScheduler(t, db, fc, &stubBalance{}, settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	require.Eventually(t, func() bool {
		return fc.Pending() == 1
	}, time.Second, time.Millisecond)

	fc.Advance(time.Hour)
	require.Eventually(t, func() bool {
		return sched.State() == StateBackingOff && fc.Pending() == 1
	}, time.Second, time.Millisecond)
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	db := newTestDB(t)
	fc := clock.NewFakeClock(time.Date(2026, 1, 2, 1, 0, 0, 0, time.UTC))
	settings := &stubSettings{schedule: settingsdomain.Schedule{Enabled: false}}
	sched := newTestScheduler(t, db, fc, &stubBalance{}, settings)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return fc.Pending() == 1
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	require.Equal(t, 100, cfg.BatchSize)
	require.Equal(t, 6*time.Hour, cfg.DisabledRecheck)
	require.Equal(t, time.Hour, cfg.BackoffInterval)
	require.NotEmpty(t, cfg.LockKey)

	custom := Config{BatchSize: 7}.withDefaults()
	require.Equal(t, 7, custom.BatchSize)
	require.Equal(t, time.Hour, custom.BackoffInterval)
}
