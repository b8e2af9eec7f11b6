package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	balancedomain "github.com/hexabill/hexabill/internal/balance/domain"
	"github.com/hexabill/hexabill/internal/clock"
	obsmetrics "github.com/hexabill/hexabill/internal/observability/metrics"
	settingsdomain "github.com/hexabill/hexabill/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// State is the scheduler's lifecycle phase.
type State string

const (
	StateIdle       State = "idle"
	StateRunning    State = "running"
	StateBackingOff State = "backing_off"
)

var allStates = []string{string(StateIdle), string(StateRunning), string(StateBackingOff)}

var ErrInvalidConfig = errors.New("invalid scheduler configuration")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	BalanceSvc  balancedomain.Service
	SettingsSvc settingsdomain.Service
	Locker      *Locker `optional:"true"`
	Config      Config  `optional:"true"`
}

// Scheduler drives periodic reconciliation sweeps over the whole customer
// population. It waits for the configured time of day, sweeps, then idles;
// an unexpected sweep-mechanism error sends it to a backoff wait instead.
type Scheduler struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         Config
	clock       clock.Clock
	balanceSvc  balancedomain.Service
	settingsSvc settingsdomain.Service
	locker      *Locker

	mu    sync.Mutex
	state State
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.BalanceSvc == nil || p.SettingsSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:          p.DB,
		log:         p.Log.Named("reconcile.scheduler").With(zap.String("component", "reconcile")),
		cfg:         p.Config.withDefaults(),
		clock:       p.Clock,
		balanceSvc:  p.BalanceSvc,
		settingsSvc: p.SettingsSvc,
		locker:      p.Locker,
		state:       StateIdle,
	}, nil
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	obsmetrics.Sweep().SetSchedulerState(string(state), allStates)
}

// Run loops until ctx is canceled. The schedule is re-read from the
// settings store at the start of every idle wait, so changes take effect on
// the next cycle.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		s.setState(StateIdle)

		schedule := s.settingsSvc.ReconcileSchedule(ctx)
		if !schedule.Enabled {
			s.log.Debug("reconciliation disabled, re-checking later",
				zap.Duration("recheck_in", s.cfg.DisabledRecheck),
			)
			if !s.wait(ctx, s.cfg.DisabledRecheck) {
				return
			}
			continue
		}

		now := s.clock.Now()
		next := schedule.RunAt.Next(now)
		s.log.Info("next sweep scheduled",
			zap.Time("at", next),
			zap.String("run_at", schedule.RunAt.String()),
		)
		if !s.wait(ctx, next.Sub(now)) {
			return
		}

		s.setState(StateRunning)
		if err := s.runSweep(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error("sweep mechanism failed, backing off",
				zap.Duration("backoff", s.cfg.BackoffInterval),
				zap.Error(err),
			)
			s.setState(StateBackingOff)
			if !s.wait(ctx, s.cfg.BackoffInterval) {
				return
			}
			continue
		}

		if !s.wait(ctx, s.cfg.Cooldown) {
			return
		}
	}
}

// runSweep executes one locked sweep and records its outcome. A lost or
// unavailable lock skips the cycle; another instance owns it.
func (s *Scheduler) runSweep(ctx context.Context) error {
	sweepMetrics := obsmetrics.Sweep()

	var token string
	if s.locker != nil {
		var ok bool
		var err error
		token, ok, err = s.locker.TryLock(ctx, s.cfg.LockKey, s.cfg.LockTTL)
		if err != nil {
			return err
		}
		if !ok {
			s.log.Info("sweep lock held elsewhere, skipping cycle")
			sweepMetrics.IncSweepRun("skipped")
			return nil
		}
		defer func() {
			if err := s.locker.Release(context.WithoutCancel(ctx), s.cfg.LockKey, token); err != nil {
				s.log.Warn("sweep lock release failed", zap.Error(err))
			}
		}()
	}

	start := time.Now()
	result, err := s.Sweep(ctx)
	sweepMetrics.ObserveSweepDuration(time.Since(start))
	if err != nil {
		sweepMetrics.IncSweepRun("error")
		return err
	}
	if result.Failed > 0 {
		sweepMetrics.IncSweepRun("partial")
	} else {
		sweepMetrics.IncSweepRun("ok")
	}
	return nil
}

// wait blocks for d or until cancellation; false means canceled.
func (s *Scheduler) wait(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.clock.After(d):
		return true
	}
}
