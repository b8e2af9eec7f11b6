package service

import (
	"context"
	"strconv"
	"strings"

	hbclock "github.com/hexabill/hexabill/internal/clock"
	"github.com/hexabill/hexabill/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock hbclock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock hbclock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("settings.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, key string) (string, bool, error) {
	setting, err := s.repo.Find(ctx, s.db, key)
	if err != nil {
		return "", false, err
	}
	if setting == nil {
		return "", false, nil
	}
	return setting.Value, true, nil
}

func (s *Service) Set(ctx context.Context, key, value string) error {
	return s.repo.Upsert(ctx, s.db, &domain.Setting{
		Key:       strings.TrimSpace(key),
		Value:     value,
		UpdatedAt: s.clock.Now(),
	})
}

func (s *Service) ReconcileSchedule(ctx context.Context) domain.Schedule {
	schedule := domain.Schedule{Enabled: false, RunAt: domain.DefaultRunAt}

	raw, ok, err := s.Get(ctx, domain.KeyReconcileEnabled)
	if err != nil {
		s.log.Warn("settings read failed, scheduler stays disabled", zap.Error(err))
		return schedule
	}
	if ok {
		enabled, parseErr := strconv.ParseBool(strings.TrimSpace(raw))
		if parseErr != nil {
			s.log.Warn("malformed reconcile.enabled value", zap.String("value", raw))
		} else {
			schedule.Enabled = enabled
		}
	}

	raw, ok, err = s.Get(ctx, domain.KeyReconcileRunAt)
	if err != nil {
		s.log.Warn("settings read failed, using default run time", zap.Error(err))
		return schedule
	}
	if ok {
		runAt, parseErr := domain.ParseTimeOfDay(raw)
		if parseErr != nil {
			s.log.Warn("malformed reconcile.run_at value", zap.String("value", raw))
		} else {
			schedule.RunAt = runAt
		}
	}

	return schedule
}
