package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/hexabill/hexabill/internal/alert/domain"
	hbclock "github.com/hexabill/hexabill/internal/clock"
	obsmetrics "github.com/hexabill/hexabill/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   hbclock.Clock
	Repo    domain.Repository
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Sink struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   hbclock.Clock
	repo    domain.Repository
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Sink {
	return &Sink{
		db:      p.DB,
		log:     p.Log.Named("alert.sink"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Sink) Emit(ctx context.Context, alert domain.Alert) {
	if alert.ID == 0 {
		alert.ID = s.genID.Generate()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = s.clock.Now()
	}
	if alert.Context == nil {
		alert.Context = datatypes.JSONMap{}
	}

	// Best effort: alerting must never fail the operation that raised it.
	if err := s.repo.Insert(ctx, s.db, &alert); err != nil {
		s.log.Warn("alert write failed",
			zap.String("kind", string(alert.Kind)),
			zap.String("tenant_id", alert.TenantID.String()),
			zap.Error(err),
		)
		return
	}

	s.metrics.RecordAlertEmitted(ctx, string(alert.Kind))
	s.log.Warn("alert emitted",
		zap.String("kind", string(alert.Kind)),
		zap.String("title", alert.Title),
		zap.String("tenant_id", alert.TenantID.String()),
	)
}
