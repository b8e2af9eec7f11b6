package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	balancedomain "github.com/hexabill/hexabill/internal/balance/domain"
	"github.com/hexabill/hexabill/internal/config"
	customerdomain "github.com/hexabill/hexabill/internal/customer/domain"
	settingsdomain "github.com/hexabill/hexabill/internal/settings/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	customerSvc customerdomain.Service
	balanceSvc  balancedomain.Service
	settingsSvc settingsdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	CustomerSvc customerdomain.Service
	BalanceSvc  balancedomain.Service
	SettingsSvc settingsdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		customerSvc: p.CustomerSvc,
		balanceSvc:  p.BalanceSvc,
		settingsSvc: p.SettingsSvc,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1", TenantContextMiddleware())

	customers := v1.Group("/customers")
	{
		customers.POST("", s.CreateCustomer)
		customers.GET("/:id", s.GetCustomer)
		customers.GET("/:id/balance", s.GetBalance)
		customers.GET("/:id/balance/validation", s.ValidateBalance)
		customers.POST("/:id/reconcile", s.ReconcileCustomer)
		customers.POST("/:id/credit-check", s.CheckCredit)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.GET("/reconcile/schedule", s.GetReconcileSchedule)
	admin.PUT("/reconcile/schedule", s.UpdateReconcileSchedule)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
