package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/account/domain"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/actor"
	auditdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/audit/domain"
	channeldomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/channel/domain"
	cleanupdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/cleanup/domain"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/config"
	ledgerdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/ledger/domain"
	obscontext "github.com/ShaneWong116/CurrencyExchange-sub000/internal/observability/context"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/observability/logger"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/observability/metrics"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/observability/tracing"
	settlementdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/settlement/domain"
	statisticsdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/statistics/domain"
	transactiondomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/transaction/domain"
	"github.com/bwmarrin/snowflake"
)

const actorHeader = "X-Actor"

// Server holds the HTTP handler dependencies.
type Server struct {
	cfg config.Config
	log *zap.Logger
	db  *gorm.DB

	channelSvc     channeldomain.Service
	accountSvc     accountdomain.Service
	ledgerSvc      ledgerdomain.Service
	transactionSvc transactiondomain.Service
	statisticsSvc  statisticsdomain.Service
	settlementSvc  settlementdomain.Service
	cleanupSvc     cleanupdomain.Service
	auditSvc       auditdomain.Service

	ledgerMetrics *metrics.LedgerMetrics
	engine        *gin.Engine
	limiter       *rateLimiter
}

// Params collects everything the server needs from the graph.
type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	Engine *gin.Engine

	ChannelSvc     channeldomain.Service
	AccountSvc     accountdomain.Service
	LedgerSvc      ledgerdomain.Service
	TransactionSvc transactiondomain.Service
	StatisticsSvc  statisticsdomain.Service
	SettlementSvc  settlementdomain.Service
	CleanupSvc     cleanupdomain.Service
	AuditSvc       auditdomain.Service

	LedgerMetrics *metrics.LedgerMetrics
}

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(cfg config.Config, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(tracing.GinMiddleware("exchange"))
	engine.Use(metrics.GinMiddleware(httpMetrics))
	return engine
}

// NewServer constructs the handler set.
func NewServer(p Params) *Server {
	return &Server{
		cfg:            p.Config,
		log:            p.Log.Named("server"),
		db:             p.DB,
		channelSvc:     p.ChannelSvc,
		accountSvc:     p.AccountSvc,
		ledgerSvc:      p.LedgerSvc,
		transactionSvc: p.TransactionSvc,
		statisticsSvc:  p.StatisticsSvc,
		settlementSvc:  p.SettlementSvc,
		cleanupSvc:     p.CleanupSvc,
		auditSvc:       p.AuditSvc,
		ledgerMetrics:  p.LedgerMetrics,
		engine:         p.Engine,
		limiter:        newRateLimiter(p.Config.RateLimit, p.Config.RateLimitWindow),
	}
}

// RegisterAPIRoutes mounts the API surface.
func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	api.Use(s.rateLimitMiddleware())
	api.Use(s.actorMiddleware())

	api.POST("/channels", s.CreateChannel)
	api.GET("/channels", s.ListChannels)
	api.GET("/channels/:id", s.GetChannel)
	api.PATCH("/channels/:id/status", s.SetChannelStatus)
	api.GET("/channels/:id/balance", s.GetChannelBalance)
	api.GET("/channels/:id/statistics", s.GetChannelStatistics)

	api.POST("/accounts", s.CreateAccount)
	api.GET("/accounts", s.ListAccounts)
	api.GET("/accounts/:id", s.GetAccount)

	api.POST("/transactions", s.CreateTransaction)
	api.GET("/transactions", s.ListTransactions)
	api.GET("/transactions/:id", s.GetTransaction)
	api.PATCH("/transactions/:id", s.UpdateTransaction)
	api.DELETE("/transactions/:id", s.DeleteTransaction)

	api.GET("/statistics/dashboard", s.GetDashboardStatistics)

	api.GET("/settlements/preview", s.PreviewSettlement)
	api.POST("/settlements", s.ExecuteSettlement)
	api.GET("/settlements", s.ListSettlements)
	api.GET("/settlements/:id", s.GetSettlement)

	api.GET("/capital", s.GetCapital)
	api.POST("/capital/adjustments", s.AdjustCapital)
	api.GET("/hkd-balance", s.GetHKDBalance)
	api.POST("/hkd-balance/adjustments", s.AdjustHKDBalance)

	api.POST("/cleanup", s.RunCleanup)
	api.GET("/audit-logs", s.ListAuditLogs)
}

// Healthz reports liveness plus database reachability.
func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow(c.ClientIP()) {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}

// actorMiddleware stashes the X-Actor reference on the request context.
// Read endpoints work without it; mutating endpoints resolve it through
// requireActor.
func (s *Server) actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(actorHeader))
		if raw != "" {
			if who, err := actor.Parse(raw); err == nil {
				ctx := obscontext.WithActor(c.Request.Context(), string(who.Kind), who.ID.String())
				c.Request = c.Request.WithContext(ctx)
			}
		}
		c.Next()
	}
}

func requireActor(c *gin.Context) (actor.Actor, bool) {
	kind, id := obscontext.ActorFromGin(c)
	if kind == "" || id == "" {
		AbortWithError(c, newValidationError(actorHeader, "missing_actor", "X-Actor header is required"))
		return actor.Actor{}, false
	}
	who, err := actor.Parse(kind + ":" + id)
	if err != nil {
		AbortWithError(c, err)
		return actor.Actor{}, false
	}
	return who, true
}

func parseID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param(name)))
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError(name, "invalid_id", "invalid identifier"))
		return 0, false
	}
	return id, true
}

func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		parsed = parsed.UTC()
		return &parsed, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	parsed = parsed.UTC()
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return &parsed, nil
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down http server")
			return srv.Shutdown(ctx)
		},
	})
}

// Module wires the HTTP layer.
var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterAPIRoutes()
	}),
	fx.Invoke(RunHTTP),
)
