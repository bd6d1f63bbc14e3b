// Package server exposes the financial services over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	agreementdomain "github.com/caiohomem/assistente-sub001/internal/agreement/domain"
	"github.com/caiohomem/assistente-sub001/internal/cache"
	"github.com/caiohomem/assistente-sub001/internal/config"
	escrowdomain "github.com/caiohomem/assistente-sub001/internal/escrow/domain"
	negotiationdomain "github.com/caiohomem/assistente-sub001/internal/negotiation/domain"
	obslogger "github.com/caiohomem/assistente-sub001/internal/observability/logger"
	"github.com/caiohomem/assistente-sub001/internal/observability/metrics"
	"github.com/caiohomem/assistente-sub001/internal/observability/tracing"
	walletdomain "github.com/caiohomem/assistente-sub001/internal/wallet/domain"
)

type Params struct {
	fx.In

	Config         config.Config
	DB             *gorm.DB
	Log            *zap.Logger
	Engine         *gin.Engine
	WalletSvc      walletdomain.Service
	EscrowSvc      escrowdomain.Service
	AgreementSvc   agreementdomain.Service
	NegotiationSvc negotiationdomain.Service
	HTTPMetrics    *metrics.HTTPMetrics `optional:"true"`
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	cfg            config.Config
	db             *gorm.DB
	log            *zap.Logger
	engine         *gin.Engine
	walletSvc      walletdomain.Service
	escrowSvc      escrowdomain.Service
	agreementSvc   agreementdomain.Service
	negotiationSvc negotiationdomain.Service
	limiter        *rateLimiter
	balanceCache   cache.Cache[string, string]
}

// NewEngine builds the gin engine with the shared middleware stack.
func NewEngine(cfg config.Config, httpMetrics *metrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(tracing.GinMiddleware())
	engine.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	if httpMetrics != nil {
		engine.Use(metrics.GinMiddleware(httpMetrics))
	}
	return engine
}

func NewServer(p Params) *Server {
	return &Server{
		cfg:            p.Config,
		db:             p.DB,
		log:            p.Log.Named("server"),
		engine:         p.Engine,
		walletSvc:      p.WalletSvc,
		escrowSvc:      p.EscrowSvc,
		agreementSvc:   p.AgreementSvc,
		negotiationSvc: p.NegotiationSvc,
		limiter:        newRateLimiter(p.Config.HTTP.RateLimit, p.Config.HTTP.RateLimitWindow),
		balanceCache:   cache.NewTTLCache[string, string](),
	}
}

// RegisterAPIRoutes mounts every handler under /api.
func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	api.Use(s.rateLimitMiddleware())

	wallets := api.Group("/wallets")
	wallets.GET("/:owner_id/balance", s.GetWalletBalance)
	wallets.POST("/:owner_id/grants", s.GrantCredits)
	wallets.POST("/:owner_id/purchases", s.PurchaseCredits)
	wallets.POST("/:owner_id/reservations", s.ReserveCredits)
	wallets.POST("/:owner_id/consumptions", s.ConsumeCredits)
	wallets.POST("/:owner_id/refunds", s.RefundCredits)

	escrow := api.Group("/escrow-accounts")
	escrow.POST("", s.OpenEscrowAccount)
	escrow.GET("/by-agreement/:agreement_id", s.GetEscrowAccountByAgreement)
	escrow.POST("/:account_id/deposits", s.RegisterEscrowDeposit)
	escrow.POST("/:account_id/payouts", s.RequestEscrowPayout)
	escrow.POST("/:account_id/payouts/:transaction_id/approve", s.ApproveEscrowPayout)
	escrow.POST("/:account_id/payouts/:transaction_id/reject", s.RejectEscrowPayout)
	escrow.POST("/:account_id/payouts/:transaction_id/execute", s.ExecuteEscrowPayout)
	escrow.POST("/:account_id/transactions/:transaction_id/dispute", s.DisputeEscrowTransaction)
	escrow.POST("/:account_id/connect", s.ConnectEscrowAccount)
	escrow.POST("/:account_id/suspend", s.SuspendEscrowAccount)
	escrow.POST("/:account_id/close", s.CloseEscrowAccount)

	agreements := api.Group("/agreements")
	agreements.POST("", s.CreateAgreement)
	agreements.GET("/:agreement_id", s.GetAgreement)
	agreements.GET("/:agreement_id/summary", s.GetAgreementSummary)
	agreements.PATCH("/:agreement_id", s.UpdateAgreementDetails)
	agreements.POST("/:agreement_id/parties", s.AddAgreementParty)
	agreements.POST("/:agreement_id/parties/:party_id/accept", s.AcceptAgreement)
	agreements.PATCH("/:agreement_id/parties/:party_id/split", s.UpdateAgreementPartySplit)
	agreements.POST("/:agreement_id/parties/:party_id/connect", s.ConnectAgreementPartyAccount)
	agreements.POST("/:agreement_id/milestones", s.AddAgreementMilestone)
	agreements.POST("/:agreement_id/milestones/:milestone_id/complete", s.CompleteAgreementMilestone)
	agreements.POST("/:agreement_id/milestones/:milestone_id/reset", s.ResetAgreementMilestone)
	agreements.POST("/:agreement_id/milestones/:milestone_id/payout", s.ReleaseAgreementMilestonePayout)
	agreements.POST("/:agreement_id/activate", s.ActivateAgreement)
	agreements.POST("/:agreement_id/complete", s.CompleteAgreement)
	agreements.POST("/:agreement_id/dispute", s.DisputeAgreement)
	agreements.POST("/:agreement_id/cancel", s.CancelAgreement)
	agreements.POST("/:agreement_id/escrow-account", s.AttachEscrowToAgreement)

	negotiations := api.Group("/negotiations")
	negotiations.POST("", s.OpenNegotiation)
	negotiations.GET("/:session_id", s.GetNegotiation)
	negotiations.POST("/:session_id/proposals", s.SubmitProposal)
	negotiations.POST("/:session_id/proposals/:proposal_id/accept", s.AcceptProposal)
	negotiations.POST("/:session_id/proposals/:proposal_id/reject", s.RejectProposal)
	negotiations.POST("/:session_id/ai-suggestions", s.RequestAiSuggestion)
	negotiations.POST("/:session_id/close", s.CloseNegotiation)
	negotiations.POST("/:session_id/generate-agreement", s.GenerateAgreementFromNegotiation)

	if !s.cfg.IsProduction() {
		api.POST("/test/cleanup", s.TestCleanup)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

// Healthz reports liveness and database reachability.
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
			AbortWithError(c, &APIError{
				Status:  http.StatusTooManyRequests,
				Code:    "rate_limited",
				Message: "too many requests",
			})
			return
		}
		c.Next()
	}
}

// RunHTTP starts the listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, engine *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: engine,
	}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// Module provides the HTTP layer.
var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterAPIRoutes()
	}),
	fx.Invoke(RunHTTP),
)
