package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/gammapace/backend/internal/admin"
	admindomain "github.com/gammapace/backend/internal/admin/domain"
	"github.com/gammapace/backend/internal/analytics"
	analyticsdomain "github.com/gammapace/backend/internal/analytics/domain"
	"github.com/gammapace/backend/internal/clock"
	"github.com/gammapace/backend/internal/config"
	"github.com/gammapace/backend/internal/currency"
	"github.com/gammapace/backend/internal/geo"
	"github.com/gammapace/backend/internal/migration"
	"github.com/gammapace/backend/internal/observability"
	obslogger "github.com/gammapace/backend/internal/observability/logger"
	"github.com/gammapace/backend/internal/observability/metrics"
	obstracing "github.com/gammapace/backend/internal/observability/tracing"
	"github.com/gammapace/backend/internal/payment"
	paymentdomain "github.com/gammapace/backend/internal/payment/domain"
	"github.com/gammapace/backend/internal/plan"
	"github.com/gammapace/backend/internal/ratelimit"
	"github.com/gammapace/backend/internal/session"
	sessiondomain "github.com/gammapace/backend/internal/session/domain"
	"github.com/gammapace/backend/internal/user"
	userdomain "github.com/gammapace/backend/internal/user/domain"
	"github.com/gammapace/backend/pkg/db"
)

var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	clock.Module,
	db.Module,
	migration.Module,
	fx.Provide(registerGin),
	plan.Module,
	currency.Module,
	geo.Module,
	user.Module,
	session.Module,
	payment.Module,
	analytics.Module,
	admin.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(corsMiddleware(cfg.AllowedOrigins))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, cfg config.Config) *gin.Engine {
	return NewEngine(obsCfg, cfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	genID        *snowflake.Node
	clock        clock.Clock
	userSvc      userdomain.Service
	sessionSvc   sessiondomain.Service
	paymentSvc   paymentdomain.Service
	analyticsSvc analyticsdomain.Service
	adminSvc     admindomain.Service
	currencySvc  *currency.Service
	geoSvc       *geo.Service
	catalog      *plan.Catalog
	limiter      *ratelimit.PaymentIntentLimiter
	authLimiter  *rateLimiter
	metrics      *metrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	GenID        *snowflake.Node
	Clock        clock.Clock
	UserSvc      userdomain.Service
	SessionSvc   sessiondomain.Service
	PaymentSvc   paymentdomain.Service
	AnalyticsSvc analyticsdomain.Service
	AdminSvc     admindomain.Service
	CurrencySvc  *currency.Service
	GeoSvc       *geo.Service
	Catalog      *plan.Catalog
	Limiter      *ratelimit.PaymentIntentLimiter `optional:"true"`
	Metrics      *metrics.Metrics                `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		genID:        p.GenID,
		clock:        p.Clock,
		userSvc:      p.UserSvc,
		sessionSvc:   p.SessionSvc,
		paymentSvc:   p.PaymentSvc,
		analyticsSvc: p.AnalyticsSvc,
		adminSvc:     p.AdminSvc,
		currencySvc:  p.CurrencySvc,
		geoSvc:       p.GeoSvc,
		catalog:      p.Catalog,
		limiter:      p.Limiter,
		authLimiter:  newRateLimiter(10, time.Minute),
		metrics:      p.Metrics,
	}

	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", s.Health)
	api.GET("/plans", s.ListPlans)

	auth := api.Group("/auth")
	auth.POST("/signup", s.Signup)
	auth.POST("/signin", s.Signin)
	auth.POST("/signout", s.SessionRequired(), s.Signout)

	sess := api.Group("/session", s.SessionRequired())
	sess.POST("/heartbeat", s.Heartbeat)
	sess.GET("/validate", s.ValidateSession)

	stripe := api.Group("/stripe")
	stripe.POST("/create-payment-intent", s.CreatePaymentIntent)
	stripe.POST("/webhook", s.HandleStripeWebhook)

	api.POST("/tags", s.RecordTag)
	api.GET("/tags", s.SessionRequired(), s.ListTags)

	admins := api.Group("/admins", s.SessionRequired())
	admins.POST("", s.CreateAdmin)
	admins.GET("", s.ListAdmins)
	admins.GET("/stats", s.AdminStats)
	admins.GET("/by-coupon/:coupon", s.GetAdminByCoupon)
}
