package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	paymenthttp "github.com/payflow/server/internal/adapter/inbound/http/payment"
	"github.com/payflow/server/internal/adapter/outbound/gateway"
	"github.com/payflow/server/internal/adapter/outbound/postgres"
	"github.com/payflow/server/internal/domain/payment"
	"github.com/payflow/server/internal/domain/provider"
	"github.com/payflow/server/internal/domain/refund"
	"github.com/payflow/server/internal/infra/task"
	"github.com/payflow/server/internal/model"
	"github.com/payflow/server/internal/shared/cache"
	"github.com/payflow/server/internal/shared/config"
	"github.com/payflow/server/internal/shared/database"
	"github.com/payflow/server/internal/shared/events"
	"github.com/payflow/server/internal/shared/logger"
	"github.com/payflow/server/internal/utils/metrics"
	"github.com/payflow/server/internal/utils/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App wires the payment engine together.
type App struct {
	config *config.Config
	db     *gorm.DB
	redis  redis.UniversalClient
	router *gin.Engine
	logger *zap.Logger

	publisher  *events.Publisher
	reconciler *task.Reconciler

	paymentDomain payment.PaymentDomain
	refundDomain  refund.RefundDomain
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &App{
		config: cfg,
		logger: log,
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	if err := db.AutoMigrate(
		&model.Payment{},
		&model.Refund{},
		&model.Transaction{},
		&model.GatewayResponse{},
		&model.ProviderConfiguration{},
		&model.UserPaymentMethod{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	// Redis is optional; without it sweeps run without a distributed lock.
	if cfg.Redis.Address != "" {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, sweeps run unlocked", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New("payflow", registry)

	app.publisher = events.NewPublisher(256, log)
	app.publisher.Register(events.NewLogHandler(log))

	// Outbound adapters
	uow := postgres.NewUnitOfWork(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	refundRepo := postgres.NewRefundRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	providerRepo := postgres.NewProviderConfigRepository(db)
	instrumentRepo := postgres.NewUserPaymentMethodRepository(db)

	gw := gateway.NewBreaker(
		gateway.NewSimulator(log),
		&cfg.Gateway,
		log,
	)

	resolver := provider.NewResolver(providerRepo, cfg.Gateway.Environment)

	// Domains
	app.paymentDomain = payment.NewPaymentDomain(
		paymentRepo, instrumentRepo, ledgerRepo,
		resolver, gw, uow, app.publisher, m, log,
	)
	app.refundDomain = refund.NewRefundDomain(
		refundRepo, paymentRepo, ledgerRepo,
		resolver, gw, refund.NewRouter(), uow, app.publisher, m, log,
	)

	// Background reconciliation
	if cfg.Reconcile.Enabled {
		var lock *cache.Lock
		if app.redis != nil {
			lock = cache.NewLock(app.redis, cfg.Reconcile.LockTTL)
		}
		app.reconciler = task.NewReconciler(
			app.paymentDomain, app.refundDomain, lock, &cfg.Reconcile, log,
		)
		app.reconciler.Start()
	}

	app.router = app.setupRouter(registry)

	return app, nil
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Stop shuts down background components.
func (a *App) Stop() {
	if a.reconciler != nil {
		a.reconciler.Stop()
	}
	a.publisher.Close()

	if a.redis != nil {
		if err := cache.Close(a.redis); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("database close failed", zap.Error(err))
	}
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter(registry *prometheus.Registry) *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.CORS(middleware.NewCORSConfig(a.config.Server.AllowedOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")
	paymenthttp.NewPaymentHandler(a.paymentDomain).RegisterRoutes(api)
	paymenthttp.NewRefundHandler(a.refundDomain).RegisterRoutes(api)
	paymenthttp.NewWebhookHandler(a.paymentDomain).RegisterRoutes(api)

	return r
}
