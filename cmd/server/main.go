package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditapp "github.com/apigw/backend/internal/application/audit"
	credentialapp "github.com/apigw/backend/internal/application/credential"
	"github.com/apigw/backend/internal/application/gateway"
	resourceapp "github.com/apigw/backend/internal/application/resource"
	"github.com/apigw/backend/internal/domain/credential"
	"github.com/apigw/backend/internal/infrastructure/auth"
	"github.com/apigw/backend/internal/infrastructure/config"
	"github.com/apigw/backend/internal/infrastructure/logger"
	"github.com/apigw/backend/internal/infrastructure/persistence"
	"github.com/apigw/backend/internal/infrastructure/ratelimit"
	"github.com/apigw/backend/internal/infrastructure/telemetry"
	"github.com/apigw/backend/internal/interfaces/http/handler"
	"github.com/apigw/backend/internal/interfaces/http/middleware"
	"github.com/apigw/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting API gateway",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracer, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if err := db.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}

	// Minute counters live in Redis so they survive restarts and are shared
	// across instances. Without Redis configured a per-process fallback is
	// used; fine for development, wrong for multi-instance deployments.
	var counters ratelimit.CounterStore
	if cfg.Redis.Host != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			_ = redisClient.Close()
		}()
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		cancel()
		counters = ratelimit.NewRedisCounterStore(redisClient)
		log.Info("Redis connected successfully")
	} else {
		counters = ratelimit.NewInMemoryCounterStore()
		log.Warn("Redis not configured, using in-process rate limit counters")
	}

	// Repositories
	credRepo := persistence.NewGormCredentialRepository(db.DB)
	branchRepo := persistence.NewGormBranchRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	leadRepo := persistence.NewGormLeadRepository(db.DB)

	// Authorization pipeline
	keys := auth.NewAPIKeyService()
	recorder := gateway.NewAuditRecorder(
		auditRepo,
		log,
		cfg.Gateway.AuditFlushInterval,
		cfg.Gateway.AuditBatchSize,
		cfg.Gateway.PersistenceTimeout,
	)
	recorder.Start()

	authzService := gateway.NewAuthorizationService(
		gateway.NewCredentialResolver(credRepo, keys),
		gateway.NewRateLimiter(counters, credRepo),
		gateway.NewScopeGuard(),
		gateway.NewBranchFilterResolver(branchRepo),
		gateway.NewDeprecationGate(cfg.Deprecation),
		recorder,
		cfg.Gateway.PersistenceTimeout,
		log,
	)

	// Application services
	credentialService := credentialapp.NewCredentialService(credRepo, branchRepo, keys, recorder, cfg.Gateway.RotationGracePeriod, log)
	auditService := auditapp.NewQueryService(auditRepo)
	leadService := resourceapp.NewLeadService(leadRepo)

	// Handlers
	credentialHandler := handler.NewCredentialHandler(credentialService)
	auditHandler := handler.NewAuditHandler(auditService)
	leadHandler := handler.NewLeadHandler(leadService)
	systemHandler := handler.NewSystemHandler(db)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled))

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Probes live outside API versioning
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	leadRoutes := router.NewDomainGroup("leads", "/leads")
	leadRoutes.GET("", middleware.Authorize(authzService, credential.ScopeLeadsRead), leadHandler.List)
	r.Register(leadRoutes)

	credentialRoutes := router.NewDomainGroup("credentials", "/credentials")
	manage := middleware.Authorize(authzService, credential.ScopeCredentialsManage)
	credentialRoutes.GET("/scopes", manage, credentialHandler.Scopes)
	credentialRoutes.POST("", manage, credentialHandler.Create)
	credentialRoutes.GET("", manage, credentialHandler.List)
	credentialRoutes.GET("/:id", manage, credentialHandler.Get)
	credentialRoutes.PATCH("/:id", manage, credentialHandler.Update)
	credentialRoutes.POST("/:id/rotate", manage, credentialHandler.Rotate)
	credentialRoutes.DELETE("/:id", manage, credentialHandler.Revoke)
	r.Register(credentialRoutes)

	auditRoutes := router.NewDomainGroup("audit", "/audit-logs")
	auditRoutes.GET("", middleware.Authorize(authzService, credential.ScopeAuditRead), auditHandler.List)
	r.Register(auditRoutes)

	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Stop the recorder after the server so in-flight requests can still
	// enqueue; Stop drains the buffer.
	recorder.Stop()

	if err := tracer.Shutdown(ctx); err != nil {
		log.Error("Tracer shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
