package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/newsroom-labs/cms-service/internal/api/http"
	"github.com/newsroom-labs/cms-service/internal/api/http/handlers"
	"github.com/newsroom-labs/cms-service/internal/auth"
	"github.com/newsroom-labs/cms-service/internal/config"
	"github.com/newsroom-labs/cms-service/internal/events"
	"github.com/newsroom-labs/cms-service/internal/observability"
	"github.com/newsroom-labs/cms-service/internal/persistence"
	"github.com/newsroom-labs/cms-service/internal/repository"
	"github.com/newsroom-labs/cms-service/internal/service"
	"github.com/newsroom-labs/cms-service/internal/telemetry"
	"github.com/newsroom-labs/cms-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := telemetry.Setup(ctx, cfg.Telemetry, cfg.App.Name, cfg.App.Version, logger)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	deps := map[string]handlers.Pinger{}

	var (
		userRepo     repository.UserRepository
		categoryRepo repository.CategoryRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		userRepo = repository.NewUserRepository(pool)
		categoryRepo = repository.NewCategoryRepository(pool)
		deps["postgres"] = pg
	} else {
		logger.Warn("using in-memory repositories; data is lost on restart")
		userRepo = repository.NewMemoryUserRepository()
		categoryRepo = repository.NewMemoryCategoryRepository()
	}

	var denylist auth.Denylist
	switch cfg.Auth.DenylistBackend {
	case config.DenylistRedis:
		redis, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		if err != nil {
			logger.Warn("redis unreachable; falling back to in-memory token denylist", zap.Error(err))
			denylist = auth.NewMemoryDenylist()
		} else {
			denylist = auth.NewRedisDenylist(redis.Client)
			deps["redis"] = redis
		}
	default:
		denylist = auth.NewMemoryDenylist()
	}

	tokens := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL(),
		denylist,
		auth.WithLeeway(cfg.Auth.TokenLeeway()),
	)
	go worker.DenylistPruner(ctx, denylist, cfg.Auth.DenylistPruneInterval(), logger)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:   userRepo,
		Hasher:     auth.NewPasswordHasher(cfg.Auth.BcryptCost),
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	categoryService := service.NewCategoryService(categoryRepo, dispatcher, logger)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, cfg.App.Debug),
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:  logger,
		Metrics: metrics,
		Timeout: cfg.App.RequestTimeout(),
		Debug:   cfg.App.Debug,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:             handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, cfg.App.Debug),
		Auth:               handlers.NewAuthHandler(authService),
		Categories:         handlers.NewCategoryHandler(categoryService),
		AuthMiddleware:     auth.NewAuthMiddleware(authService.TokenManager()),
		RateLimitPerMinute: cfg.Auth.RateLimitPerMinute,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
