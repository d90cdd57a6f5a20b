package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/license-service/internal/api/http"
	"github.com/spec-kit/license-service/internal/api/http/handlers"
	"github.com/spec-kit/license-service/internal/auth"
	"github.com/spec-kit/license-service/internal/config"
	"github.com/spec-kit/license-service/internal/events"
	"github.com/spec-kit/license-service/internal/observability"
	"github.com/spec-kit/license-service/internal/persistence"
	"github.com/spec-kit/license-service/internal/repository"
	"github.com/spec-kit/license-service/internal/service"
	"github.com/spec-kit/license-service/internal/worker"
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	licenseRepo := repository.NewLicenseRepository(pool)
	activityRepo := repository.NewActivityLogRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	codec := auth.NewLicenseTokenCodec(cfg.License.TokenSecret, cfg.License.TokenTTL())

	claimsService := service.NewClaimsService(roleRepo, logger)
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo: userRepo,
		Claims:   claimsService,
	})
	licenseService := service.NewLicenseService(cfg.License, service.LicenseDependencies{
		LicenseRepo: licenseRepo,
		Codec:       codec,
		Dispatcher:  dispatcher,
		Cache:       redis,
	}, logger)
	activityService := service.NewActivityService(activityRepo, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)

	worker.StartAuditWorker(dispatcher, activityService, notificationService)

	middleware := auth.NewMiddleware(authService.TokenManager(), codec, userRepo, roleRepo)
	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:     handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:      handlers.NewUsersHandler(authService),
		Licenses:   handlers.NewLicensesHandler(licenseService, activityService, logger),
		Hooks:      handlers.NewHooksHandler(claimsService),
		Middleware: middleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
