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

	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/cache"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/storage"
	"github.com/spec-kit/helpdesk/internal/worker"
)

const shutdownTimeout = 10 * time.Second

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

	metrics := observability.NewMetrics("helpdesk")

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.PoolHandle())
	} else {
		mem := memory.NewStore()
		if err := mem.SeedCategories(ctx, time.Now().UTC()); err != nil {
			logger.Fatal("failed to seed categories", zap.Error(err))
		}
		store = mem
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var statsCache cache.StatsCache = cache.NoopStatsCache{}
	if redis.Enabled() {
		statsCache = cache.NewRedisStatsCache(redis.Client, cfg.Redis.KeyPrefix, cfg.Redis.StatsTTL(), logger, metrics)
	}

	attachments, err := storage.NewFilesystemStore(cfg.Storage.AttachmentDir, cfg.Storage.MaxUploadBytes)
	if err != nil {
		logger.Fatal("failed to init attachment storage", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{Store: store, Logger: logger})
	if cfg.Auth.AdminEmail != "" && cfg.Auth.AdminPassword != "" {
		admin, err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
		if err != nil {
			logger.Fatal("failed to bootstrap admin", zap.Error(err))
		}
		logger.Info("admin account ready", zap.String("user_id", admin.ID))
	}

	statsService := service.NewStatsService(service.StatsDependencies{
		Store:  store,
		Cache:  statsCache,
		Logger: logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:       store,
		Attachments: attachments,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
	})
	commentService := service.NewCommentService(service.CommentDependencies{
		Store:       store,
		Attachments: attachments,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Metrics:     metrics,
	})
	categoryService := service.NewCategoryService(store, nil)
	adminService := service.NewAdminService(store, statsService)

	worker.StartSubscribers(dispatcher, statsService, service.NewNotificationService(logger))

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store.Repos().Users)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
		BodyLimit:    int(cfg.Storage.MaxUploadBytes) * 4,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, store, redis),
		Users:          handlers.NewUsersHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, statsService),
		Comments:       handlers.NewCommentsHandler(commentService),
		Categories:     handlers.NewCategoriesHandler(categoryService),
		Admin:          handlers.NewAdminHandler(adminService),
		Metrics:        metrics,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
