package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apihttp "github.com/fixdesk/repair-service/internal/api/http"
	"github.com/fixdesk/repair-service/internal/api/http/handlers"
	"github.com/fixdesk/repair-service/internal/auth"
	"github.com/fixdesk/repair-service/internal/botrouter"
	"github.com/fixdesk/repair-service/internal/config"
	"github.com/fixdesk/repair-service/internal/events"
	"github.com/fixdesk/repair-service/internal/line"
	"github.com/fixdesk/repair-service/internal/linkcenter"
	"github.com/fixdesk/repair-service/internal/notify"
	"github.com/fixdesk/repair-service/internal/observability"
	"github.com/fixdesk/repair-service/internal/persistence"
	"github.com/fixdesk/repair-service/internal/repository"
	"github.com/fixdesk/repair-service/internal/storage"
	"github.com/fixdesk/repair-service/internal/worker"
	"github.com/fixdesk/repair-service/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgres, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer postgres.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, postgres.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("migrations failed", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := postgres.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	assigneeRepo := repository.NewAssigneeRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	notificationRepo := repository.NewNotificationLogRepository(pool)
	linkedChannelRepo := repository.NewLinkedChannelRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)

	metrics := observability.NewMetrics()
	bus := events.NewInMemoryDispatcher(logger)

	lineClient := line.NewClient(cfg.Line.APIEndpoint, cfg.Line.ChannelAccessToken, logger)

	dispatcher := notify.NewDispatcher(
		lineClient,
		linkedChannelRepo,
		notificationRepo,
		metrics,
		logger,
		cfg.Notification.MaxRetries,
		cfg.Notification.RetryDelay,
	)
	notify.NewService(dispatcher, logger).Register(bus)

	workflowService := workflow.NewService(workflow.Dependencies{
		TicketRepo:     ticketRepo,
		AssigneeRepo:   assigneeRepo,
		AttachmentRepo: attachmentRepo,
		StaffRepo:      staffRepo,
		Codes:          workflow.NewCodeGenerator(cfg.Notification.CodePrefix, ticketRepo),
		Ledger:         workflow.NewLedger(historyRepo, logger),
		Dispatcher:     bus,
		Logger:         logger,
	})

	tokenStore := linkcenter.NewTokenStore(redis.Client, cfg.Notification.LinkTokenTTL)
	linkService := linkcenter.NewService(linkedChannelRepo, ticketRepo, tokenStore, logger)
	router := botrouter.NewRouter(lineClient, linkService, ticketRepo, notificationRepo, cfg.Line, logger)

	tokens := auth.NewTokenManager(cfg.Auth, cfg.App.Name)
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	authService := auth.NewService(staffRepo, tokens, hasher, logger)

	blobs := storage.NewLocalStore(cfg.Storage)

	rushWorker := worker.NewRushWorker(
		ticketRepo,
		assigneeRepo,
		bus,
		logger,
		cfg.Notification.RushSweepInterval,
		cfg.Notification.RushStaleAfter,
	)
	go rushWorker.Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: apihttp.ErrorHandler(logger, metrics),
	})
	app.Use(apihttp.Recover(logger))
	app.Use(apihttp.WithTimeout(cfg.App.RequestTimeout()))
	app.Use(observability.RequestLogger(logger, metrics))

	apihttp.RegisterRoutes(app, apihttp.RouterDeps{
		Config:    cfg,
		Metrics:   metrics,
		Tokens:    tokens,
		StaffRepo: staffRepo,
		Health:    handlers.NewHealthHandler(cfg.App.Version, postgres, redis),
		Auth:      handlers.NewAuthHandler(authService, linkService),
		Webhook:   handlers.NewWebhookHandler(cfg.Line.ChannelSecret, router, redis.Client, metrics, logger),
		Intake:    handlers.NewIntakeHandler(workflowService, blobs, logger),
		Tickets:   handlers.NewTicketsHandler(workflowService, notificationRepo, blobs, logger),
		Staff:     handlers.NewStaffHandler(staffRepo),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("addr", cfg.App.Addr()))

	<-ctx.Done()
	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}
