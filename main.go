package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rep-challenge-system/config"
	"rep-challenge-system/handlers"
	"rep-challenge-system/logging"
	"rep-challenge-system/metrics"
	"rep-challenge-system/middleware"
	"rep-challenge-system/repository"
	"rep-challenge-system/services"
	"rep-challenge-system/utils"
	"rep-challenge-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	configPath := flag.String("config", "config.yaml", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Logger.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: logging.Level(cfg.Log.Level), JSONOutput: cfg.Log.JSON})
	log := logging.WithComponent("main")

	db, err := repository.Open(cfg.Postgres.DSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	store := repository.NewGormStore(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := services.NewHub()
	userService := services.NewUserService(store)
	challengeService := services.NewChallengeService(store, hub)
	ledgerService := services.NewLedgerService(store, hub)
	achievementService := services.NewAchievementService(store)
	transactionService := services.NewTransactionService(store)

	var archive *services.EvidenceArchive
	if cfg.Evidence.AccountID != "" {
		uploader, err := utils.NewR2Uploader(ctx, utils.R2Config{
			AccountID:       cfg.Evidence.AccountID,
			AccessKeyID:     cfg.Evidence.AccessKeyID,
			AccessKeySecret: cfg.Evidence.AccessKeySecret,
			Bucket:          cfg.Evidence.Bucket,
			CDNBaseURL:      cfg.Evidence.CDNBaseURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize R2 client")
		}
		archive = services.NewEvidenceArchive(uploader)
		log.Info().Str("bucket", cfg.Evidence.Bucket).Msg("session evidence archiving enabled")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Name",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// probes and push transports are registered ahead of the global gateway check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handlers.SetupRealtimeRoutes(app, hub, cfg.Server.GatewayToken)

	app.Use(middleware.GatewayAuthMiddleware(cfg.Server.GatewayToken))
	handlers.SetupChallengeRoutes(app, userService, challengeService, ledgerService, archive)
	handlers.SetupProgressionRoutes(app, userService, challengeService, achievementService, transactionService)

	expiry := services.NewExpiryScheduler(store, hub, cfg.Scheduler.ExpiryInterval)
	if err := expiry.Start(); err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}

	if cfg.Sync.URL != "" {
		syncWorker, err := workers.NewUserSyncWorker(store, cfg.Sync.URL, cfg.Sync.EndpointPath, cfg.Server.GatewayToken, cfg.Sync.Interval)
		if err != nil {
			log.Fatal().Err(err).Msg("user sync worker")
		}
		syncWorker.Start(ctx)
	}

	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Error().Err(err).Msg("server error")
			stop()
		}
	}()
	log.Info().
		Str("port", cfg.Server.Port).
		Strs("origins", cfg.Server.AllowedOrigins).
		Bool("sync", cfg.Sync.URL != "").
		Msg("server running")

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	if err := expiry.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("scheduler shutdown")
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Warn().Err(err).Msg("server shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
