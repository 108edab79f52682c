package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/saegim/proofdesk/internal/auth"
	"github.com/saegim/proofdesk/internal/config"
	"github.com/saegim/proofdesk/internal/handler"
	"github.com/saegim/proofdesk/internal/infra/postgresql"
	"github.com/saegim/proofdesk/internal/infra/postgresql/migrations"
	infraredis "github.com/saegim/proofdesk/internal/infra/redis"
	"github.com/saegim/proofdesk/internal/observability"
	"github.com/saegim/proofdesk/internal/provider"
	"github.com/saegim/proofdesk/internal/queue"
	"github.com/saegim/proofdesk/internal/repository"
	"github.com/saegim/proofdesk/internal/security"
	"github.com/saegim/proofdesk/internal/service"
	"github.com/saegim/proofdesk/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer rabbit.Close()

	cipher, err := security.NewPhoneCipher(cfg.PhoneEncryptionKey)
	if err != nil {
		logger.Fatal("phone cipher initialization failed", zap.Error(err))
	}

	limiter, err := infraredis.NewRedisRateLimiter(rdb, infraredis.Limits{
		Default: cfg.RateLimitPerSec,
		PerChannel: map[string]int{
			"alimtalk": cfg.AlimtalkRateLimitPerSec,
			"sms":      cfg.SMSRateLimitPerSec,
		},
	})
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	orgRepo := repository.NewGormOrganizationRepo(db)
	orderRepo := repository.NewGormOrderRepo(db)
	tokenRepo := repository.NewGormTokenRepo(db)
	proofRepo := repository.NewGormProofRepo(db)
	notificationRepo := repository.NewGormNotificationRepo(db)
	shortLinkRepo := repository.NewGormShortLinkRepo(db)

	providerSettings := provider.Settings{
		Primary:          cfg.MessagingProvider,
		KakaoBaseURL:     cfg.KakaoBaseURL,
		KakaoAccessToken: cfg.KakaoAccessToken,
		SensBaseURL:      cfg.SensBaseURL,
		SensAccessKey:    cfg.SensAccessKey,
		SensSecretKey:    cfg.SensSecretKey,
		SensServiceID:    cfg.SensServiceID,
		SensFrom:         cfg.SensFrom,
	}
	primary := provider.NewPrimary(providerSettings)
	fallback := provider.NewSMSFallback(providerSettings)

	tokenSvc := service.NewTokenService(tokenRepo, orderRepo, cfg.WebBaseURL, cfg.AppBaseURL, logger)
	shortLinkSvc := service.NewShortLinkService(shortLinkRepo, cfg.WebBaseURL, metrics, logger)
	orderSvc := service.NewOrderService(
		orderRepo, orgRepo, tokenRepo, proofRepo, notificationRepo,
		shortLinkSvc, tokenSvc, cipher, logger,
	)
	orgSvc := service.NewOrganizationService(orgRepo, logger)
	dispatchSvc := service.NewDispatchService(
		orderRepo, orgRepo, notificationRepo, proofRepo, tokenRepo,
		shortLinkSvc, tokenSvc, primary, fallback, limiter, cipher,
		service.DispatchSettings{
			Templates: service.MessageTemplates{
				AlimtalkSender:    cfg.AlimtalkTemplateSender,
				AlimtalkRecipient: cfg.AlimtalkTemplateRecipient,
				SMSSender:         cfg.SMSTemplateSender,
				SMSRecipient:      cfg.SMSTemplateRecipient,
			},
			FallbackSMSEnabled: cfg.FallbackSMSEnabled,
			KakaoSenderKey:     cfg.KakaoSenderKey,
			KakaoTemplateCode:  cfg.KakaoTemplateCode,
			KakaoSenderNo:      cfg.KakaoSenderNo,
			SensFrom:           cfg.SensFrom,
		},
		metrics, logger,
	)

	publisher := queue.NewRabbitMQPublisher(rabbit)
	consumer := queue.NewRabbitMQConsumer(rabbit, cfg.WorkerConcurrency, logger)
	dispatchReqSvc := service.NewDispatchRequestService(orderRepo, proofRepo, publisher, logger)
	workerSvc := service.NewWorkerService(dispatchSvc, consumer, cfg.WorkerConcurrency, logger)

	verifier := auth.NewVerifier(auth.NewJWKSCache(cfg.AuthJWKSURL), cfg.AuthIssuer, cfg.AuthAudience)
	authMw := auth.NewMiddleware(verifier, orgRepo, logger, auth.MiddlewareOptions{
		Enabled:       cfg.AuthEnabled,
		AllowAdminKey: cfg.AllowAdminAPIKey,
		AdminKey:      cfg.AdminAPIKey,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app,
		handler.PostgresCheck(sqlDB),
		handler.RedisCheck(rdb),
		handler.BrokerCheck(rabbit),
	)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	shortLinkHandler, err := handler.NewShortLinkHandler(shortLinkSvc)
	if err != nil {
		logger.Fatal("short link handler init failed", zap.Error(err))
	}
	handler.RegisterShortLinkRoutes(app, shortLinkHandler)

	api := app.Group("/api", authMw.Handler())
	orderHandler, err := handler.NewOrderHandler(orderSvc, tokenSvc, dispatchReqSvc)
	if err != nil {
		logger.Fatal("order handler init failed", zap.Error(err))
	}
	handler.RegisterOrderRoutes(api, orderHandler)

	orgHandler, err := handler.NewOrganizationHandler(orgSvc)
	if err != nil {
		logger.Fatal("organization handler init failed", zap.Error(err))
	}
	handler.RegisterOrganizationRoutes(api, orgHandler, authMw)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := workerSvc.Start(ctx); err != nil {
			logger.Error("dispatch worker exited", zap.Error(err))
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info("proofdesk api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(addr); err != nil {
			logger.Error("api server exited", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
