package main

import (
	"context"
	"time"

	"staytax/internal/health"
	"staytax/internal/payments/gateway"
	"staytax/internal/payments/handler"
	"staytax/internal/payments/poller"
	"staytax/internal/payments/repository"
	"staytax/internal/payments/service"
	resrepo "staytax/internal/reservations/repository"
	"staytax/pkg/app"
	"staytax/pkg/audit"
	"staytax/pkg/cache"
	"staytax/pkg/client"
	"staytax/pkg/config"
)

const ServiceName = "payments"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Payments service")

	cacheTier, stopCache := buildCache(cfg)
	auditPublisher := audit.NewPublisher(cfg.KafkaBrokers, cfg.AuditTopic, cfg.Log)

	retry := client.DefaultRetryPolicy()
	retry.MaxAttempts = cfg.HTTPRetryAttempts
	retry.BaseDelay = cfg.HTTPRetryBaseDelay
	gatewayClient := gateway.NewHTTPClient(cfg.GatewayBaseURL, retry, cfg.Log)

	paymentRepo := repository.NewMongoPaymentRepository(cfg)
	paymentService := service.NewPaymentService(
		paymentRepo,
		resrepo.NewMongoReservationRepository(cfg),
		gatewayClient,
		cacheTier,
		auditPublisher,
		cfg,
	)
	cfg.Log.Info("Payment service initialized", "database", cfg.MongoDatabaseName, "gateway", cfg.GatewayBaseURL)

	pollerCtx, stopPoller := context.WithCancel(context.Background())
	statusPoller := poller.New(paymentRepo, paymentService, gatewayClient, cfg)
	go statusPoller.Start(pollerCtx)

	healthHandler := health.NewHandler(cfg.Client.Mongo, cfg.Client.Redis, cfg.Log)

	serverApp := app.NewApplication(cfg)
	serverApp.SetWebhookVerification(handler.NotificationPath)
	serverApp.RegisterOnShutdown(func() {
		stopPoller()
		if err := auditPublisher.Close(); err != nil {
			cfg.Log.Error("Failed to close audit publisher", "error", err)
		}
		stopCache()
		cfg.GracefulShutdown()
	})
	serverApp.SetApp(handler.NewPaymentHandler(paymentService, cfg.Log), healthHandler)
	serverApp.Run()
}

func buildCache(cfg *config.Config) (cache.Cache, func()) {
	if cfg.Client.Redis != nil {
		return cache.NewRedis(cfg.Client.Redis, cfg.Log), func() {}
	}
	memory := cache.NewMemory(time.Minute)
	return memory, memory.Stop
}
