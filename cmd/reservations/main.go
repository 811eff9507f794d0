package main

import (
	"time"

	"staytax/internal/health"
	rateshandler "staytax/internal/rates/handler"
	ratesrepo "staytax/internal/rates/repository"
	ratesservice "staytax/internal/rates/service"
	"staytax/internal/reservations/handler"
	"staytax/internal/reservations/repository"
	"staytax/internal/reservations/service"
	"staytax/internal/reservations/validator"
	"staytax/internal/tokens"
	"staytax/internal/validation"
	"staytax/pkg/app"
	"staytax/pkg/audit"
	"staytax/pkg/cache"
	"staytax/pkg/config"
	"staytax/pkg/contracts"
)

const ServiceName = "reservations"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Reservations service")

	cacheTier, stopCache := buildCache(cfg)
	auditPublisher := audit.NewPublisher(cfg.KafkaBrokers, cfg.AuditTopic, cfg.Log)

	rateService := ratesservice.NewRateService(ratesrepo.NewMongoRateRepository(cfg), cacheTier, cfg)
	reservationService := initReservationService(cfg, rateService, cacheTier, auditPublisher)

	appHandler := contracts.Compose{
		handler.NewReservationHandler(reservationService, cfg.Log),
		rateshandler.NewRateHandler(rateService, cfg.Log),
		tokens.NewHandler(tokens.NewIssuer(cfg.StorageTokenSecret, cfg.StorageTokenMaxTTL), cfg.Log),
		validation.NewHandler(cfg.Log),
	}
	healthHandler := health.NewHandler(cfg.Client.Mongo, cfg.Client.Redis, cfg.Log)

	serverApp := app.NewApplication(cfg)
	serverApp.RegisterOnShutdown(func() {
		if err := auditPublisher.Close(); err != nil {
			cfg.Log.Error("Failed to close audit publisher", "error", err)
		}
		stopCache()
		cfg.GracefulShutdown()
	})
	serverApp.SetApp(appHandler, healthHandler)
	serverApp.Run()
}

func initReservationService(cfg *config.Config, rates service.RateProvider, cacheTier cache.Cache, auditPublisher audit.Publisher) service.ReservationService {
	reservationService := service.NewReservationService(
		repository.NewMongoReservationRepository(cfg),
		rates,
		validator.NewReservationValidator(cfg.Log),
		cacheTier,
		auditPublisher,
		cfg,
	)

	cfg.Log.Info("Reservation service initialized", "database", cfg.MongoDatabaseName)
	return reservationService
}

func buildCache(cfg *config.Config) (cache.Cache, func()) {
	if cfg.Client.Redis != nil {
		return cache.NewRedis(cfg.Client.Redis, cfg.Log), func() {}
	}
	memory := cache.NewMemory(time.Minute)
	return memory, memory.Stop
}
