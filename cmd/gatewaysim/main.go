package main

import (
	"staytax/internal/gatewaysim"
	"staytax/internal/health"
	"staytax/pkg/app"
	"staytax/pkg/config"
)

const ServiceName = "gatewaysim"

func main() {
	cfg := config.Load(ServiceName)

	cfg.Log.Info("Starting sandbox payment gateway")

	store := gatewaysim.NewStore()
	appHandler := gatewaysim.NewHandler(store, cfg.GatewayNotifyURL, cfg.GatewayNotifySecret, cfg.Log)
	healthHandler := health.NewHandler(nil, nil, cfg.Log)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(appHandler, healthHandler)
	serverApp.Run()
}
