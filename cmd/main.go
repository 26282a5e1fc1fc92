// Package main is the entry point for the geo-cache-service application.
//
// @title           Geo Cache Service API
// @version         1.0.0
// @description     Caching layer in front of paid geocoding and drive-distance providers.
//
//	Lookups are keyed by rounded coordinates or normalized addresses and served from the
//	cache store while fresh; misses go through an ordered provider chain with fallbacks.
//
// @termsOfService  http://swagger.io/terms/
//
// @contact.name   API Support
// @contact.email  support@example.com
// @contact.url    https://github.com/guttosm/geo-cache-service
//
// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT
//
// @host      localhost:8080
// @BasePath  /
//
// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        X-API-Key
// @description                 API key for authentication. Required if authentication is enabled.
//
// @tag.name        Lookups
// @tag.description Distance and geocode lookups
//
// @tag.name        Cache
// @tag.description Cache statistics and maintenance
//
// @tag.name        Health
// @tag.description Health check endpoints
package main

import (
	"context"
	"os/signal"
	"syscall"

	_ "github.com/guttosm/geo-cache-service/docs" // swagger docs

	"github.com/guttosm/geo-cache-service/config"
	"github.com/guttosm/geo-cache-service/internal/app"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.InitializeApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	application.Start(ctx)

	server := app.NewServer(application.Router, cfg.Server)
	runErr := server.Run(ctx)

	if err := application.Close(context.Background()); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}
	if runErr != nil {
		log.Fatal().Err(runErr).Msg("Server error")
	}
}
