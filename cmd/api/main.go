package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"colorway/internal/http/handlers"
	"colorway/internal/http/httpapi"
	"colorway/internal/imagesource"
	"colorway/internal/infra"
	"colorway/internal/metrics"
	"colorway/internal/providers/openai"
	"colorway/internal/variations"
)

func main() {
	// .env is optional, real deployments use the environment directly.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg)

	resolver := imagesource.NewResolver(imagesource.Options{
		FetchTimeout: cfg.FetchTimeout,
		Logger:       logger,
	})
	client := openai.NewClient(openai.Options{
		APIKey:         cfg.OpenAIAPIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		Model:          cfg.OpenAIModel,
		Logger:         logger,
		RequestTimeout: cfg.UpstreamTimeout,
		Inliner:        resolver,
	})
	driver := variations.NewDriver(client, logger)

	app := handlers.NewApp(cfg, logger, resolver, client, driver)
	metrics.ObserveTrackedJobs(app.Registry.Len)

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("api listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
