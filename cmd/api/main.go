package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"cinedolly/internal/generation"
	"cinedolly/internal/http/handlers"
	httpapi "cinedolly/internal/http/httpapi"
	"cinedolly/internal/infra"
	"cinedolly/internal/infra/credentials"
	"cinedolly/internal/infra/geoip"
	"cinedolly/internal/media"
	mw "cinedolly/internal/middleware"
	"cinedolly/internal/providers/genai"
	"cinedolly/internal/providers/video"
	"cinedolly/internal/storage"
	"cinedolly/internal/studio"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	// Credentials come from the database when configured, else from the environment.
	var selector credentials.Selector
	if cfg.HasCredentialStore() {
		dbpool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer dbpool.Close()
		store := credentials.NewStore(infra.NewSQLRunner(dbpool, logger))
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare credential store")
		}
		selector = credentials.NewStoreSelector(store)
		logger.Info().Msg("using credential store")
	} else {
		selector = credentials.NewEnvSelector(cfg.GeminiAPIKey)
		logger.Info().Str("key", infra.MaskSecret(cfg.GeminiAPIKey)).Msg("using environment credential")
	}

	var countryLookup mw.CountryLookup
	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		defer resolver.Close()
		countryLookup = resolver.Country
	}

	clientLogger := logger.With().Str("component", "genai").Logger()
	client, err := genai.NewClient(genai.Options{
		Keys:    selector.APIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.VeoModel,
		Logger:  &clientLogger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create gemini client")
	}
	orchestrator := generation.New(video.NewGeminiProvider(client), generation.Options{
		PollInterval: cfg.PollInterval,
		MaxPolls:     cfg.MaxPolls,
	}, logger)

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare storage")
	}
	library := media.NewLibrary(fileStore, "/v1/media")
	session := studio.NewSession(orchestrator, library, logger)

	genCtx, cancelGenerations := context.WithCancel(ctx)
	defer cancelGenerations()

	app := &handlers.App{
		Session:        session,
		Selector:       selector,
		Media:          library,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Background:     genCtx,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   countryLookup,
		Logger:          logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("model", client.Model()).Msgf("API listening on %s", server.Addr())
	if err := server.Run(runCtx); err != nil {
		logger.Error().Err(err).Msg("http server failed")
	}

	cancelGenerations()
	session.Wait()
	if err := library.ReleaseAll(); err != nil {
		logger.Error().Err(err).Msg("failed to release videos")
	}
	logger.Info().Msg("server stopped")
}
