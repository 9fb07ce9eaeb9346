package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/blagoySimandov/rowenrich/internal/api"
	"github.com/blagoySimandov/rowenrich/internal/app"
	"github.com/blagoySimandov/rowenrich/internal/auth"
	"github.com/blagoySimandov/rowenrich/internal/config"
	"github.com/blagoySimandov/rowenrich/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	mintToken := flag.String("mint-token", "", "print a bearer token for this subject and exit")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "lifetime of a minted token")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	closer, err := logger.Setup(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Console: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()

	if *mintToken != "" {
		verifier, err := auth.NewJWTVerifier(cfg.APIJWTSecret)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot mint a token without API_JWT_SECRET")
		}
		token, err := verifier.Sign(*mintToken, *tokenTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to sign token")
		}
		fmt.Println(token)
		return
	}

	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}
	defer a.Close()

	var jwtVerifier *auth.JWTVerifier
	if cfg.APIJWTSecret != "" {
		jwtVerifier, err = auth.NewJWTVerifier(cfg.APIJWTSecret)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create JWT verifier")
		}
	} else {
		log.Warn().Msg("API_JWT_SECRET is not set, the API is unauthenticated")
	}

	if jwtVerifier == nil || cfg.DataDir == "" {
		log.Warn().Msg("local file paths are disabled for API requests, set API_JWT_SECRET and DATA_DIR to enable them")
	}
	handler := api.NewEnrichHandler(a.Enricher, cfg.DataDir)
	router := api.SetupRoutes(handler, jwtVerifier, cfg.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("shutting down server")

		if runID, ok := a.Enricher.ActiveRun(); ok {
			log.Info().Str("run_id", runID).Msg("cancelling active run")
			if err := a.Enricher.Cancel(ctx, runID); err != nil {
				log.Error().Err(err).Str("run_id", runID).Msg("failed to cancel run")
			}
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
		if runID, ok := a.Enricher.ActiveRun(); ok {
			if err := a.Enricher.Wait(shutdownCtx, runID); err != nil {
				log.Error().Err(err).Str("run_id", runID).Msg("run did not stop in time")
			}
		}
	}()

	log.Info().Str("addr", cfg.ServerAddr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed to start")
	}
	<-stopped

	log.Info().Msg("server stopped")
}
