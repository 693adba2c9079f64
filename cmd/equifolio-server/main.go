package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"equifolio/internal/analysis"
	"equifolio/internal/config"
	"equifolio/internal/httpapi"
	"equifolio/internal/portfolio"
	"equifolio/internal/util"
)

func main() {
	// Load config.
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("loading .env: %v", err)
	}
	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// Setup logging.
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	client := analysis.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout)

	var quotes portfolio.QuoteSource
	if cfg.Alpaca.Enabled() {
		quotes = portfolio.NewAlpacaQuotes(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
		logger.Info("alpaca market data enabled for portfolio prices")
	}
	limiter := util.NewRateLimiter(cfg.Backend.RateLimitPerMin, cfg.Backend.RateLimitBurst)

	srv, err := httpapi.NewServer(client, quotes, limiter, cfg.Portfolio.RiskPeriod, logger)
	if err != nil {
		log.Fatalf("creating server: %v", err)
	}

	// Backend analyses can take up to the client timeout, so the write
	// timeout has to outlast it.
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Backend.Timeout + 10*time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("equifolio server listening",
			"addr", httpServer.Addr,
			"backend", client.BaseURL(),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down equifolio server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
