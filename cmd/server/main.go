// Package main initializes and starts the analysis proxy server,
// setting up configuration, logging, metrics, the provider client,
// handlers and optional TLS.
package main

import (
	"cmp"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/BagWardrobe/internal/config"
	"github.com/atinyakov/BagWardrobe/internal/logger"
	"github.com/atinyakov/BagWardrobe/internal/metrics"
	"github.com/atinyakov/BagWardrobe/internal/server/handler/http"
	"github.com/atinyakov/BagWardrobe/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	if err := options.Validate(); err != nil {
		zapLogger.Fatal("invalid configuration", zap.Error(err))
	}

	// Metrics, provider client and the analysis service.
	collector := metrics.NewCollector("bagwardrobe")
	client := service.NewProviderClient(service.DefaultBreakerConfig("provider"), zapLogger)
	analysisService := service.NewAnalysisService(options.AnalysisConfig(), client, collector, zapLogger)

	analyzeHandler := &http.AnalyzeHandler{
		Service: analysisService,
		CORS:    http.DefaultCORSPolicy(),
		Logger:  zapLogger,

		MaxRequestBytes: options.MaxRequestBytes,
	}
	router := http.NewRouter(analyzeHandler, collector, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", options.Port)
	if err != nil {
		zapLogger.Fatal("failed to listen", zap.String("addr", options.Port), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// In-flight analyses may run for the whole provider timeout.
	drain := time.Duration(options.Timeout) + 5*time.Second
	if err := serve(ctx, server, ln, options.TLSCert, options.TLSKey, drain, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
