// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/queueuphq/queueup-server/internal/api/httpapi"
	"github.com/queueuphq/queueup-server/internal/app/admission"
	"github.com/queueuphq/queueup-server/internal/app/connect"
	"github.com/queueuphq/queueup-server/internal/app/payment"
	"github.com/queueuphq/queueup-server/internal/app/reconcile"
	"github.com/queueuphq/queueup-server/internal/app/rejection"
	"github.com/queueuphq/queueup-server/internal/app/search"
	"github.com/queueuphq/queueup-server/internal/app/status"
	"github.com/queueuphq/queueup-server/internal/app/token"
	"github.com/queueuphq/queueup-server/internal/infra/config"
	"github.com/queueuphq/queueup-server/internal/infra/logger"
	"github.com/queueuphq/queueup-server/internal/infra/spotify"
	"github.com/queueuphq/queueup-server/internal/infra/store"
	"github.com/queueuphq/queueup-server/internal/infra/stripe"
)

var (
	app        = kingpin.New("queueup-server", "QueueUp jukebox server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	st, err := store.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	spotifyClient := spotify.NewClient()
	catalog := spotify.NewCatalog()
	stripeClient := stripe.New(cfg.Stripe.SecretKey)

	tokens := token.NewManager(st, spotifyClient)
	admitter := admission.NewController(st, tokens, spotifyClient)
	payments := payment.NewGate(st, stripeClient, admitter, payment.Config{
		Currency:  cfg.Stripe.Currency,
		Locale:    cfg.Stripe.Locale,
		PublicURL: cfg.App.PublicURL,
	})
	reconciler := reconcile.NewReconciler(st, tokens, spotifyClient)
	rejecter := rejection.NewHandler(st, tokens)
	statuses := status.NewUpdater(st)
	searcher := search.NewService(st, catalog)
	connector := connect.NewService(st, spotifyClient, cfg.Spotify.RedirectURL)

	api := httpapi.NewServer(admitter, payments, reconciler, rejecter, statuses, searcher, connector, st)

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(api.Routes(), &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}
