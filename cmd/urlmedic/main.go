package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hazz-dev/urlmedic/internal/alert"
	"github.com/hazz-dev/urlmedic/internal/checker"
	"github.com/hazz-dev/urlmedic/internal/config"
	"github.com/hazz-dev/urlmedic/internal/dashboard"
	"github.com/hazz-dev/urlmedic/internal/metrics"
	"github.com/hazz-dev/urlmedic/internal/scheduler"
	"github.com/hazz-dev/urlmedic/internal/server"
	"github.com/hazz-dev/urlmedic/internal/storage"
	"github.com/hazz-dev/urlmedic/internal/version"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "urlmedic",
		Short:        "Check the reachability and status of lists of URLs",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "config.yml", "config file path (serve, status)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(versionCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(statusCmd())

	return root
}

// newLogger logs to stderr at level, or at debug when --verbose is set.
func newLogger(cmd *cobra.Command, level slog.Level) *slog.Logger {
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Check the configured targets on an interval and serve the dashboard",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd, slog.LevelInfo)
	ctx := cmd.Context()

	// 1. Load config
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Info("config loaded", "targets", len(cfg.Targets))

	// 2. Open SQLite
	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	// 3. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 4. Build scheduler on one runner shared by all targets
	runner := checker.NewRunner(cfg.Checker.Checker(), logger)
	sched := scheduler.New(cfg.Targets, db, runner, logger)
	sched.SetRecorder(collector)
	if cfg.Alerts.Webhook.URL != "" {
		alerter := alert.New(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Cooldown.Duration, logger)
		sched.SetOnChanges(alerter.Notify)
	}

	// 5. Mount API, metrics and dashboard on a single mux
	apiServer := server.New(db, cfg.Targets, logger)
	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Router())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/", dashboard.Handler())

	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Start scheduler
	sched.Start(ctx)
	logger.Info("scheduler started", "targets", len(cfg.Targets))

	// 7. Start HTTP server in background
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// 8. Wait for signal or server error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server: %w", err)
	}

	// 9. Graceful shutdown
	sched.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the latest stored run of every target",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return executeStatus(cmd, db)
}
