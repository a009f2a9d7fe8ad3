package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"quizlink-service/internal/config"
	"quizlink-service/internal/tracing"
	transport "quizlink-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, logger, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	var tracingService string
	if cfg.Tracing.Enabled {
		shutdownTracing, err := tracing.Setup(cfg.Tracing.ServiceName, os.Stdout)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Warn("error shutting down tracing", "error", err)
			}
		}()
		tracingService = cfg.Tracing.ServiceName
	}

	c, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	engine := transport.NewRouter(
		transport.RouterConfig{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         logger,
			Metrics:        c.metrics,
			TracingService: tracingService,
		},
		transport.NewAdminService(c.registry, c.aggregator, c.attempts, c.catalog, cfg.Server.PublicBaseURL, cfg.Links.DefaultMaxAllowed),
		transport.NewStudentService(c.registry, c.aggregator),
		transport.NewWSHandler(c.attempts, logger),
	)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           engine,
		ReadHeaderTimeout: 15 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	clockDone := make(chan struct{})
	go func() {
		defer close(clockDone)
		c.attempts.Run(runCtx, config.TTLDuration(cfg.Server.TickInterval, time.Second))
	}()

	go func() {
		logger.Info("starting quiz service", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-runCtx.Done():
		logger.Info("context canceled, shutting down server")
	}

	cancel()
	<-clockDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
