package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bannedemails/internal/adapters/auth"
	"bannedemails/internal/adapters/metrics"
	httpdelivery "bannedemails/internal/delivery/http"
	"bannedemails/internal/delivery/http/controllers"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	reg := newRegistry()
	banMetrics, err := metrics.NewBanMetrics(reg)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, banMetrics)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	handler, err := httpdelivery.NewRouter(httpdelivery.RouterDeps{
		Logger:             logger,
		BanController:      controllers.NewBanController(logger, a.service),
		CheckoutController: controllers.NewCheckoutController(logger, a.service),
		HealthController:   controllers.NewHealthController(logger, a.db),
		Verifier:           auth.NewJWTVerifier(a.cfg.SessionSecret),
		AllowedOrigins:     a.cfg.AllowedOrigins,
		Registry:           reg,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", a.cfg.Port, "env", a.cfg.Environment)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-serverErr
}
