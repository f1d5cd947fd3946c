package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	caphost "github.com/ferro-labs/caphost"
	"github.com/ferro-labs/caphost/internal/adminapi"
	"github.com/ferro-labs/caphost/internal/logging"
	"github.com/ferro-labs/caphost/internal/version"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		listenAddr string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the configured capability providers and serve the admin introspection surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(logLevel, logFormat)

			h, err := caphost.New()
			if err != nil {
				return fmt.Errorf("create host: %w", err)
			}

			if configPath != "" {
				cfg, err := caphost.LoadConfig(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := caphost.ValidateConfig(*cfg); err != nil {
					return fmt.Errorf("invalid config: %w", err)
				}
				if err := caphost.Apply(h, *cfg); err != nil {
					return fmt.Errorf("apply config: %w", err)
				}
				logging.Logger.Info("config applied", "bindings", len(cfg.Bindings), "middleware", len(cfg.Middleware))
			}

			srv := &http.Server{
				Addr:         listenAddr,
				Handler:      newAdminRouter(h),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()
				logging.Logger.Info("shutdown signal received")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logging.Logger.Error("admin server shutdown error", "error", err)
				}
				h.Shutdown()
			}()

			logging.Logger.Info("caphostd listening", "version", version.Short(), "addr", listenAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("admin server error: %w", err)
			}
			logging.Logger.Info("caphostd stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")
	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "Admin HTTP listen address")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormat, "log-format", "json", "Log format (json, text)")
	return cmd
}

// newAdminRouter mounts the admin introspection surface (internal/adminapi)
// alongside a health check and the Prometheus /metrics endpoint.
func newAdminRouter(h *caphost.Host) http.Handler {
	r := chi.NewRouter()
	r.Use(logging.Middleware)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	handlers := &adminapi.Handlers{Host: h}
	r.Mount("/admin", handlers.Routes())

	return r
}
