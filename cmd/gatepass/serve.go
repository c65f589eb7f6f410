package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/diewo77/gatepass/auth"
	"github.com/diewo77/gatepass/internal/authz"
	"github.com/diewo77/gatepass/internal/clock"
	"github.com/diewo77/gatepass/internal/db"
	"github.com/diewo77/gatepass/internal/events"
	"github.com/diewo77/gatepass/internal/gatepass"
	"github.com/diewo77/gatepass/internal/identity"
	"github.com/diewo77/gatepass/internal/server"
	"github.com/diewo77/gatepass/internal/store/gormstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openDB()
		if err != nil {
			return err
		}
		if cfg.App.Seed {
			roles, err := loadRoles()
			if err != nil {
				return err
			}
			if err := db.Seed(conn, roles); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
		}

		publisher, err := newPublisher()
		if err != nil {
			return err
		}
		defer publisher.Close()

		srv := &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      newHandler(conn, publisher),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		}

		errc := make(chan error, 1)
		go func() {
			logger.Info("server starting", "port", cfg.Server.Port, "dev", cfg.App.Dev,
				"min_buffer", cfg.App.MinBuffer)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
			close(errc)
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		select {
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
		logger.Info("server stopped gracefully")
		return nil
	},
}

func newHandler(conn *gorm.DB, publisher events.Publisher) http.Handler {
	profiles := authz.NewCachedResolver[string](authz.NewDBProfileResolver(conn), cfg.App.ProfileCacheTTL, clock.Real())
	callers := identity.NewResolver(conn, profiles)
	auth.SetAccountVerifier(callers.Exists)

	st := gormstore.New(conn)
	svc := gatepass.NewService(st, clock.Real(), cfg.App.MinBuffer)
	svc.SetLogger(logger)
	svc.SetPublisher(publisher)

	return server.New(server.Deps{
		Service: svc,
		Callers: callers,
		Health:  st,
		Logger:  logger,
	})
}

func newPublisher() (events.Publisher, error) {
	if cfg.App.NATSURL == "" {
		return &events.NoopPublisher{}, nil
	}
	p, err := events.NewNATSPublisher(cfg.App.NATSURL, nats.Name("gatepass-"+hostname()))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	logger.Info("publishing events", "nats_url", cfg.App.NATSURL)
	return p, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
