package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"discipline-journal-go/internal/api"
	"discipline-journal-go/internal/auth"
	"discipline-journal-go/internal/journal"
	"discipline-journal-go/internal/onboarding"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwt_secret must be set (AUTH_JWT_SECRET)")
			}

			st, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			detector, err := journal.NewDetector(&a.cfg.Engine)
			if err != nil {
				return err
			}
			engine, err := journal.NewEngine(a.logger, &a.cfg, st, detector)
			if err != nil {
				return err
			}

			sessions := onboarding.NewManager(engine, time.Duration(a.cfg.Server.OnboardingTTLMinutes)*time.Minute, a.logger)
			server := api.NewServer(&a.cfg.Server, engine, sessions, auth.NewVerifier(a.cfg.Auth.JWTSecret), a.logger)
			server.Start()

			sigchan := make(chan os.Signal, 1)
			signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
			<-sigchan
			a.logger.Info("Shutdown signal received, gracefully shutting down...")

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Stop(ctx); err != nil {
				a.logger.Error("API server shutdown failed", zap.Error(err))
				return err
			}
			a.logger.Info("Journal has been shut down.")
			return nil
		},
	}
}
