package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"discipline-journal-go/internal/auth"
	"discipline-journal-go/internal/config"
	"discipline-journal-go/internal/database"
	"discipline-journal-go/internal/progression"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the local database schema and seed achievements",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Store.Backend == config.BackendRemote {
				return fmt.Errorf("migrate only applies to the %q backend", config.BackendSQLite)
			}
			db, err := database.NewDatabase(a.cfg.Database.DSN)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			a.logger.Info("Database migrated", zap.String("dsn", a.cfg.Database.DSN))
			return nil
		},
	}
}

func newTokenCmd(a *app) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a development bearer token signed with auth.jwt_secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret must be set")
			}
			token, err := auth.NewVerifier(a.cfg.Auth.JWTSecret).Issue(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newLevelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "level <xp>",
		Short: "Show the level reached with an amount of XP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			xp, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid xp %q: %w", args[0], err)
			}
			return printJSON(cmd, progression.LevelFromXP(xp))
		},
	}
}

func newUnitsCmd() *cobra.Command {
	var start, current, percent float64
	var total int
	cmd := &cobra.Command{
		Use:   "units",
		Short: "Show completed compounding units for a capital change",
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := progression.UnitsCompleted(start, current, percent, total)
			if err != nil {
				return err
			}
			progress, err := progression.UnitProgress(start, current, percent, total)
			if err != nil {
				return err
			}
			next, err := progression.UnitTargetCapital(start, percent, units+1)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]interface{}{
				"units_completed":       units,
				"unit_progress_percent": progress,
				"next_unit_capital":     next,
			})
		},
	}
	cmd.Flags().Float64Var(&start, "start", 0, "starting capital")
	cmd.Flags().Float64Var(&current, "current", 0, "current capital")
	cmd.Flags().Float64Var(&percent, "percent", 0, "target percent per unit")
	cmd.Flags().IntVar(&total, "total", 0, "total units (0 for unbounded)")
	return cmd
}
