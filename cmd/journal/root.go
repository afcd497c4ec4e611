package main

import (
	"fmt"

	"discipline-journal-go/internal/config"
	"discipline-journal-go/internal/database"
	"discipline-journal-go/internal/logger"
	"discipline-journal-go/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what every subcommand needs once flags are parsed.
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "journal",
		Short:         "Trading journal with discipline tracking and progression",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("config")
			cfg, err := config.LoadConfig(dir)
			if err != nil {
				return fmt.Errorf("could not load config: %w", err)
			}
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				cfg.Logger.Level = "debug"
			}
			log, err := logger.FromConfig(cfg.Logger)
			if err != nil {
				return fmt.Errorf("could not initialize logger: %w", err)
			}
			a.cfg = cfg
			a.logger = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().String("config", "./configs", "directory containing config.yml")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newMigrateCmd(a))
	rootCmd.AddCommand(newTokenCmd(a))
	rootCmd.AddCommand(newLevelCmd())
	rootCmd.AddCommand(newUnitsCmd())
	return rootCmd
}

// openStore connects the configured backend. The returned function releases it.
func (a *app) openStore() (store.Store, func(), error) {
	switch a.cfg.Store.Backend {
	case config.BackendRemote:
		if a.cfg.Remote.URL == "" {
			return nil, nil, fmt.Errorf("remote.url is required for the %q backend", config.BackendRemote)
		}
		a.logger.Info("Using remote store", zap.String("url", a.cfg.Remote.URL))
		return store.NewRemoteStore(&a.cfg.Remote, a.logger), func() {}, nil
	case config.BackendSQLite, "":
		db, err := database.NewDatabase(a.cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		a.logger.Info("Database connection successful and schema migrated.", zap.String("dsn", a.cfg.Database.DSN))
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return store.NewGormStore(db), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", a.cfg.Store.Backend)
	}
}
