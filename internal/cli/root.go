// Package cli is the tutor-api command line: the HTTP server plus the
// schema and demo-data maintenance commands that share its configuration.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-tutor-backend/internal/config"
	"github.com/tbourn/go-tutor-backend/internal/repo"
	"github.com/tbourn/go-tutor-backend/internal/sysutil"
)

// Version is stamped at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

var envFile string

var rootCmd = &cobra.Command{
	Use:           "tutor-api",
	Short:         "Peer tutoring API with a skillpoints ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnvFile(envFile)
	},
}

func init() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file merged into the environment (missing file is ignored)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadEnvFile merges path into the process environment without overriding
// variables that are already set.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// bootstrap loads configuration and configures the global logger to write
// to w.
func bootstrap(w io.Writer) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty, w)
	return cfg, nil
}

// openStore connects to the configured database and brings the schema up
// to date. With seed set, demo data is inserted into empty tables.
func openStore(ctx context.Context, cfg config.Config, seed bool) (*gorm.DB, repo.SeedResult, error) {
	db, err := repo.Open(cfg.DB)
	if err != nil {
		return nil, repo.SeedResult{}, fmt.Errorf("open %s: %w", cfg.DB.Driver, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeStore(db)
		return nil, repo.SeedResult{}, fmt.Errorf("migrate: %w", err)
	}
	if !seed {
		return db, repo.SeedResult{}, nil
	}
	res, err := repo.SeedDemo(ctx, db)
	if err != nil {
		closeStore(db)
		return nil, repo.SeedResult{}, fmt.Errorf("seed: %w", err)
	}
	log.Info().Int("users", res.Users).Int("requests", res.Requests).Msg("demo data seeded")
	return db, res, nil
}

func closeStore(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("close database")
	}
}
