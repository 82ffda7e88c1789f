package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/trailview/service-routes/internal/config"
	"github.com/trailview/service-routes/internal/platform/database"
	"github.com/trailview/service-routes/internal/platform/logger"
	"github.com/trailview/service-routes/internal/repository"
)

var rootCmd = &cobra.Command{
	Use:   "trailctl",
	Short: "Maintenance tool for the trail route catalog",
	Long: `trailctl runs offline maintenance against the route database: computing stored
elevation profiles from terrain data and importing new routes from GPX tracks.

Connection settings are read from the same TRAILVIEW_* environment as the server.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it until done or
// interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(importCmd)
}

// env bundles what every subcommand needs.
type env struct {
	cfg  *config.ServiceConfig
	log  *zap.Logger
	db   *gorm.DB
	repo *repository.GormRouteRepository
}

func setup() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.NewNamed(cfg.AppEnv, "trailctl")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	db, err := database.Connect(cfg.DBConfig.DSN(), log)
	if err != nil {
		return nil, err
	}
	repo := repository.NewGormRouteRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to run auto-migration: %w", err)
	}
	return &env{cfg: cfg, log: log, db: db, repo: repo}, nil
}

func (e *env) close() {
	if sqlDB, err := e.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = e.log.Sync()
}
