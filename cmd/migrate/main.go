package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/seanankenbruck/qsar-chat/internal/config"
	"github.com/seanankenbruck/qsar-chat/internal/database"
)

func main() {
	var configFile string
	var down int

	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply or roll back the query history schema",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configFile, down)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "optional YAML config file")
	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migrations instead of migrating up")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := cmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string, down int) error {
	loader, err := config.NewDefaultLoader(configFile)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	pg := database.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
	}

	fmt.Println("=== Running Database Migrations ===")
	fmt.Printf("Connecting to database: %s@%s:%s/%s\n", pg.Username, pg.Host, pg.Port, pg.Database)

	// Verify database connectivity
	db, err := database.OpenWithRetry(ctx, pg, database.DefaultRetryConfig)
	if err != nil {
		return fmt.Errorf("database connectivity failed: %w", err)
	}
	db.Close()
	fmt.Println("✓ Database connectivity verified")

	migrationConfig := database.MigrationConfig{
		DatabaseURL:    pg.URL(),
		MigrationsPath: cfg.Database.MigrationsPath,
	}

	if down > 0 {
		if err := database.RollbackMigrations(migrationConfig, down); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		fmt.Printf("✓ Rolled back %d migration(s)\n", down)
	} else {
		if err := database.RunMigrations(migrationConfig); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Println("✓ Database migrations completed successfully!")
	}

	version, dirty, err := database.MigrationVersion(migrationConfig)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	fmt.Printf("Schema version: %d (dirty: %t)\n", version, dirty)
	return nil
}
