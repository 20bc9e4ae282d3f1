package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/frahmantamala/user-management/db/migrations"
	"github.com/frahmantamala/user-management/internal"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run db migration files under db/migrations directory",
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "", "read sql migrations from this directory instead of the embedded set")
}

func runMigration(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Database.Driver != internal.DriverPostgres {
		return fmt.Errorf("migrate needs database.driver %q, got %q", internal.DriverPostgres, cfg.Database.Driver)
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		log.Fatalf("goose: failed to open DB: %v\n", err)
	}
	defer db.Close()
	goose.SetTableName("schema_migrations")

	dir := migrateDir
	if dir == "" {
		goose.SetBaseFS(migrations.FS)
		dir = "."
	}

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, db, dir); err != nil {
		log.Fatalf("goose %s: %v", command, err)
	}

	return nil
}
