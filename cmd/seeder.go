package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/frahmantamala/user-management/internal"
	"github.com/frahmantamala/user-management/internal/auth"
	"github.com/frahmantamala/user-management/internal/user"
	userPostgres "github.com/frahmantamala/user-management/internal/user/postgres"
	"github.com/frahmantamala/user-management/pkg/logger"
	"github.com/spf13/cobra"
)

// sampleUsers are created with the default role next to the admin.
var sampleUsers = []user.CreateUserDTO{
	{Username: "fadhil", Password: "password"},
	{Username: "padil", Password: "password"},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the roles, permissions, an admin account and sample users for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		lg := logger.Init(logger.Options{
			Level:  cfg.Observability.Logging.Level,
			Format: cfg.Observability.Logging.Format,
		})

		storage, err := openStorage(ctx, cfg.Database, lg)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer storage.Close()
		if storage.Gorm == nil {
			log.Fatalf("seed needs a sql database, got driver %q", cfg.Database.Driver)
		}

		if err := userPostgres.SeedCatalog(ctx, storage.Gorm); err != nil {
			log.Fatalf("failed to seed roles and permissions: %v", err)
		}
		fmt.Println("Seeded roles and permissions")

		if clearData {
			if err := userPostgres.ClearUsers(ctx, storage.Gorm); err != nil {
				log.Fatalf("failed to clear users: %v", err)
			}
			fmt.Println("Cleared existing users")
		}

		svc := user.NewService(storage.Repo, auth.NewBcryptHasher(cfg.Security.BCryptCost), nil, user.RoleName(cfg.Security.DefaultRole), lg)

		admin := cfg.Security.BootstrapAdmin
		if admin.Username == "" {
			admin.Username, admin.Password = "admin", "password"
		}
		u, created, err := svc.EnsureAdmin(ctx, admin.Username, admin.Password)
		if err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
		if created {
			fmt.Println("Seeded admin user:", u.Username)
		} else {
			fmt.Println("admin user already exists:", u.Username)
		}

		for _, dto := range sampleUsers {
			u, err := svc.Create(ctx, dto)
			switch {
			case errors.Is(err, internal.ErrUserAlreadyExists):
				fmt.Println("user already exists:", dto.Username)
			case err != nil:
				log.Fatalf("failed to seed user %s: %v", dto.Username, err)
			default:
				fmt.Printf("Seeded user %s with roles %v\n", u.Username, u.RoleNames())
			}
		}
	},
}
