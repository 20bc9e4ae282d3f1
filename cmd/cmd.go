package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/frahmantamala/user-management/internal"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	clearData  bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "user-management",
	Short: "User Management",
	Long:  `Authentication and user administration behind role and permission checks.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// envBindings maps config keys to the plain variable names used in .env
// files and container deployments.
var envBindings = map[string]string{
	"http_server.port":                  "PORT",
	"database.driver":                   "DATABASE_DRIVER",
	"database.source":                   "DATABASE_URL",
	"security.access_token_secret":      "JWT_SECRET",
	"security.refresh_token_secret":     "REFRESH_JWT_SECRET",
	"security.access_token_duration":    "ACCESS_TOKEN_EXPIRATION",
	"security.refresh_token_duration":   "REFRESH_TOKEN_EXPIRATION",
	"security.bcrypt_cost":              "BCRYPT_COST",
	"security.issuer":                   "JWT_ISSUER",
	"security.default_role":             "DEFAULT_ROLE",
	"security.bootstrap_admin.username": "ADMIN_USERNAME",
	"security.bootstrap_admin.password": "ADMIN_PASSWORD",
	"observability.logging.level":       "LOG_LEVEL",
	"observability.logging.format":      "LOG_FORMAT",
}

func loadConfig(path string) (*internal.Config, error) {
	// .env is optional; real environment variables always win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	// Check if we're running in Docker environment
	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		// Load configuration from environment variables (Docker deployment)
		cfg := internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		return cfg, nil
	}

	// Load configuration from file (development)
	v := viper.New()
	for key, value := range internal.Defaults() {
		v.SetDefault(key, value)
	}
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, "ENV_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(internal.DecodeHook())); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	return &cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing config.yml")
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing users before seeding")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}
