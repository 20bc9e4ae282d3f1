package internal

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
}

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"required,oneof=memory postgres sqlite"`
	Source          string        `mapstructure:"source" validate:"required_unless=Driver memory"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
}

type SecurityConfig struct {
	AccessTokenSecret     string               `mapstructure:"access_token_secret" validate:"required,min=16"`
	RefreshTokenSecret    string               `mapstructure:"refresh_token_secret" validate:"required,min=16,nefield=AccessTokenSecret"`
	AccessTokenDuration   time.Duration        `mapstructure:"access_token_duration" validate:"required,min=1s"`
	RefreshTokenDuration  time.Duration        `mapstructure:"refresh_token_duration" validate:"required,gtfield=AccessTokenDuration"`
	BCryptCost            int                  `mapstructure:"bcrypt_cost" validate:"required,min=10,max=15"`
	Issuer                string               `mapstructure:"issuer"`
	DefaultRole           string               `mapstructure:"default_role" validate:"required,oneof=admin user"`
	EnforceReadPermission bool                 `mapstructure:"enforce_read_permission"`
	BootstrapAdmin        BootstrapAdminConfig `mapstructure:"bootstrap_admin"`
}

type BootstrapAdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password" validate:"required_with=Username"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// Defaults mirrors config.yml so partially populated configs still validate.
func Defaults() map[string]any {
	return map[string]any{
		"http_server.port":                20001,
		"http_server.read_header_timeout": 5 * time.Second,
		"http_server.read_timeout":        10 * time.Second,
		"http_server.write_timeout":       10 * time.Second,
		"http_server.idle_timeout":        60 * time.Second,
		"http_server.allowed_origins":     []string{"*"},

		"database.driver":             DriverMemory,
		"database.max_open_conns":     10,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  time.Hour,
		"database.conn_max_idle_time": 15 * time.Minute,
		"database.query_timeout":      5 * time.Second,

		"security.access_token_duration":  15 * time.Minute,
		"security.refresh_token_duration": 7 * 24 * time.Hour,
		"security.bcrypt_cost":            10,
		"security.default_role":           "user",

		"observability.metrics.enabled": true,
		"observability.metrics.path":    "/metrics",
		"observability.logging.level":   "info",
		"observability.logging.format":  "text",
	}
}

// LoadConfigFromEnv builds the config from plain environment variables, used
// for container deployments where no config.yml is mounted.
func LoadConfigFromEnv() *Config {
	d := Defaults()
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", d["http_server.port"].(int)),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", d["http_server.read_header_timeout"].(time.Duration)),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", d["http_server.read_timeout"].(time.Duration)),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", d["http_server.write_timeout"].(time.Duration)),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", d["http_server.idle_timeout"].(time.Duration)),
			AllowedOrigins:    getEnvAsSlice("CORS_ALLOWED_ORIGINS", d["http_server.allowed_origins"].([]string)),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DATABASE_DRIVER", d["database.driver"].(string)),
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", d["database.max_open_conns"].(int)),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", d["database.max_idle_conns"].(int)),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", d["database.conn_max_lifetime"].(time.Duration)),
			ConnMaxIdleTime: getEnvAsDuration("DATABASE_CONN_MAX_IDLE_TIME", d["database.conn_max_idle_time"].(time.Duration)),
			QueryTimeout:    getEnvAsDuration("DATABASE_QUERY_TIMEOUT", d["database.query_timeout"].(time.Duration)),
		},
		Security: SecurityConfig{
			AccessTokenSecret:     getEnv("JWT_SECRET", ""),
			RefreshTokenSecret:    getEnv("REFRESH_JWT_SECRET", ""),
			AccessTokenDuration:   getEnvAsDuration("ACCESS_TOKEN_EXPIRATION", d["security.access_token_duration"].(time.Duration)),
			RefreshTokenDuration:  getEnvAsDuration("REFRESH_TOKEN_EXPIRATION", d["security.refresh_token_duration"].(time.Duration)),
			BCryptCost:            getEnvAsInt("BCRYPT_COST", d["security.bcrypt_cost"].(int)),
			Issuer:                getEnv("JWT_ISSUER", ""),
			DefaultRole:           getEnv("DEFAULT_ROLE", d["security.default_role"].(string)),
			EnforceReadPermission: getEnvAsBool("ENFORCE_READ_PERMISSION", false),
			BootstrapAdmin: BootstrapAdminConfig{
				Username: getEnv("ADMIN_USERNAME", ""),
				Password: getEnv("ADMIN_PASSWORD", ""),
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("METRICS_ENABLED", d["observability.metrics.enabled"].(bool)),
				Path:    getEnv("METRICS_PATH", d["observability.metrics.path"].(string)),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", d["observability.logging.level"].(string)),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}
	return splitList(value)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ParseDuration accepts time.ParseDuration syntax plus a whole-day suffix
// ("7d"), which is how token lifetimes are usually written in env files.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day duration %q: %w", s, err)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// ----------------- VALIDATION -----------------

var configValidator = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	var errs []string

	if err := configValidator.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

// DecodeHook lets config.yml use the same duration forms as the
// environment ("7d", "900") and comma separated lists.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(durationHook, listHook)
}

func durationHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	return ParseDuration(reflect.ValueOf(data).String())
}

func listHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]string(nil)) {
		return data, nil
	}
	return splitList(reflect.ValueOf(data).String()), nil
}
