package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/user-management/internal"
	"github.com/frahmantamala/user-management/internal/transport/rest"
	"github.com/frahmantamala/user-management/internal/user"
	"github.com/frahmantamala/user-management/internal/user/memory"
	userPostgres "github.com/frahmantamala/user-management/internal/user/postgres"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Storage is the user repository selected by database.driver plus what the
// health endpoint should ping.
type Storage struct {
	Repo       user.Repository
	Gorm       *gorm.DB
	Components map[string]rest.Pinger
	close      func() error
}

func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func openStorage(ctx context.Context, cfg internal.DatabaseConfig, logger *slog.Logger) (*Storage, error) {
	switch cfg.Driver {
	case internal.DriverMemory, "":
		logger.Warn("using in-memory user store; data is lost on restart")
		return &Storage{Repo: memory.NewStore()}, nil

	case internal.DriverPostgres:
		db, err := initDB(cfg)
		if err != nil {
			return nil, err
		}
		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), gormConfig())
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to open gorm on postgres: %w", err)
		}
		return &Storage{
			Repo:       userPostgres.NewUserRepository(gdb, cfg.QueryTimeout),
			Gorm:       gdb,
			Components: map[string]rest.Pinger{"postgres": db},
			close:      db.Close,
		}, nil

	case internal.DriverSQLite:
		gdb, err := gorm.Open(sqlite.Open(cfg.Source), gormConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
		if err := userPostgres.AutoMigrate(gdb); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		if err := userPostgres.SeedCatalog(ctx, gdb); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return &Storage{
			Repo:       userPostgres.NewUserRepository(gdb, cfg.QueryTimeout),
			Gorm:       gdb,
			Components: map[string]rest.Pinger{"sqlite": sqlDB},
			close:      sqlDB.Close,
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
	}
}
