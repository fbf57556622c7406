package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds configuration for the journal database.
type Config struct {
	// Driver is "sqlite" (default) or "postgres".
	Driver string

	// Path is the SQLite database file. ":memory:" is accepted.
	Path string

	// DSN is the PostgreSQL connection string.
	DSN string

	// Connection pool settings for PostgreSQL. SQLite always uses a single
	// connection.
	MaxIdleConns    int           // default: 2
	MaxOpenConns    int           // default: 5
	ConnMaxLifetime time.Duration // default: 5 minutes
}

// Connect opens the journal database and migrates its schema.
func Connect(cfg Config, log hclog.Logger) (*gorm.DB, error) {
	gormConfig := &gorm.Config{}
	if log != nil {
		gormConfig.Logger = NewGormLogger(log.Named("gorm"))
	} else {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("journal path is required for the sqlite driver")
		}
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create journal directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.Path)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("journal dsn is required for the postgres driver")
		}
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported journal driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}

	if cfg.Driver == DriverPostgres {
		maxIdleConns := cfg.MaxIdleConns
		if maxIdleConns == 0 {
			maxIdleConns = 2
		}
		maxOpenConns := cfg.MaxOpenConns
		if maxOpenConns == 0 {
			maxOpenConns = 5
		}
		connMaxLifetime := cfg.ConnMaxLifetime
		if connMaxLifetime == 0 {
			connMaxLifetime = 5 * time.Minute
		}
		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetConnMaxLifetime(connMaxLifetime)
	} else {
		// Every connection to ":memory:" is a separate database.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("failed to migrate journal schema: %w", err)
	}

	if log != nil {
		log.Debug("opened journal database", "driver", driverName(cfg.Driver), "path", cfg.Path)
	}

	return db, nil
}

func driverName(d string) string {
	if d == "" {
		return DriverSQLite
	}
	return d
}
