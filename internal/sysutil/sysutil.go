// Package sysutil holds the process bootstrap shared by the server and the
// boxctl maintenance tool: logger setup, environment helpers, and opening the
// configured datastore.
package sysutil

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/suggestion-box/internal/config"
	"github.com/tbourn/suggestion-box/internal/repo"
)

// SetLogLevel configures the global zerolog level based on a string value.
// Supported values (case-insensitive): debug, info, warn, error, fatal, panic.
func SetLogLevel(lvl string) {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "panic":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// InitLogger sets the global level and installs a global logger writing to w.
// Pretty selects the human-readable console writer used in development.
func InitLogger(w io.Writer, level string, pretty bool) zerolog.Logger {
	SetLogLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	l := zerolog.New(w).With().Timestamp().Logger()
	log.Logger = l
	return l
}

// IsTruthy reports whether an environment variable string should be considered true.
// Accepted values (case-insensitive): "1", "true", "yes", "y", "on".
func IsTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

// FirstNonEmpty returns the first non-blank string from a variadic list.
// If all values are blank, it returns "".
func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// DataSource returns the driver and DSN selected by the datastore config.
func DataSource(db config.DBConfig) (driver, dsn string) {
	if db.Driver == "postgres" {
		return db.Driver, db.URL
	}
	return "sqlite", db.Path
}

// Pool converts the datastore config into repo pool options.
func Pool(db config.DBConfig) repo.PoolOptions {
	return repo.PoolOptions{
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxIdleTime: db.ConnMaxIdleTime,
		ConnMaxLifetime: db.ConnMaxLifetime,
	}
}

// OpenStore opens the configured datastore, registers query tracing, and,
// when migrate is set, applies the schema and seeds the given categories.
func OpenStore(ctx context.Context, db config.DBConfig, categories []string, migrate bool) (*gorm.DB, error) {
	driver, dsn := DataSource(db)
	gdb, err := repo.Open(driver, dsn, Pool(db))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := repo.Instrument(gdb); err != nil {
		return nil, fmt.Errorf("instrument: %w", err)
	}
	if !migrate {
		return gdb, nil
	}
	if err := repo.AutoMigrate(gdb); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := repo.SeedCategories(ctx, gdb, categories); err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}
	return gdb, nil
}

// CloseStore releases the pool behind db.
func CloseStore(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
