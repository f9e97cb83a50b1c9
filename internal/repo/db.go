// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for
// SQLite (pure Go driver) and PostgreSQL, schema migrations, category
// seeding, and scoped connection acquisition.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/suggestion-box/internal/domain"
)

// ErrPoolTimeout is returned by WithConn when no pooled connection became
// available within the acquisition timeout.
var ErrPoolTimeout = errors.New("connection pool timeout")

// PoolOptions sizes the database/sql pool behind a *gorm.DB.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

// DefaultPool mirrors the defaults of the DB_* environment variables.
var DefaultPool = PoolOptions{
	MaxOpenConns:    10,
	MaxIdleConns:    10,
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
}

// sqliteParams are applied by the driver on every new connection, so they
// hold for the whole pool and not only for the connection that ran a PRAGMA.
// Transactions begin IMMEDIATE so read-then-write transactions wait on the
// busy timeout instead of failing with a stale WAL snapshot.
var sqliteParams = []string{
	"_pragma=journal_mode(WAL)",
	"_pragma=synchronous(NORMAL)",
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_txlock=immediate",
}

// Open dispatches on driver ("sqlite" or "postgres").
func Open(driver, dsn string, pool PoolOptions) (*gorm.DB, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(dsn, pool)
	case "postgres":
		return OpenPostgres(dsn, pool)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

// OpenSQLite opens (or creates) a SQLite database with per-connection PRAGMAs
// and the given pool sizing.
func OpenSQLite(path string, pool PoolOptions) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if !strings.HasPrefix(path, "file:") {
		if dir := filepath.Dir(path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, err
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := applyPool(db, pool); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenPostgres opens a PostgreSQL database through pgx.
func OpenPostgres(dsn string, pool PoolOptions) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	if err := applyPool(db, pool); err != nil {
		return nil, err
	}
	return db, nil
}

func sqliteDSN(path string) string {
	var b strings.Builder
	b.WriteString(path)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, p := range sqliteParams {
		b.WriteString(sep)
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

func applyPool(db *gorm.DB, pool PoolOptions) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	return nil
}

// Instrument registers the OpenTelemetry GORM plugin so every statement gets
// a span under the request's trace.
func Instrument(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// AutoMigrate creates or updates the schema. Parents are listed before
// children so foreign keys resolve.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Category{},
		&domain.Suggestion{},
		&domain.Vote{},
		&domain.Reply{},
		&domain.Idempotency{},
	)
}

// MaxCategoryRunes is the width of the categories.name column.
const MaxCategoryRunes = 64

// SeedCategories inserts any missing category names. Existing names are left
// untouched, so it is safe to run on every start. A name wider than
// MaxCategoryRunes fails the whole call before anything is written.
func SeedCategories(ctx context.Context, db *gorm.DB, names []string) error {
	if len(names) == 0 {
		return nil
	}
	rows := make([]domain.Category, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if utf8.RuneCountInString(n) > MaxCategoryRunes {
			return fmt.Errorf("category name longer than %d characters: %.20q", MaxCategoryRunes, n)
		}
		rows = append(rows, domain.Category{Name: n})
	}
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows).Error
}

// WithConn runs fn on a GORM session pinned to one pooled connection.
//
// The connection is acquired within timeout and released when fn returns, on
// every path. If the pool stays exhausted for the whole timeout while ctx is
// still live, ErrPoolTimeout is returned and fn is not called. Transactions
// started inside fn (tx.Transaction) run on the same connection.
func WithConn(ctx context.Context, db *gorm.DB, timeout time.Duration, fn func(tx *gorm.DB) error) error {
	sqlDB, err := db.DB()
	if err != nil {
		// Already inside a transaction: the connection is held by the caller.
		return fn(db.WithContext(ctx))
	}

	acqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := sqlDB.Conn(acqCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrPoolTimeout
		}
		return err
	}
	defer conn.Close()

	sess := db.Session(&gorm.Session{NewDB: true, Context: ctx})
	sess.Statement.ConnPool = conn
	return fn(sess)
}
