// Package gormexec runs compiled filter chains through GORM.
//
// Scope adapts a chain to GORM's scope convention so it composes with
// ordinary model queries:
//
//	var people []Person
//	err := db.Scopes(gormexec.Scope("my_models", "id", filters)).Find(&people).Error
//
// Engine implements exec.Engine over a *gorm.DB for the sqlite and postgres
// dialects.
package gormexec

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/roach88/filterchain/internal/chain"
	"github.com/roach88/filterchain/internal/store"
)

// Supported drivers for Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Scope returns a GORM scope that restricts the query to rows satisfying
// every filter. Compile errors are recorded on the *gorm.DB.
func Scope(table, pk string, filters []chain.FilterSpec) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		fragment, err := chain.Compile(table, pk, filters)
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		return db.Joins(fragment)
	}
}

// Engine executes fragments on a *gorm.DB.
type Engine struct {
	db *gorm.DB
}

// New wraps an existing *gorm.DB.
func New(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

// Open connects with the named driver. The sqlite driver uses the store's
// REGEXP-enabled database/sql driver; dsn is a file path or ":memory:".
func Open(driver, dsn string) (*Engine, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		store.RegisterDriver()
		dialector = sqlite.New(sqlite.Config{DriverName: store.DriverName, DSN: dsn})
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q: must be %s or %s", driver, DriverSQLite, DriverPostgres)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	return &Engine{db: db}, nil
}

// DB returns the underlying *gorm.DB.
func (e *Engine) DB() *gorm.DB {
	return e.db
}

// Close closes the underlying connection pool.
func (e *Engine) Close() error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Find returns the rows of table restricted by fragment in primary key order.
func (e *Engine) Find(ctx context.Context, table, pk, fragment string) ([]map[string]any, error) {
	var rows []map[string]any
	if err := e.db.WithContext(ctx).Raw(store.FindSQL(table, pk, fragment)).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("find %s: %w", table, err)
	}

	if rows == nil {
		rows = []map[string]any{}
	}
	for _, row := range rows {
		for k, v := range row {
			row[k] = normalize(v)
		}
	}
	return rows, nil
}

// Count returns the number of rows of table restricted by fragment.
func (e *Engine) Count(ctx context.Context, table, fragment string) (int64, error) {
	var n int64
	if err := e.db.WithContext(ctx).Raw(store.CountSQL(table, fragment)).Scan(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// normalize flattens driver-specific representations to string and int64.
func normalize(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case sql.RawBytes:
		return string(val)
	case int:
		return int64(val)
	case int32:
		return int64(val)
	default:
		return v
	}
}
