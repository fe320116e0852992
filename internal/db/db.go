// filepath: internal/db/db.go
// Package db supplies the shared database handle. Handles are cached
// process-wide per driver+DSN, so every request in the process reuses the
// same connection pool.
package db

import (
	"database/sql"
	"fmt"
	"sync"

	"sqlgrid/internal/config"
	"sqlgrid/internal/logging"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"         // postgres driver
	"github.com/patrickmn/go-cache"
	_ "modernc.org/sqlite" // sqlite driver
)

// Conn bundles a database handle with the statement builder configured for
// the driver's placeholder format.
type Conn struct {
	DB      *sql.DB
	Builder squirrel.StatementBuilderType
	Driver  string
}

// Returning reports whether the driver needs INSERT ... RETURNING to obtain
// generated keys (lib/pq does not implement LastInsertId).
func (c *Conn) Returning() bool {
	return c.Driver == "postgres"
}

var (
	mu      sync.Mutex
	handles = cache.New(cache.NoExpiration, cache.NoExpiration)
)

// Open returns the shared handle for the configured database, opening it on
// first use.
func Open(cfg *config.Config) (*Conn, error) {
	mu.Lock()
	defer mu.Unlock()

	key := cfg.Database.Driver + "|" + cfg.Database.DSN
	if cached, ok := handles.Get(key); ok {
		return cached.(*Conn), nil
	}

	driverName, placeholder, err := driverSettings(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(driverName, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn := &Conn{
		DB:      sqlDB,
		Builder: squirrel.StatementBuilder.PlaceholderFormat(placeholder),
		Driver:  cfg.Database.Driver,
	}
	handles.Set(key, conn, cache.NoExpiration)
	logging.Log.Infof("Opened %s database handle (%s)", cfg.Database.Driver, cfg.Database.DSN)
	return conn, nil
}

func driverSettings(driver string) (string, squirrel.PlaceholderFormat, error) {
	switch driver {
	case "sqlite":
		return "sqlite", squirrel.Question, nil
	case "postgres":
		return "postgres", squirrel.Dollar, nil
	default:
		return "", nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
