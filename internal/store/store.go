// Package store implements core.Store over SQLite, PostgreSQL and memory.
//
// SQLite is the default single-user backend. Postgres serves shared
// installs. Memory backs dry runs and tests. Each backend owns one
// connection for the life of a command and applies its embedded
// migrations on open.
package store

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/JonMunkholm/inventory/internal/config"
	"github.com/JonMunkholm/inventory/internal/core"
	"github.com/JonMunkholm/inventory/internal/logging"
)

// Store is a record store that holds a connection until closed.
type Store interface {
	core.Store
	io.Closer
}

// Open connects to the configured backend and migrates it.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	log := logging.FromContext(ctx)

	switch strings.ToLower(cfg.Driver) {
	case config.DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Debug("store opened", "driver", "sqlite", "path", cfg.Path)
		return s, nil

	case config.DriverPostgres:
		s, err := OpenPostgres(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		log.Debug("store opened", "driver", "postgres", "database", databaseName(cfg.URL))
		return s, nil

	case config.DriverMemory:
		log.Debug("store opened", "driver", "memory")
		return NewMemory(), nil

	default:
		return nil, errors.Newf("unknown storage driver %q", cfg.Driver)
	}
}

// databaseName extracts the database name from a connection URL for logging.
func databaseName(dbURL string) string {
	if u, err := url.Parse(dbURL); err == nil && u.Path != "" {
		return strings.TrimPrefix(u.Path, "/")
	}
	return "(unknown)"
}
