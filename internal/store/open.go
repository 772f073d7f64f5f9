package store

import (
	"context"
	"fmt"
)

// Supported store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures a Store implementation.
type Options struct {
	Driver      string
	SQLitePath  string
	PostgresDSN string
}

// Open creates the Store named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverSQLite:
		return NewSQLiteStore(ctx, opts.SQLitePath)
	case DriverPostgres:
		return NewPostgresStore(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store driver: %s", opts.Driver)
	}
}
