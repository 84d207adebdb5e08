package kv

import (
	"context"
	"fmt"
	"time"
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// ValidBackends are the allowed backend names.
var ValidBackends = map[string]bool{
	BackendSQLite:   true,
	BackendFile:     true,
	BackendMemory:   true,
	BackendPostgres: true,
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	Path    string // sqlite and file backends
	DSN     string // postgres backend
	Timeout time.Duration
}

// Open builds the configured backend wrapped with a per-call timeout.
func Open(ctx context.Context, opts Options) (Store, error) {
	var (
		s   Store
		err error
	)
	switch opts.Backend {
	case BackendSQLite, "":
		s, err = NewSQLiteStore(opts.Path)
	case BackendFile:
		s, err = NewFileStore(opts.Path)
	case BackendMemory:
		s = NewMemoryStore()
	case BackendPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres backend requires a dsn")
		}
		s, err = NewPostgresStore(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unknown backend %q (valid: sqlite, file, memory, postgres)", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return WithTimeout(s, opts.Timeout), nil
}
