// Package store persists the nodes produced by a sourcing run so the site
// generator can read them.
package store

import (
	"context"
	"strings"

	"emperror.dev/errors"

	"github.com/naka-gawa/github-contributors/internal/domain"
)

// Backend names a Store implementation.
type Backend string

const (
	JSONBackend       Backend = "json"
	SQLiteBackend     Backend = "sqlite"
	PostgreSQLBackend Backend = "postgresql"
	MySQLBackend      Backend = "mysql"
)

// Store receives the nodes of a run and reads them back for listing.
//
// The first put of a run discards the nodes of the previous run. Nothing is
// visible to other readers until Commit; closing a store with uncommitted puts
// leaves the previous run's nodes in place.
type Store interface {
	PutRepository(ctx context.Context, node *domain.RepositoryNode) error
	PutPageContributors(ctx context.Context, node *domain.PageContributorsNode) error
	Repositories(ctx context.Context) ([]domain.RepositoryNode, error)
	Pages(ctx context.Context) ([]domain.PageContributorsNode, error)
	Commit(ctx context.Context) error
	Close() error
}

// ParseBackend accepts the backend names used in configuration.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return JSONBackend, nil
	case "sqlite", "sqlite3":
		return SQLiteBackend, nil
	case "postgresql", "postgres", "pg":
		return PostgreSQLBackend, nil
	case "mysql":
		return MySQLBackend, nil
	default:
		return "", errors.Errorf("unsupported store backend %q (must be json, sqlite, postgresql or mysql)", s)
	}
}

// Open returns the Store for backend. dsn is a file path for json and sqlite
// and a driver connection string otherwise.
func Open(ctx context.Context, backend Backend, dsn string) (Store, error) {
	switch backend {
	case JSONBackend:
		return OpenJSON(dsn)
	case SQLiteBackend, PostgreSQLBackend, MySQLBackend:
		return OpenSQL(ctx, backend, dsn)
	default:
		return nil, errors.Errorf("unsupported store backend %q", backend)
	}
}
