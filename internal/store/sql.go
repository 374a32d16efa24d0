package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"emperror.dev/errors"
	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/naka-gawa/github-contributors/internal/domain"
)

const (
	repositoryTable = "github_repository"
	pagesTable      = "github_contributors"
)

// SQLStore keeps nodes in two tables keyed by node id. The puts of a run
// share one transaction that starts by emptying both tables.
type SQLStore struct {
	db      *sql.DB
	tx      *sql.Tx
	backend Backend
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var _ Store = (*SQLStore)(nil)

// OpenSQL connects to dsn and creates the node tables if needed.
func OpenSQL(ctx context.Context, backend Backend, dsn string) (*SQLStore, error) {
	var driverName string
	switch backend {
	case SQLiteBackend:
		driverName = "sqlite"
	case PostgreSQLBackend:
		// dsn: host=localhost port=5432 user=postgres dbname=site
		driverName = "pgx"
	case MySQLBackend:
		// dsn: user:password@tcp(host:port)/dbname
		driverName = "mysql"
	default:
		return nil, errors.Errorf("unsupported SQL backend %q", backend)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.WrapIff(err, "failed to open %s store", backend)
	}
	if backend == SQLiteBackend {
		// Avoid "database is locked" with a single writer.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.WrapIff(err, "failed to connect to %s store", backend)
	}

	s := &SQLStore{db: db, backend: backend}
	for _, query := range s.createTableQueries() {
		if _, err := db.ExecContext(ctx, query); err != nil {
			_ = db.Close()
			return nil, errors.Wrap(err, "failed to create node tables")
		}
	}
	return s, nil
}

func (s *SQLStore) createTableQueries() []string {
	text, key := "TEXT", "TEXT"
	if s.backend == MySQLBackend {
		text, key = "LONGTEXT", "VARCHAR(64)"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id %s PRIMARY KEY,
			repository %s NOT NULL,
			branch %s NOT NULL,
			root %s NOT NULL,
			content_digest %s NOT NULL
		)`, repositoryTable, key, text, text, text, text),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id %s PRIMARY KEY,
			path %s NOT NULL,
			contributors %s NOT NULL,
			content_digest %s NOT NULL
		)`, pagesTable, key, text, text, text),
	}
}

// upsertQuery returns the backend-specific insert-or-replace for table.
func (s *SQLStore) upsertQuery(table string, columns ...string) string {
	var cols, placeholders, updates string
	for i, c := range columns {
		if i > 0 {
			cols += ", "
			placeholders += ", "
		}
		cols += c
		if s.backend == PostgreSQLBackend {
			placeholders += fmt.Sprintf("$%d", i+1)
		} else {
			placeholders += "?"
		}
		if i == 0 {
			continue
		}
		if updates != "" {
			updates += ", "
		}
		switch s.backend {
		case MySQLBackend:
			updates += fmt.Sprintf("%s = new.%s", c, c)
		default:
			updates += fmt.Sprintf("%s = excluded.%s", c, c)
		}
	}

	switch s.backend {
	case MySQLBackend:
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) AS new ON DUPLICATE KEY UPDATE %s", table, cols, placeholders, updates)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s", table, cols, placeholders, columns[0], updates)
	}
}

// begin returns the run's transaction, opening it and clearing the previous
// run's nodes on the first call.
func (s *SQLStore) begin(ctx context.Context) (*sql.Tx, error) {
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	for _, table := range []string{repositoryTable, pagesTable} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			_ = tx.Rollback()
			return nil, errors.WrapIff(err, "failed to clear %s", table)
		}
	}
	s.tx = tx
	return tx, nil
}

// conn reads through the open transaction so a run sees its own puts.
func (s *SQLStore) conn() querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *SQLStore) PutRepository(ctx context.Context, node *domain.RepositoryNode) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	query := s.upsertQuery(repositoryTable, "id", "repository", "branch", "root", "content_digest")
	if _, err := tx.ExecContext(ctx, query, node.ID, node.Repository, node.Branch, node.Root, node.Internal.ContentDigest); err != nil {
		return errors.WrapIff(err, "failed to store repository node %s", node.Repository)
	}
	return nil
}

func (s *SQLStore) PutPageContributors(ctx context.Context, node *domain.PageContributorsNode) error {
	contributors := node.Contributors
	if contributors == nil {
		contributors = []domain.Contributor{}
	}
	data, err := json.Marshal(contributors)
	if err != nil {
		return errors.Wrap(err, "failed to encode contributors")
	}
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	query := s.upsertQuery(pagesTable, "id", "path", "contributors", "content_digest")
	if _, err := tx.ExecContext(ctx, query, node.ID, node.Path, string(data), node.Internal.ContentDigest); err != nil {
		return errors.WrapIff(err, "failed to store contributors node for %q", node.Path)
	}
	return nil
}

func (s *SQLStore) Repositories(ctx context.Context) ([]domain.RepositoryNode, error) {
	query := fmt.Sprintf("SELECT id, repository, branch, root, content_digest FROM %s ORDER BY repository", repositoryTable)
	rows, err := s.conn().QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query repository nodes")
	}
	defer func() { _ = rows.Close() }()

	var nodes []domain.RepositoryNode
	for rows.Next() {
		n := domain.RepositoryNode{Internal: domain.Internal{Type: domain.RepositoryNodeType}}
		if err := rows.Scan(&n.ID, &n.Repository, &n.Branch, &n.Root, &n.Internal.ContentDigest); err != nil {
			return nil, errors.Wrap(err, "failed to scan repository node")
		}
		nodes = append(nodes, n)
	}
	return nodes, errors.Wrap(rows.Err(), "failed to read repository nodes")
}

func (s *SQLStore) Pages(ctx context.Context) ([]domain.PageContributorsNode, error) {
	query := fmt.Sprintf("SELECT id, path, contributors, content_digest FROM %s ORDER BY path", pagesTable)
	rows, err := s.conn().QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query contributors nodes")
	}
	defer func() { _ = rows.Close() }()

	var nodes []domain.PageContributorsNode
	for rows.Next() {
		n := domain.PageContributorsNode{Internal: domain.Internal{Type: domain.PageContributorsNodeType}}
		var contributors string
		if err := rows.Scan(&n.ID, &n.Path, &contributors, &n.Internal.ContentDigest); err != nil {
			return nil, errors.Wrap(err, "failed to scan contributors node")
		}
		if err := json.Unmarshal([]byte(contributors), &n.Contributors); err != nil {
			return nil, errors.WrapIff(err, "failed to decode contributors of %q", n.Path)
		}
		nodes = append(nodes, n)
	}
	return nodes, errors.Wrap(rows.Err(), "failed to read contributors nodes")
}

// Commit makes the run's nodes visible to other readers.
func (s *SQLStore) Commit(context.Context) error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	return errors.Wrap(err, "failed to commit nodes")
}

// Close rolls back uncommitted puts and closes the database.
func (s *SQLStore) Close() error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
