package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-contributors/internal/domain"
)

var alice = domain.Contributor{Date: "2024-03-01T10:00:00Z", Login: "alice", Name: "Alice", AvatarURL: "https://avatars/alice"}

func TestParseBackend(t *testing.T) {
	testCases := map[string]Backend{
		"":         JSONBackend,
		"json":     JSONBackend,
		"SQLite":   SQLiteBackend,
		"sqlite3":  SQLiteBackend,
		"postgres": PostgreSQLBackend,
		"mysql":    MySQLBackend,
	}
	for in, expected := range testCases {
		backend, err := ParseBackend(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, backend, in)
	}

	_, err := ParseBackend("mongodb")
	assert.Error(t, err)
}

// exerciseStore runs the same put/read sequence against any backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	repo := domain.NewRepositoryNode("adobe", "aio", "main", "/site")
	require.NoError(t, s.PutRepository(ctx, repo))

	index := domain.NewPageContributorsNode("/site/src/pages/index.md", []domain.Contributor{alice})
	guide := domain.NewPageContributorsNode("/site/src/pages/guide.md", nil)
	require.NoError(t, s.PutPageContributors(ctx, index))
	require.NoError(t, s.PutPageContributors(ctx, guide))

	// Putting the same node again replaces it.
	require.NoError(t, s.PutPageContributors(ctx, index))

	repos, err := s.Repositories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.RepositoryNode{*repo}, repos)

	pages, err := s.Pages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.ElementsMatch(t, []domain.PageContributorsNode{*index, *guide}, pages)
}

// sourceRun puts a repository node and one empty page node per path, then
// commits, the way one sourcing run does.
func sourceRun(t *testing.T, s Store, paths ...string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.PutRepository(ctx, domain.NewRepositoryNode("adobe", "aio", "main", "/site")))
	for _, path := range paths {
		require.NoError(t, s.PutPageContributors(ctx, domain.NewPageContributorsNode(path, nil)))
	}
	require.NoError(t, s.Commit(ctx))
}

func pagePaths(t *testing.T, s Store) []string {
	t.Helper()
	pages, err := s.Pages(context.Background())
	require.NoError(t, err)
	paths := make([]string, 0, len(pages))
	for _, page := range pages {
		paths = append(paths, page.Path)
	}
	return paths
}

func TestJSONStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nodes.json")

	s, err := OpenJSON(path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Commit(context.Background()))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"contributors": []`)

	reopened, err := OpenJSON(path)
	require.NoError(t, err)
	pages, err := reopened.Pages(context.Background())
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	// A new run replaces the previous document instead of appending to it.
	require.NoError(t, reopened.PutRepository(context.Background(), domain.NewRepositoryNode("adobe", "other", "main", "")))
	require.NoError(t, reopened.Commit(context.Background()))
	require.NoError(t, reopened.Close())

	final, err := OpenJSON(path)
	require.NoError(t, err)
	pages, err = final.Pages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestJSONStore_CloseWithoutPutsDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.json")

	s, err := OpenJSON(path)
	require.NoError(t, err)
	require.NoError(t, s.Commit(context.Background()))
	require.NoError(t, s.Close())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestJSONStore_UncommittedRunKeepsPreviousDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.json")

	s, err := OpenJSON(path)
	require.NoError(t, err)
	sourceRun(t, s, "/site/a.md", "/site/b.md")
	require.NoError(t, s.Close())

	// A run that stops after its first put must not replace the document.
	s, err = OpenJSON(path)
	require.NoError(t, err)
	require.NoError(t, s.PutRepository(context.Background(), domain.NewRepositoryNode("adobe", "aio", "main", "/site")))
	require.NoError(t, s.Close())

	s, err = OpenJSON(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/site/a.md", "/site/b.md"}, pagePaths(t, s))
}

func TestJSONStore_InvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := OpenJSON(path)
	assert.Error(t, err)
}

func TestSQLStore_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nodes.db")

	s, err := Open(ctx, SQLiteBackend, path)
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Commit(ctx))
	require.NoError(t, s.Close())

	// Nodes survive reopening.
	s, err = Open(ctx, SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	pages, err := s.Pages(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "/site/src/pages/guide.md", pages[0].Path)
	assert.Equal(t, []domain.Contributor{}, pages[0].Contributors)
	assert.Equal(t, []domain.Contributor{alice}, pages[1].Contributors)
}

func TestSQLStore_SQLite_NewRunReplacesNodes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nodes.db")

	s, err := Open(ctx, SQLiteBackend, path)
	require.NoError(t, err)
	sourceRun(t, s, "/site/a.md", "/site/b.md")
	require.NoError(t, s.Close())

	s, err = Open(ctx, SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, s.PutRepository(ctx, domain.NewRepositoryNode("adobe", "renamed", "main", "/site")))
	require.NoError(t, s.PutPageContributors(ctx, domain.NewPageContributorsNode("/site/a.md", nil)))
	require.NoError(t, s.Commit(ctx))
	require.NoError(t, s.Close())

	s, err = Open(ctx, SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.Equal(t, []string{"/site/a.md"}, pagePaths(t, s))
	repos, err := s.Repositories(ctx)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "adobe/renamed", repos[0].Repository)
}

func TestSQLStore_SQLite_UncommittedRunIsRolledBack(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nodes.db")

	s, err := Open(ctx, SQLiteBackend, path)
	require.NoError(t, err)
	sourceRun(t, s, "/site/a.md", "/site/b.md")
	require.NoError(t, s.Close())

	s, err = Open(ctx, SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, s.PutPageContributors(ctx, domain.NewPageContributorsNode("/site/c.md", nil)))
	// The run sees its own puts before committing.
	assert.Equal(t, []string{"/site/c.md"}, pagePaths(t, s))
	require.NoError(t, s.Close())

	s, err = Open(ctx, SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.Equal(t, []string{"/site/a.md", "/site/b.md"}, pagePaths(t, s))
}

func TestSQLStore_UpsertQuery(t *testing.T) {
	testCases := []struct {
		backend  Backend
		expected string
	}{
		{
			backend:  SQLiteBackend,
			expected: "INSERT INTO t (id, a, b) VALUES (?, ?, ?) ON CONFLICT (id) DO UPDATE SET a = excluded.a, b = excluded.b",
		},
		{
			backend:  PostgreSQLBackend,
			expected: "INSERT INTO t (id, a, b) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET a = excluded.a, b = excluded.b",
		},
		{
			backend:  MySQLBackend,
			expected: "INSERT INTO t (id, a, b) VALUES (?, ?, ?) AS new ON DUPLICATE KEY UPDATE a = new.a, b = new.b",
		},
	}
	for _, tc := range testCases {
		t.Run(string(tc.backend), func(t *testing.T) {
			s := &SQLStore{backend: tc.backend}
			assert.Equal(t, tc.expected, s.upsertQuery("t", "id", "a", "b"))
		})
	}
}
