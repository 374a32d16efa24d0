package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, rel string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("# page\n"), 0o644))
	return path
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	index := touch(t, root, "src/pages/index.md")
	guide := touch(t, root, "src/pages/guides/setup.mdx")
	touch(t, root, "src/pages/guides/image.png")
	touch(t, root, "src/pages/.drafts/hidden.md")
	touch(t, root, "src/pages/.hidden.md")
	readme := touch(t, root, "README.md")

	testCases := []struct {
		name       string
		paths      []string
		extensions []string
		expected   []string
	}{
		{
			name:       "directory walk keeps matching extensions",
			paths:      []string{filepath.Join(root, "src/pages")},
			extensions: []string{"md", "mdx"},
			expected:   []string{guide, index},
		},
		{
			name:       "extension with leading dot",
			paths:      []string{filepath.Join(root, "src/pages")},
			extensions: []string{".mdx"},
			expected:   []string{guide},
		},
		{
			name:       "file path is kept as given",
			paths:      []string{readme},
			extensions: []string{"md"},
			expected:   []string{readme},
		},
		{
			name:       "overlapping paths are de-duplicated",
			paths:      []string{filepath.Join(root, "src/pages"), index},
			extensions: []string{"md"},
			expected:   []string{index},
		},
		{
			name:       "missing path is skipped",
			paths:      []string{filepath.Join(root, "does-not-exist")},
			extensions: []string{"md"},
			expected:   []string{},
		},
	}

	logger, _ := test.NewNullLogger()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			found, err := Find(logger, tc.paths, tc.extensions)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, found)
		})
	}
}

func TestFind_RelativePathsResolveAgainstWorkingDirectory(t *testing.T) {
	root := t.TempDir()
	index := touch(t, root, "src/pages/index.md")
	t.Chdir(root)

	logger, _ := test.NewNullLogger()
	found, err := Find(logger, []string{"src/pages"}, []string{"md"})
	require.NoError(t, err)

	// t.TempDir may sit behind a symlink (macOS /var), compare resolved paths.
	require.Len(t, found, 1)
	want, err := filepath.EvalSymlinks(index)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(found[0])
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFind_NoExtensions(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := Find(logger, []string{t.TempDir()}, nil)
	assert.Error(t, err)
}

func TestFind_MissingPathIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	missing := filepath.Join(t.TempDir(), "does-not-exist")

	found, err := Find(logger, []string{missing}, []string{"md"})
	require.NoError(t, err)
	assert.Empty(t, found)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, missing, entry.Data["path"])
}
