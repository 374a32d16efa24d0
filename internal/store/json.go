package store

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"emperror.dev/errors"

	"github.com/naka-gawa/github-contributors/internal/domain"
)

// StdoutDSN makes the json store write to standard output.
const StdoutDSN = "-"

// jsonDocument is the on-disk layout: the nodes of one run.
type jsonDocument struct {
	Repositories []domain.RepositoryNode       `json:"repositories"`
	Pages        []domain.PageContributorsNode `json:"pages"`
}

// JSONStore buffers nodes and writes them as a single document on Commit.
type JSONStore struct {
	path  string
	out   io.Writer
	doc   jsonDocument
	dirty bool
}

var _ Store = (*JSONStore)(nil)

// OpenJSON opens the document at path. Existing nodes are loaded so that Pages
// works on the output of a previous run; a new run replaces them.
func OpenJSON(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}
	if path == StdoutDSN {
		s.out = os.Stdout
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, errors.WrapIff(err, "failed to read %q", path)
	}
	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, errors.WrapIff(err, "failed to decode %q", path)
	}
	return s, nil
}

func (s *JSONStore) reset() {
	if !s.dirty {
		s.doc = jsonDocument{}
		s.dirty = true
	}
}

func (s *JSONStore) PutRepository(_ context.Context, node *domain.RepositoryNode) error {
	s.reset()
	s.doc.Repositories = upsert(s.doc.Repositories, *node, func(n domain.RepositoryNode) string { return n.ID })
	return nil
}

func (s *JSONStore) PutPageContributors(_ context.Context, node *domain.PageContributorsNode) error {
	s.reset()
	s.doc.Pages = upsert(s.doc.Pages, *node, func(n domain.PageContributorsNode) string { return n.ID })
	return nil
}

func (s *JSONStore) Repositories(context.Context) ([]domain.RepositoryNode, error) {
	return append([]domain.RepositoryNode(nil), s.doc.Repositories...), nil
}

func (s *JSONStore) Pages(context.Context) ([]domain.PageContributorsNode, error) {
	return append([]domain.PageContributorsNode(nil), s.doc.Pages...), nil
}

// Commit writes the document if anything was put since it was opened.
func (s *JSONStore) Commit(context.Context) error {
	if !s.dirty {
		return nil
	}
	if s.out != nil {
		if err := writeJSON(s.out, s.doc); err != nil {
			return err
		}
		s.dirty = false
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapIff(err, "failed to create %q", dir)
		}
	}

	// Write to a temp file and rename so readers never see a partial document.
	tmpPath := s.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return errors.WrapIff(err, "failed to create %q", tmpPath)
	}
	if err := writeJSON(f, s.doc); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIff(err, "failed to close %q", tmpPath)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.WrapIff(err, "failed to write %q", s.path)
	}
	s.dirty = false
	return nil
}

// Close drops uncommitted nodes; the file on disk is left as it was.
func (s *JSONStore) Close() error {
	s.dirty = false
	return nil
}

func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// upsert replaces the element with the same id or appends node.
func upsert[T any](nodes []T, node T, id func(T) string) []T {
	for i := range nodes {
		if id(nodes[i]) == id(node) {
			nodes[i] = node
			return nodes
		}
	}
	return append(nodes, node)
}
