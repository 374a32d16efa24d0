// Package discovery finds the pages whose contributors should be fetched.
package discovery

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"emperror.dev/errors"
	"github.com/gobwas/glob"
	"github.com/sirupsen/logrus"
)

// Find expands paths into the sorted, de-duplicated list of absolute file
// paths whose extension is one of extensions. Relative paths are resolved
// against the working directory. Directories are walked recursively, dot
// entries are skipped and missing paths are logged and ignored.
func Find(logger logrus.FieldLogger, paths, extensions []string) ([]string, error) {
	matcher, err := extensionMatcher(extensions)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.WrapIff(err, "failed to resolve %q", p)
		}
		info, err := os.Stat(abs)
		if errors.Is(err, fs.ErrNotExist) {
			logger.WithField("path", abs).Debug("page path does not exist, skipping")
			continue
		}
		if err != nil {
			return nil, errors.WrapIff(err, "failed to stat %q", abs)
		}

		if !info.IsDir() {
			if matcher.Match(info.Name()) {
				seen[abs] = struct{}{}
			}
			continue
		}

		err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != abs && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && matcher.Match(d.Name()) {
				seen[path] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, errors.WrapIff(err, "failed to walk %q", abs)
		}
	}

	found := make([]string, 0, len(seen))
	for path := range seen {
		found = append(found, path)
	}
	sort.Strings(found)
	return found, nil
}

func extensionMatcher(extensions []string) (glob.Glob, error) {
	if len(extensions) == 0 {
		return nil, errors.New("no page extensions configured")
	}
	exts := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		exts = append(exts, glob.QuoteMeta(strings.TrimPrefix(ext, ".")))
	}
	pattern := "*.{" + strings.Join(exts, ",") + "}"
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.WrapIff(err, "invalid extension pattern %q", pattern)
	}
	return g, nil
}
