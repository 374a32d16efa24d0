// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/montanaflynn/stats"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/naka-gawa/github-contributors/internal/domain"
	"github.com/naka-gawa/github-contributors/internal/gateway"
	"github.com/naka-gawa/github-contributors/internal/store"
)

// MissingTokenWarning is logged once per run when no token is configured.
const MissingTokenWarning = "a GitHub token is required to fetch contributors (set GITHUB_TOKEN); pages will have no contributors"

// Options are the inputs of one sourcing run.
type Options struct {
	Root       string
	Paths      []string
	Extensions []string
	Prefix     string

	Token  string
	Owner  string
	Name   string
	Branch string
}

// Summary describes the outcome of a run.
type Summary struct {
	Pages              int
	PagesWithHistory   int
	Failed             int
	Skipped            int
	MeanContributors   float64
	MedianContributors float64
	Elapsed            time.Duration
}

// Result holds every node written during a run.
type Result struct {
	Repository *domain.RepositoryNode
	Pages      []*domain.PageContributorsNode
	Summary    Summary
}

// DiscoverFunc lists the pages to annotate.
type DiscoverFunc func(logger logrus.FieldLogger, paths, extensions []string) ([]string, error)

// Sourcer is the use case that annotates pages with their contributors.
type Sourcer struct {
	fetcher  gateway.Fetcher
	store    store.Store
	discover DiscoverFunc
	logger   logrus.FieldLogger

	// ShowProgress enables the progress bar when stderr is a terminal.
	ShowProgress bool
}

// NewSourcer creates a new Sourcer. fetcher may be nil when no token is
// available; it is never called in that case.
func NewSourcer(fetcher gateway.Fetcher, s store.Store, discover DiscoverFunc, logger logrus.FieldLogger) *Sourcer {
	return &Sourcer{
		fetcher:  fetcher,
		store:    s,
		discover: discover,
		logger:   logger,
	}
}

// Source writes the repository node and one contributors node per
// discovered page, committing them once every page is written. A failed
// lookup leaves that page with no contributors and does not stop the run; a
// failed store write does, and nothing is committed.
func (s *Sourcer) Source(ctx context.Context, opts Options) (*Result, error) {
	startTime := time.Now()
	fetch := opts.Token != "" && s.fetcher != nil
	if !fetch {
		s.logger.Warn(MissingTokenWarning)
	}

	paths, err := s.discover(s.logger, opts.Paths, opts.Extensions)
	if err != nil {
		return nil, errors.Wrap(err, "failed to discover pages")
	}
	s.logger.WithField("pages", len(paths)).Debug("discovered pages")

	repo := domain.NewRepositoryNode(opts.Owner, opts.Name, opts.Branch, opts.Root)
	if err := s.store.PutRepository(ctx, repo); err != nil {
		return nil, err
	}

	result := &Result{
		Repository: repo,
		Pages:      make([]*domain.PageContributorsNode, 0, len(paths)),
	}
	bar := s.newProgressBar(len(paths))
	unauthorized := false

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var contributors []domain.Contributor
		switch {
		case !fetch:
		case unauthorized:
			result.Summary.Skipped++
		default:
			key := QueryKey(path, opts.Root, opts.Prefix)
			log := s.logger.WithFields(logrus.Fields{"path": path, "key": key})
			found, err := s.fetcher.FetchContributors(ctx, opts.Owner, opts.Name, opts.Branch, key)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				log.WithError(err).Error("failed to fetch contributors")
				result.Summary.Failed++
				if gateway.IsUnauthorized(err) {
					unauthorized = true
					s.logger.Error("GitHub rejected the token; skipping contributor lookup for the remaining pages")
				}
				break
			}
			log.WithField("contributors", len(found)).Debug("fetched contributors")
			contributors = found
		}

		node := domain.NewPageContributorsNode(path, contributors)
		if err := s.store.PutPageContributors(ctx, node); err != nil {
			return nil, err
		}
		result.Pages = append(result.Pages, node)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := s.store.Commit(ctx); err != nil {
		return nil, err
	}

	result.Summary = summarize(result.Pages, result.Summary)
	result.Summary.Elapsed = time.Since(startTime)
	if result.Summary.Failed > 0 {
		s.logger.WithFields(logrus.Fields{
			"failed": result.Summary.Failed,
			"pages":  result.Summary.Pages,
		}).Warn("contributors could not be fetched for some pages")
	}
	return result, nil
}

// QueryKey turns a discovered file path into the repository-relative path
// used in the history query: root is stripped when the path lies under it,
// then a leading separator, then prefix when the path lies under it.
func QueryKey(path, root, prefix string) string {
	sep := string(filepath.Separator)
	key := path
	if root = strings.TrimSuffix(root, sep); root != "" {
		if key == root {
			key = ""
		} else if strings.HasPrefix(key, root+sep) {
			key = key[len(root):]
		}
	}
	key = strings.TrimPrefix(key, sep)
	key = filepath.ToSlash(key)
	key = strings.TrimPrefix(key, "/")

	prefix = strings.Trim(filepath.ToSlash(prefix), "/")
	if prefix != "" {
		if key == prefix {
			return ""
		}
		if strings.HasPrefix(key, prefix+"/") {
			key = key[len(prefix)+1:]
		}
	}
	return key
}

func summarize(pages []*domain.PageContributorsNode, summary Summary) Summary {
	summary.Pages = len(pages)
	if len(pages) == 0 {
		return summary
	}
	counts := make(stats.Float64Data, 0, len(pages))
	for _, page := range pages {
		if len(page.Contributors) > 0 {
			summary.PagesWithHistory++
		}
		counts = append(counts, float64(len(page.Contributors)))
	}
	summary.MeanContributors, _ = counts.Mean()
	summary.MedianContributors, _ = counts.Median()
	return summary
}

// newProgressBar is only shown for more than one page on a terminal.
func (s *Sourcer) newProgressBar(total int) *progressbar.ProgressBar {
	if !s.ShowProgress || total <= 1 {
		return nil
	}
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription("fetching contributors"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}
