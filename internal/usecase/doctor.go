package usecase

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/github-contributors/internal/domain"
	"github.com/naka-gawa/github-contributors/internal/gateway"
)

// Check is the outcome of one diagnostic.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// Doctor verifies that a sourcing run would be able to reach GitHub.
type Doctor struct {
	inspector gateway.Inspector
	logger    logrus.FieldLogger
}

// NewDoctor creates a Doctor. inspector may be nil when no token is available.
func NewDoctor(inspector gateway.Inspector, logger logrus.FieldLogger) *Doctor {
	return &Doctor{inspector: inspector, logger: logger}
}

// Run returns the token, repository and branch checks, in that order.
// The repository and branch lookups run concurrently.
func (d *Doctor) Run(ctx context.Context, opts Options) []Check {
	slug := domain.RepositorySlug(opts.Owner, opts.Name)
	tokenCheck := Check{Name: "token", OK: opts.Token != "" && d.inspector != nil}
	if !tokenCheck.OK {
		tokenCheck.Detail = MissingTokenWarning
		return []Check{
			tokenCheck,
			{Name: "repository", Detail: "skipped: no token"},
			{Name: "branch", Detail: "skipped: no token"},
		}
	}
	tokenCheck.Detail = "configured"

	repoCheck := Check{Name: "repository"}
	branchCheck := Check{Name: "branch"}

	// Checks report their own failures, so the group never returns an error.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		info, err := d.inspector.InspectRepository(egCtx, opts.Owner, opts.Name)
		if err != nil {
			d.logger.WithError(err).Debug("repository check failed")
			repoCheck.Detail = err.Error()
			return nil
		}
		repoCheck.OK = true
		repoCheck.Detail = fmt.Sprintf("%s (default branch %s)", info.FullName, info.DefaultBranch)
		return nil
	})
	eg.Go(func() error {
		exists, err := d.inspector.BranchExists(egCtx, opts.Owner, opts.Name, opts.Branch)
		switch {
		case err != nil:
			d.logger.WithError(err).Debug("branch check failed")
			branchCheck.Detail = err.Error()
		case !exists:
			branchCheck.Detail = fmt.Sprintf("branch %q not found in %s", opts.Branch, slug)
		default:
			branchCheck.OK = true
			branchCheck.Detail = opts.Branch
		}
		return nil
	})
	_ = eg.Wait()

	return []Check{tokenCheck, repoCheck, branchCheck}
}

// Healthy reports whether every check passed.
func Healthy(checks []Check) bool {
	for _, c := range checks {
		if !c.OK {
			return false
		}
	}
	return true
}
