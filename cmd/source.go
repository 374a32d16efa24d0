package cmd

import (
	"fmt"
	"os"
	"time"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-contributors/internal/config"
	"github.com/naka-gawa/github-contributors/internal/discovery"
	"github.com/naka-gawa/github-contributors/internal/gateway"
	"github.com/naka-gawa/github-contributors/internal/store"
	"github.com/naka-gawa/github-contributors/internal/usecase"
)

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Fetch contributors for every page and write the nodes",
	Long: `Discovers the pages under pages.paths, fetches the contributors of each page
from GitHub and writes a GithubContributors node per page and a Github node for
the repository. Without a token every page gets an empty contributor list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (reterr error) {
		ctx := cmd.Context()
		if err := resolveRepository(cfg); err != nil {
			return err
		}

		// Inject dependencies and run the main business logic.
		logger := logrus.StandardLogger()
		var fetcher gateway.Fetcher
		if cfg.Repo.Token != "" {
			githubGateway, err := gateway.NewGitHubGateway(cfg.Repo.Token, cfg.Repo.API, logger)
			if err != nil {
				return errors.Wrap(err, "failed to create GitHub gateway")
			}
			fetcher = githubGateway
		}

		nodeStore, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := nodeStore.Close(); err != nil && reterr == nil {
				reterr = errors.Wrap(err, "failed to close node store")
			}
		}()

		sourcer := usecase.NewSourcer(fetcher, nodeStore, discovery.Find, logger)
		sourcer.ShowProgress = !rootFlags.Verbose
		result, err := sourcer.Source(ctx, optionsFromConfig(cfg))
		if err != nil {
			return errors.Wrap(err, "failed to source contributors")
		}

		summary := result.Summary
		_, _ = fmt.Fprintf(os.Stderr,
			"Sourced %d pages for %s@%s in %v (%d with contributors, %d failed, %.1f contributors per page). Store: %s %s\n",
			summary.Pages, result.Repository.Repository, result.Repository.Branch, summary.Elapsed.Round(time.Millisecond),
			summary.PagesWithHistory, summary.Failed, summary.MeanContributors,
			cfg.Store.Backend, cfg.Store.DSN,
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourceCmd)
}

func optionsFromConfig(c *config.Config) usecase.Options {
	return usecase.Options{
		Root:       c.Pages.Root,
		Paths:      c.Pages.Paths,
		Extensions: c.Pages.Extensions,
		Prefix:     c.Pages.Prefix,
		Token:      c.Repo.Token,
		Owner:      c.Repo.Owner,
		Name:       c.Repo.Name,
		Branch:     c.Repo.Branch,
	}
}

func openStore(cmd *cobra.Command, c *config.Config) (store.Store, error) {
	backend, err := store.ParseBackend(c.Store.Backend)
	if err != nil {
		return nil, err
	}
	s, err := store.Open(cmd.Context(), backend, c.Store.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open node store")
	}
	return s, nil
}
