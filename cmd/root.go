// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"emperror.dev/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-contributors/internal/config"
	"github.com/naka-gawa/github-contributors/internal/gitremote"
)

var rootFlags struct {
	Verbose bool
	Config  string
}

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "github-contributors",
	Short: "Annotate site pages with their GitHub contributors.",
	Long: `github-contributors runs as a step of a static site build. It finds the
site's source pages, asks the GitHub GraphQL API who committed to each of them,
and writes one node per page (plus one for the repository) to a node store the
site generator reads.`,

	// Errors are printed by Execute.
	SilenceErrors: true,
	SilenceUsage:  true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if rootFlags.Verbose {
			logrus.SetLevel(logrus.DebugLevel)
			logrus.Debug("enabled debug logging")
		}

		var err error
		cfg, err = config.Load(rootFlags.Config)
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}
		if cfg.File != "" {
			logrus.WithField("file", cfg.File).Debug("loaded configuration")
		} else {
			logrus.Debug("no configuration file found, using defaults")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// In verbose mode, show the stack trace recorded by emperror.
		if rootFlags.Verbose {
			_, _ = fmt.Fprintf(os.Stderr, "error: %s\n%s\n", err, indent(fmt.Sprintf("%+v", err), "\t"))
		} else {
			_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootFlags.Verbose, "verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringVar(&rootFlags.Config, "config", "", "Config file (default: contributors.{yaml,toml,json} in the working directory)")
}

func indent(s string, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}

// resolveRepository fills repo.owner and repo.name from the origin remote
// of the working directory when they are not configured.
func resolveRepository(c *config.Config) error {
	if c.HasRepository() {
		return nil
	}
	owner, name, err := gitremote.Detect(".", gitremote.DefaultRemote)
	if err != nil {
		return errors.WrapIf(err, "repo.owner and repo.name are not configured and could not be detected")
	}
	if c.Repo.Owner == "" {
		c.Repo.Owner = owner
	}
	if c.Repo.Name == "" {
		c.Repo.Name = name
	}
	logrus.WithFields(logrus.Fields{
		"owner": c.Repo.Owner,
		"name":  c.Repo.Name,
	}).Debug("detected repository from git remote")
	return nil
}
