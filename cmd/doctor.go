package cmd

import (
	"fmt"
	"io"

	"emperror.dev/errors"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-contributors/internal/gateway"
	"github.com/naka-gawa/github-contributors/internal/usecase"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the token, repository and branch are usable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := resolveRepository(cfg); err != nil {
			return err
		}

		logger := logrus.StandardLogger()
		var inspector gateway.Inspector
		if cfg.Repo.Token != "" {
			githubGateway, err := gateway.NewGitHubGateway(cfg.Repo.Token, cfg.Repo.API, logger)
			if err != nil {
				return errors.Wrap(err, "failed to create GitHub gateway")
			}
			inspector = githubGateway
		}

		checks := usecase.NewDoctor(inspector, logger).Run(cmd.Context(), optionsFromConfig(cfg))
		printChecks(cmd.OutOrStdout(), checks)
		if !usecase.Healthy(checks) {
			return errors.New("some checks failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func printChecks(w io.Writer, checks []usecase.Check) {
	for _, c := range checks {
		status := color.GreenString("ok")
		if !c.OK {
			status = color.RedString("FAIL")
		}
		_, _ = fmt.Fprintf(w, "%-4s  %-10s  %s\n", status, c.Name, c.Detail)
	}
}
