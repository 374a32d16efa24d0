package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-contributors/internal/domain"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the stored pages and their contributors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeStore, err := openStore(cmd, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = nodeStore.Close() }()

		pages, err := nodeStore.Pages(cmd.Context())
		if err != nil {
			return err
		}
		return printPageTable(cmd.OutOrStdout(), pages, time.Now())
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

// printPageTable renders one row per page: its contributor count, the most
// recent contributor and how long ago they committed.
func printPageTable(w io.Writer, pages []domain.PageContributorsNode, now time.Time) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Path", "Contributors", "Latest", "Updated"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, page := range pages {
		latest, updated := "-", "-"
		if len(page.Contributors) > 0 {
			c := page.Contributors[0]
			latest = c.Login
			if latest == "" {
				latest = c.Name
			}
			if date, err := time.Parse(time.RFC3339, c.Date); err == nil {
				updated = humanize.RelTime(date, now, "ago", "from now")
			}
		}
		data = append(data, []string{
			page.Path,
			strconv.Itoa(len(page.Contributors)),
			latest,
			updated,
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d pages\n", len(pages))
	return err
}
