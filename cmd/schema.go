package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-contributors/internal/domain"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the GraphQL type definitions of the contributor nodes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprint(cmd.OutOrStdout(), domain.SchemaTypeDefs)
		return err
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
