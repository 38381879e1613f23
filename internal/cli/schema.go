package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the schema summary for the connected database",
	Long: `The schema command prints the same one-line-per-table summary that is
given to the model during SQL generation, which is useful for checking what
the assistant can see.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.close()

		summary, err := sess.db.SchemaSummary(cmd.Context())
		if err != nil {
			return err
		}
		if summary == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "(no tables)")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
