package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var sqlFlag string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a read-only SQL statement directly",
	Long: `The query command executes one SQL statement against the connected
database, bypassing generation entirely. The statement still goes through
the read-only guard. Output is JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(sqlFlag) == "" {
			return fmt.Errorf("--sql is required")
		}

		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.close()

		result, err := sess.db.RunReadOnly(cmd.Context(), sqlFlag)
		if err != nil {
			return err
		}

		payload := map[string]any{
			"columns":     result.Columns,
			"rows":        result.Rows,
			"row_count":   result.RowCount,
			"duration_ms": result.Duration.Milliseconds(),
		}
		encoded, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&sqlFlag, "sql", "", "SQL statement to execute")
	rootCmd.AddCommand(queryCmd)
}
