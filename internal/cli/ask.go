package cli

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sqlscout/sqlscout/internal/render"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the connected database",
	Long: `The ask command sends a natural-language question through the full loop:
SQL generation, guarded read-only execution with bounded retries on errors,
and a plain-language answer synthesized from the results.

The question can be given as arguments or entered interactively.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.TrimSpace(strings.Join(args, " "))
		if question == "" {
			entered, err := pterm.DefaultInteractiveTextInput.
				WithDefaultText("What would you like to know?").
				Show()
			if err != nil {
				return err
			}
			question = strings.TrimSpace(entered)
		}
		if question == "" {
			return fmt.Errorf("a question is required")
		}

		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.close()

		a, err := sess.newAgent(cmd)
		if err != nil {
			return err
		}

		spinner, _ := pterm.DefaultSpinner.Start("Thinking...")
		resp, err := a.Ask(cmd.Context(), question)
		if err != nil {
			if spinner != nil {
				spinner.Fail("Run aborted")
			}
			return err
		}

		if !resp.Succeeded() {
			if spinner != nil {
				spinner.Fail(fmt.Sprintf("No working query after %d attempt(s)", resp.Attempts))
			}
			pterm.DefaultSection.Println("Last SQL tried")
			fmt.Fprintln(cmd.OutOrStdout(), resp.SQL)
			return fmt.Errorf("query failed after %d attempt(s): %s", resp.Attempts, resp.Error)
		}

		if spinner != nil {
			spinner.Success(fmt.Sprintf("Answered in %d attempt(s)", resp.Attempts))
		}

		pterm.DefaultSection.Println("Generated SQL")
		fmt.Fprintln(cmd.OutOrStdout(), resp.SQL)

		pterm.DefaultSection.Println("Results")
		render.Table(cmd.OutOrStdout(), resp.Result)

		pterm.DefaultSection.Println("Answer")
		fmt.Fprintln(cmd.OutOrStdout(), resp.Answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
