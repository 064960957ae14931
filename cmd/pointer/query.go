package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pointer/internal/backend"
	"github.com/jmylchreest/pointer/internal/dbus"
)

var queryOpts struct {
	mode     string
	settings string
}

var queryCmd = &cobra.Command{
	Use:   "query <text...>",
	Short: "Send a query to the worker",
	Long: `Send a query to the worker the way the overlay does.

The overlay context stored by pointerd is attached. Settings default to the
stored settings; --settings replaces them for this query only.`,
	Example: `  pointer query "summarise this"
  pointer query --mode insert "fix the grammar"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(backend.Modes, queryOpts.mode) {
			return fmt.Errorf("invalid mode %q, must be one of: %q", queryOpts.mode, backend.Modes)
		}
		text := strings.Join(args, " ")
		return withClient(func(c *dbus.Client) error {
			resp, err := c.ProcessQuery(cmd.Context(), text, queryOpts.mode, queryOpts.settings)
			if err != nil {
				return err
			}
			return printResult(resp)
		})
	},
}

var quitCmd = &cobra.Command{
	Use:   "quit",
	Short: "Stop the worker and pointerd",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *dbus.Client) error {
			return c.Quit(cmd.Context())
		})
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryOpts.mode, "mode", "m", backend.ModeExecute,
		fmt.Sprintf("Query mode: %q", backend.Modes))
	queryCmd.Flags().StringVar(&queryOpts.settings, "settings", "",
		"JSON settings object to send instead of the stored settings")
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(quitCmd)
}
