package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/pointer/internal/dbus"
)

// settingsCmd represents the settings command group.
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Open or edit the settings passed to the worker",
	Long: `Open or edit the settings passed to the worker.

Settings are a single JSON object stored by pointerd. They are sent with
every query unless the query supplies its own.`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Open the settings window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *dbus.Client) error {
			res, err := c.ShowSettings(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(res)
		})
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the stored settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *dbus.Client) error {
			blob, err := c.LoadSettings(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(blob)
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <file|->",
	Short: "Replace the stored settings with a JSON object",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}
		return withClient(func(c *dbus.Client) error {
			res, err := c.SaveSettings(cmd.Context(), string(data))
			if err != nil {
				return err
			}
			return printResult(res)
		})
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
