package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/pointer/internal/dbus"
)

// backendCmd represents the backend command group.
var backendCmd = &cobra.Command{
	Use:   "backend",
	Short: "Start and inspect the agent worker",
}

var backendStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the worker if it is not running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *dbus.Client) error {
			res, err := c.StartBackend(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(res)
		})
	},
}

var backendStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the worker is running and healthy",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *dbus.Client) error {
			report, err := c.BackendStatus(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(report)
		})
	},
}

func init() {
	backendCmd.AddCommand(backendStartCmd)
	backendCmd.AddCommand(backendStatusCmd)
	rootCmd.AddCommand(backendCmd)
}
