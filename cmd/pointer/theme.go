package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/pointer/internal/theme"
)

// themeCmd represents the theme command group.
var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Inspect overlay themes",
}

var themeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bundled and user themes",
	Long: `List the themes pointerd can load. User themes live in
~/.config/pointer/themes/<name>.css and override bundled themes of the same
name. Select one with 'theme' in the [overlay] section of pointerd.toml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		themes, err := theme.ListAvailableThemes()
		if err != nil {
			return err
		}
		return printResult(themes)
	},
}

func init() {
	themeCmd.AddCommand(themeListCmd)
	rootCmd.AddCommand(themeCmd)
}
