package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/pointer/internal/dbus"
	"github.com/jmylchreest/pointer/internal/output"
	"github.com/jmylchreest/pointer/internal/overlay"
)

var overlayOpts struct {
	x          float64
	y          float64
	context    string
	text       string
	screenshot bool
}

// overlayCmd represents the overlay command group.
var overlayCmd = &cobra.Command{
	Use:   "overlay",
	Short: "Show, hide and inspect the overlay",
}

var overlayShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the overlay anchored at a point",
	Long: `Show the overlay anchored at (--x, --y) in global screen coordinates.

The context is either a raw JSON payload (--context, '-' reads stdin) or is
built from --text and --screenshot. Any existing overlay is replaced.`,
	Example: `  pointer overlay show --x 640 --y 400 --text "$(wl-paste -p)"
  echo '{"selected_text":"hi","has_screenshot":false}' | pointer overlay show --context -`,
	RunE: runOverlayShow,
}

var overlayHideCmd = &cobra.Command{
	Use:   "hide",
	Short: "Hide the overlay and clear its context",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *dbus.Client) error {
			res, err := c.HideOverlay(cmd.Context())
			if err != nil {
				return err
			}
			return printResult(res)
		})
	},
}

var overlayContextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print the context the overlay was last shown with",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *dbus.Client) error {
			ctx, ok, err := c.GetOverlayContext(cmd.Context())
			if err != nil {
				return err
			}
			result := output.ContextResult{Present: ok}
			if ok {
				result.Context = &ctx
			}
			return printResult(result)
		})
	},
}

var overlayWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print overlay events until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *dbus.Client) error {
			var printErr error
			err := c.WatchSignals(cmd.Context(), func(ev dbus.Event) {
				if err := printResult(ev); err != nil && printErr == nil {
					printErr = err
				}
			})
			if err != nil {
				return err
			}
			return printErr
		})
	},
}

func init() {
	overlayShowCmd.Flags().Float64Var(&overlayOpts.x, "x", 0, "Anchor x coordinate")
	overlayShowCmd.Flags().Float64Var(&overlayOpts.y, "y", 0, "Anchor y coordinate")
	overlayShowCmd.Flags().StringVar(&overlayOpts.context, "context", "",
		"Raw JSON context payload, '-' reads stdin")
	overlayShowCmd.Flags().StringVar(&overlayOpts.text, "text", "", "Selected text to pass as context")
	overlayShowCmd.Flags().BoolVar(&overlayOpts.screenshot, "screenshot", false,
		"Mark the context as having a screenshot")
	overlayShowCmd.MarkFlagsMutuallyExclusive("context", "text")
	overlayShowCmd.MarkFlagsMutuallyExclusive("context", "screenshot")

	overlayCmd.AddCommand(overlayShowCmd)
	overlayCmd.AddCommand(overlayHideCmd)
	overlayCmd.AddCommand(overlayContextCmd)
	overlayCmd.AddCommand(overlayWatchCmd)
	rootCmd.AddCommand(overlayCmd)
}

func runOverlayShow(cmd *cobra.Command, args []string) error {
	payload, err := overlayPayload(cmd.InOrStdin())
	if err != nil {
		return err
	}

	return withClient(func(c *dbus.Client) error {
		res, err := c.ShowOverlay(cmd.Context(), overlayOpts.x, overlayOpts.y, payload)
		if err != nil {
			return err
		}
		return printResult(res)
	})
}

// overlayPayload returns the context payload to send. A raw payload is
// passed through unchecked; pointerd decides whether to store it.
func overlayPayload(stdin io.Reader) (string, error) {
	switch overlayOpts.context {
	case "":
		data, err := json.Marshal(overlay.Context{
			SelectedText:  overlayOpts.text,
			HasScreenshot: overlayOpts.screenshot,
		})
		if err != nil {
			return "", err
		}
		return string(data), nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read context from stdin: %w", err)
		}
		return string(data), nil
	default:
		return overlayOpts.context, nil
	}
}

// readInput returns the contents of path, or stdin for "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}
