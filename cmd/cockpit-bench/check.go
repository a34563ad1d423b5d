package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"cockpit-go/internal/platform"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the cockpit config",
	Long:  "check loads the embedded device config with --config and COCKPIT_* overrides applied and reports every problem the cockpit would refuse to start with.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		color := !opts.GetBool("no-color")
		out := cmd.OutOrStdout()
		if err != nil {
			fmt.Fprintln(out, paint(lipgloss.NewStyle().Foreground(lipgloss.Color("9")), "✗ config invalid", color))
			return err
		}
		fmt.Fprintln(out, paint(lipgloss.NewStyle().Foreground(lipgloss.Color("10")), "✓ config ok", color))
		fmt.Fprint(out, renderCheck(cfg, platform.Drivers(), color))
		return nil
	},
}
