package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(a.stdout, "fleetsync %s\n", a.version)
			fmt.Fprintf(a.stdout, "  commit:   %s\n", a.commit)
			fmt.Fprintf(a.stdout, "  built:    %s\n", a.date)
			fmt.Fprintf(a.stdout, "  built by: %s\n", a.builtBy)
		},
	}
}
