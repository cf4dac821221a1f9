package cmd

import (
	"fmt"

	"github.com/kinoview/kinoview/internal/version"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print detailed version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Info()
			fmt.Printf("Version:    %s\n", info["Version"])
			fmt.Printf("Go version: %s\n", info["GoVersion"])
			fmt.Printf("Git commit: %s\n", info["GitCommit"])
			fmt.Printf("Built:      %s\n", info["FormattedTime"])
			fmt.Printf("OS/Arch:    %s/%s\n", info["OS"], info["Arch"])
		},
	}
}
