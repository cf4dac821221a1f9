package cmd

import (
	"fmt"

	"github.com/kinoview/kinoview/internal/util"
	"github.com/kinoview/kinoview/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kinoview",
	Short: "Interactive video viewer and recorder",
	Long: `kinoview opens a video source, plays it back under interactive control
(play/pause, stepping, seeking) and can record a sampled subset of the
frames to an output file. The picture is served to a browser page; commands
come from the terminal or from the page itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flag("version").Changed {
			info := version.Info()
			fmt.Printf("kinoview version %s, build %s\n", info["Version"], info["GitCommit"])
			return nil
		}
		return cmd.Help()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(func() {
		util.InitLogger(util.IsVerbose())
	})

	rootCmd.Flags().BoolP("version", "v", false, "Print version information and exit")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	rootCmd.AddCommand(NewViewCommand())
	rootCmd.AddCommand(NewVersionCommand())
}
