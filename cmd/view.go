package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kinoview/kinoview/config"
	"github.com/kinoview/kinoview/internal/display"
	"github.com/kinoview/kinoview/internal/display/httpd"
	"github.com/kinoview/kinoview/internal/input"
	"github.com/kinoview/kinoview/internal/media"
	"github.com/kinoview/kinoview/internal/util"
	"github.com/kinoview/kinoview/internal/viewer"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

type viewOptions struct {
	output      string
	recordEvery int
	noWait      bool
	discard     bool
	listen      string
	open        bool
	headless    bool
	skipStep    int
}

// NewViewCommand creates the view command
func NewViewCommand() *cobra.Command {
	opts := &viewOptions{}

	cmd := &cobra.Command{
		Use:   "view <input-uri>",
		Short: "Open a video source for interactive viewing and recording",
		Long: `Open a video source and control playback interactively.

Input locators:
  clip.rvf                        raw frame file (seekable)
  test://?w=640&h=480&fps=30      synthetic live pattern

Keys (terminal or browser page):
  space        play / pause
  , .          step one frame back / forward
  < >          skip several frames back / forward
  r            toggle recording        0  record a single frame
  w            toggle wait-for-frames  d  toggle discard-buffered
  1-9          show/hide stream        shift+digit  save stream screenshot
  q            quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Record to this file (.webm or .rvf)")
	cmd.Flags().IntVar(&opts.recordEvery, "record-every", config.GetRecordEvery(), "Record every Nth frame")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", !config.GetGrabWait(), "Do not block waiting for frames")
	cmd.Flags().BoolVar(&opts.discard, "discard", config.GetGrabDiscard(), "Discard buffered frames, always show newest")
	cmd.Flags().StringVar(&opts.listen, "listen", config.GetListenAddr(), "Display server listen address")
	cmd.Flags().BoolVar(&opts.open, "open", false, "Open the display page in the default browser")
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "Run without the display server")
	cmd.Flags().IntVar(&opts.skipStep, "skip-frames", config.GetSkipFrames(), "Frame delta of the large skip keys")

	return cmd
}

func runView(inputURI string, opts *viewOptions) error {
	logger := util.GetLogger()

	var v *viewer.Viewer
	onKey := func(key rune) {
		if cmd, ok := viewer.KeyCommand(key, opts.skipStep); ok {
			v.Dispatch(cmd)
		}
	}

	var renderer display.Renderer
	var pageURL string
	if opts.headless {
		renderer = display.NewNull()
	} else {
		srv, err := httpd.New(opts.listen, onKey)
		if err != nil {
			return err
		}
		renderer = srv
		pageURL = srv.URL()
	}

	v = viewer.New(renderer, viewer.Options{
		Wait:          !opts.noWait,
		Discard:       opts.discard,
		RecordEvery:   opts.recordEvery,
		ScreenshotDir: config.GetScreenshotDir(),
		OpenSource: func(uri string) (media.Source, error) {
			return viewer.OpenSource(uri, opts.output, 30)
		},
	})

	stopSignals := viewer.HandleSignals()
	defer stopSignals()

	v.Open(inputURI)
	v.Start()

	if restore, err := input.Listen(onKey); err == nil {
		defer restore()
	} else {
		logger.Debug("Terminal input unavailable", "error", err)
	}

	if pageURL != "" {
		fmt.Printf("Viewing %s at %s\n", color.CyanString(inputURI), color.GreenString(pageURL))
		if opts.open {
			if err := browser.OpenURL(pageURL); err != nil {
				logger.Warn("Failed to open browser", "error", err)
			}
		}
	}

	v.WaitUntilExit()
	v.Close()
	return nil
}
