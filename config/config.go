package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

var v *viper.Viper

func init() {
	v = viper.New()

	// Set default values
	v.SetDefault("listen.addr", "127.0.0.1:8672")
	v.SetDefault("record.every", 1)
	v.SetDefault("grab.wait", true)
	v.SetDefault("grab.discard", false)
	v.SetDefault("skip.frames", 30)

	// Set default kinoview home directory
	v.SetDefault("kinoview.home", filepath.Join(xdg.Home, ".kinoview"))

	// Screenshot/record output defaults to the current directory so captures
	// land next to where the tool was invoked, matching user expectation.
	v.SetDefault("record.dir", "")
	v.SetDefault("screenshot.dir", "")

	// Environment variables
	v.AutomaticEnv()
	v.BindEnv("listen.addr", "KINOVIEW_LISTEN_ADDR")
	v.BindEnv("record.every", "KINOVIEW_RECORD_EVERY")
	v.BindEnv("grab.wait", "KINOVIEW_GRAB_WAIT")
	v.BindEnv("grab.discard", "KINOVIEW_GRAB_DISCARD")
	v.BindEnv("skip.frames", "KINOVIEW_SKIP_FRAMES")
	v.BindEnv("kinoview.home", "KINOVIEW_HOME")
	v.BindEnv("record.dir", "KINOVIEW_RECORD_DIR")
	v.BindEnv("screenshot.dir", "KINOVIEW_SCREENSHOT_DIR")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Look for config in the following paths
	configPaths := []string{
		".",
		"$HOME/.kinoview",
		"/etc/kinoview",
	}

	for _, path := range configPaths {
		expandedPath := os.ExpandEnv(path)
		v.AddConfigPath(expandedPath)
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			panic(fmt.Sprintf("Fatal error reading config file: %s", err))
		}
		// Config file not found; ignore error and use defaults
	}
}

// GetListenAddr returns the display server listen address
func GetListenAddr() string {
	return v.GetString("listen.addr")
}

// GetRecordEvery returns the default record sampling interval
func GetRecordEvery() int {
	n := v.GetInt("record.every")
	if n < 1 {
		return 1
	}
	return n
}

// GetGrabWait returns whether acquisition blocks for a frame by default
func GetGrabWait() bool {
	return v.GetBool("grab.wait")
}

// GetGrabDiscard returns whether acquisition drops backlog by default
func GetGrabDiscard() bool {
	return v.GetBool("grab.discard")
}

// GetSkipFrames returns the large-skip step used by the '<' and '>' commands
func GetSkipFrames() int {
	n := v.GetInt("skip.frames")
	if n < 1 {
		return 1
	}
	return n
}

// GetKinoviewHome returns the kinoview home directory
func GetKinoviewHome() string {
	return v.GetString("kinoview.home")
}

// GetRecordDir returns the directory for recording output files
func GetRecordDir() string {
	return v.GetString("record.dir")
}

// GetScreenshotDir returns the directory for saved screenshots
func GetScreenshotDir() string {
	return v.GetString("screenshot.dir")
}
