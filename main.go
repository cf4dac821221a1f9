package main

import (
	"os"

	"github.com/kinoview/kinoview/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
