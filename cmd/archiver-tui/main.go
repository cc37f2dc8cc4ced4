package main

import (
	"fmt"
	"os"

	"github.com/handiism/playlist-archiver/internal/config"
	"github.com/handiism/playlist-archiver/internal/tui"
)

func main() {
	path := "archiver.toml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	settings, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := settings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := tui.Run(settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
