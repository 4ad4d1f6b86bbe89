package main

import (
	"fmt"
	"os"

	"storefront-guard/internal/cmd"
)

// Preenchidos via ldflags, ex.: -X main.version=1.0.0
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
