package main

import "os"

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
