// Package main is the entry point for the stagehand CLI, a host that feeds
// filesystem events into the staging engine.
package main

import "os"

// Version information (set via ldflags during build).
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
