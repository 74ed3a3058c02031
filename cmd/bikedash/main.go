// Command bikedash serves the bike-rental dashboard API and offers offline
// validate, export and render commands over the same dataset.
package main

import (
	"fmt"
	"os"
)

// Set with -ldflags "-X main.commit=... -X main.buildTime=..."
var (
	commit    string
	buildTime string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
