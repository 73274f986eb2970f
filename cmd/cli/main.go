// Package main is the entry point for the sttctl CLI.
// The CLI is the developer terminal tool for interacting with the productory API.
package main

import (
	"os"

	"productory/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
