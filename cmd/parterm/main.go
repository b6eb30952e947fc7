// Package main is the entry point for parterm, a remote control for a shell
// running in your terminal.
package main

import (
	"os"

	"github.com/PiranhaCodes/parterm/cmd/parterm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
