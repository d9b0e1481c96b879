// Package main provides the entry point for the papervault CLI.
package main

import (
	"os"

	"github.com/papervault/papervault/cmd/papervault/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
