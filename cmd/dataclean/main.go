// Package main provides the dataclean CLI.
package main

import (
	"os"

	"github.com/datacleanhq/dataclean/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
