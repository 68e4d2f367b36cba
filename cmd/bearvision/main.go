// Package main provides the bearvision command.
package main

import (
	"os"

	"github.com/aiokaizen/bear-vision/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
