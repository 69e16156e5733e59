// Package main is the sdkproj command.
package main

import (
	"os"

	"github.com/leapstack-labs/sdkproj/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
