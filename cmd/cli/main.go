package main

import (
	"os"

	"github.com/clipvault-dev/clipvault/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
