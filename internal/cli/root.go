package cli

import (
	"fmt"
	"os"

	"github.com/clipvault-dev/clipvault/internal/cli/commands"
)

var version = "dev" // Will be set during build

// Execute runs the root command
func Execute() error {
	if err := commands.NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
