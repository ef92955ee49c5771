package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the clipvault command tree
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clipvault",
		Short: "clipvault - video uploads from the command line",
		Long: `clipvault CLI - Upload, list and delete videos on a clipvault server.

Run 'clipvault login --server <url> --email <email>' once; later commands
reuse the saved server and token.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("server", "", "Server URL (or set CLIPVAULT_SERVER)")

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clipvault version %s\n", version)
		},
	})

	// Add all subcommands
	rootCmd.AddCommand(NewLoginCmd())
	rootCmd.AddCommand(NewLogoutCmd())
	rootCmd.AddCommand(NewWhoamiCmd())
	rootCmd.AddCommand(NewListCmd())
	rootCmd.AddCommand(NewUploadCmd())
	rootCmd.AddCommand(NewDeleteCmd())

	return rootCmd
}
