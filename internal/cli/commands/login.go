package commands

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/clipvault-dev/clipvault/internal/cli/auth"
	"github.com/clipvault-dev/clipvault/internal/cli/client"
	"github.com/clipvault-dev/clipvault/internal/cli/userconfig"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a clipvault server",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverFlag, _ := cmd.Flags().GetString("server")
			return runLogin(cmd, serverFlag, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set CLIPVAULT_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set CLIPVAULT_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, serverFlag, email, password string) error {
	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv("CLIPVAULT_EMAIL")
	}
	if password == "" {
		password = os.Getenv("CLIPVAULT_PASSWORD")
	}

	// Validate email
	if email == "" {
		return fmt.Errorf("email is required (use --email flag or CLIPVAULT_EMAIL env var)")
	}

	server, err := resolveServer(serverFlag)
	if err != nil {
		return err
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		// Check if stdin is a terminal (not piped)
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Fprintln(cmd.OutOrStdout()) // New line after password input
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or CLIPVAULT_PASSWORD env var)")
		}
	}

	apiClient := client.New(server)

	fmt.Fprintf(cmd.OutOrStdout(), "Logging in to %s...\n", server)

	loginResp, err := apiClient.Login(email, password)
	if err != nil {
		return err
	}

	// Save token
	if err := tokenStore.SaveToken(server, loginResp.Token); err != nil {
		return fmt.Errorf("failed to save authentication token: %w", err)
	}

	// Remember the server and account for later commands
	account := userconfig.Account{
		Email:      loginResp.User.Email,
		Name:       loginResp.User.Name,
		SignedInAt: time.Now().UTC(),
	}
	if err := userconfig.RecordLogin(server, account); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to save user config: %v\n", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Login successful!")
	if loginResp.User.Name != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "  User: %s (%s)\n", loginResp.User.Name, loginResp.User.Email)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "  User: %s\n", loginResp.User.Email)
	}

	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token for the current server",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverFlag, _ := cmd.Flags().GetString("server")
			server, err := resolveServer(serverFlag)
			if err != nil {
				return err
			}
			if err := tokenStore.DeleteToken(server); err != nil {
				return err
			}
			if err := userconfig.ForgetAccount(server); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to update user config: %v\n", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out of %s\n", server)
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			serverFlag, _ := cmd.Flags().GetString("server")
			server, err := resolveServer(serverFlag)
			if err != nil {
				return err
			}
			user, err := currentUser(server)
			if err != nil {
				return withLastAccount(err, server)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s on %s\n", user.Email, server)
			return nil
		},
	}
}

func currentUser(server string) (*client.User, error) {
	apiClient, err := authedClient(server)
	if err != nil {
		return nil, err
	}
	return apiClient.Me()
}

// withLastAccount annotates an authentication failure with the account last
// used on server, when one is recorded.
func withLastAccount(err error, server string) error {
	if !errors.Is(err, auth.ErrNotAuthenticated) && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	account, ok, lookupErr := userconfig.AccountFor(server)
	if lookupErr != nil || !ok {
		return err
	}
	return fmt.Errorf("%w (last signed in as %s, %s)", err, account.Email, humanize.Time(account.SignedInAt))
}
