package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/clipvault-dev/clipvault/internal/cli/auth"
	"github.com/clipvault-dev/clipvault/internal/cli/client"
	"github.com/clipvault-dev/clipvault/internal/cli/userconfig"
)

// tokenStore is swapped out in tests
var tokenStore auth.TokenStore = auth.Default

// resolveServer picks the server URL from, in order, the --server flag, the
// CLIPVAULT_SERVER env var and the saved user config.
func resolveServer(flag string) (string, error) {
	server := flag
	if server == "" {
		server = os.Getenv("CLIPVAULT_SERVER")
	}
	if server == "" {
		saved, err := userconfig.GetServerURL()
		if err != nil {
			return "", fmt.Errorf("failed to load user config: %w", err)
		}
		server = saved
	}
	if server == "" {
		return "", fmt.Errorf("no server configured. Run 'clipvault login --server <url>' first")
	}

	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "https://" + server
	}
	return strings.TrimRight(server, "/"), nil
}

// authedClient returns a client for server carrying the stored token
func authedClient(server string) (*client.Client, error) {
	token, err := tokenStore.LoadToken(server)
	if err != nil {
		return nil, err
	}

	apiClient := client.New(server)
	apiClient.SetToken(token)
	return apiClient, nil
}
