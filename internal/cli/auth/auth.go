package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "clipvault-cli"
)

// ErrNotAuthenticated is returned when no token is stored for a server
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'clipvault login' first")

// getKeyringKey returns a unique key for storing JWT tokens per server
func getKeyringKey(serverURL string) string {
	return fmt.Sprintf("jwt-%s", serverURL)
}

// SaveToken persists the JWT token securely in the OS keychain/credential manager
func SaveToken(serverURL, token string) error {
	key := getKeyringKey(serverURL)
	if err := keyring.Set(service, key, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken retrieves the JWT token from the OS keychain/credential manager
func LoadToken(serverURL string) (string, error) {
	key := getKeyringKey(serverURL)
	token, err := keyring.Get(service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotAuthenticated
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// DeleteToken removes the JWT token from the OS keychain/credential manager
func DeleteToken(serverURL string) error {
	key := getKeyringKey(serverURL)
	if err := keyring.Delete(service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
