// Package userconfig persists CLI state that is not secret: the server the
// user last signed in to and which account they used on each server. Tokens
// live in the OS keyring (see internal/cli/auth).
package userconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	appDirName     = "clipvault"
	configFileName = "config.json"

	// DirEnv overrides the configuration directory.
	DirEnv = "CLIPVAULT_CONFIG_DIR"
)

// UserConfig is the on-disk CLI state.
type UserConfig struct {
	CurrentServer string             `json:"current_server,omitempty"`
	Accounts      map[string]Account `json:"accounts,omitempty"`
}

// Account records who signed in to a server and when.
type Account struct {
	Email      string    `json:"email"`
	Name       string    `json:"name,omitempty"`
	SignedInAt time.Time `json:"signed_in_at"`
}

// Dir returns the configuration directory: $CLIPVAULT_CONFIG_DIR, or
// clipvault under the platform's user config directory.
func Dir() (string, error) {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

// Path returns the path to the config file
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file. A missing file yields an empty config.
func Load() (*UserConfig, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user config file: %w", err)
	}

	var cfg UserConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config file %s: %w", path, err)
	}
	return &cfg, nil
}

// Save replaces the config file atomically. The file holds email addresses,
// so it is readable by the owner only.
func Save(cfg *UserConfig) error {
	path, err := Path()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, configFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write user config file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write user config file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace user config file: %w", err)
	}
	return nil
}

func update(fn func(cfg *UserConfig)) error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	fn(cfg)
	return Save(cfg)
}

// SetServerURL makes serverURL the default for later commands
func SetServerURL(serverURL string) error {
	return update(func(cfg *UserConfig) {
		cfg.CurrentServer = serverURL
	})
}

// GetServerURL returns the default server URL, or "" when none is set
func GetServerURL() (string, error) {
	cfg, err := Load()
	if err != nil {
		return "", err
	}
	return cfg.CurrentServer, nil
}

// RecordLogin stores account as the identity used on serverURL and makes
// serverURL the default.
func RecordLogin(serverURL string, account Account) error {
	return update(func(cfg *UserConfig) {
		if cfg.Accounts == nil {
			cfg.Accounts = make(map[string]Account)
		}
		cfg.Accounts[serverURL] = account
		cfg.CurrentServer = serverURL
	})
}

// ForgetAccount removes the account recorded for serverURL. The default
// server is kept.
func ForgetAccount(serverURL string) error {
	return update(func(cfg *UserConfig) {
		delete(cfg.Accounts, serverURL)
	})
}

// AccountFor returns the account last used on serverURL.
func AccountFor(serverURL string) (Account, bool, error) {
	cfg, err := Load()
	if err != nil {
		return Account{}, false, err
	}
	account, ok := cfg.Accounts[serverURL]
	return account, ok, nil
}
