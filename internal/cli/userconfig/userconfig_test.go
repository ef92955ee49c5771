package userconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTempDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "clipvault")
	t.Setenv(DirEnv, dir)
	return dir
}

func TestDir(t *testing.T) {
	t.Setenv(DirEnv, "/tmp/clipvault-test")
	dir, err := Dir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/clipvault-test", dir)

	t.Setenv(DirEnv, "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err = Dir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(mustUserConfigDir(t), "clipvault"), dir)
}

func mustUserConfigDir(t *testing.T) string {
	t.Helper()
	base, err := os.UserConfigDir()
	require.NoError(t, err)
	return base
}

func TestServerURLPersistence(t *testing.T) {
	dir := useTempDir(t)

	url, err := GetServerURL()
	require.NoError(t, err)
	assert.Empty(t, url, "missing file yields empty config")

	require.NoError(t, SetServerURL("https://clips.example.com"))

	url, err = GetServerURL()
	require.NoError(t, err)
	assert.Equal(t, "https://clips.example.com", url)

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestRecordLogin(t *testing.T) {
	useTempDir(t)
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, RecordLogin("https://a.example.com", Account{Email: "ada@example.com", Name: "Ada", SignedInAt: at}))
	require.NoError(t, RecordLogin("https://b.example.com", Account{Email: "bob@example.com", SignedInAt: at}))

	url, err := GetServerURL()
	require.NoError(t, err)
	assert.Equal(t, "https://b.example.com", url, "last login becomes the default")

	account, ok, err := AccountFor("https://a.example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ada@example.com", account.Email)
	assert.True(t, at.Equal(account.SignedInAt))

	require.NoError(t, ForgetAccount("https://a.example.com"))
	_, ok, err = AccountFor("https://a.example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = AccountFor("https://b.example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestForgetAccount_Empty(t *testing.T) {
	useTempDir(t)
	require.NoError(t, ForgetAccount("https://nowhere.example.com"))
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := useTempDir(t)
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{"), 0o600))

	_, err := Load()
	require.Error(t, err)
}
