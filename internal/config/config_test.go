package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipvault-dev/clipvault/internal/gate"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"DATABASE_URL", "REDIS_ADDRESS", "LOG_LEVEL", "LOG_FORMAT", "MEDIA_BACKEND",
		"MAX_VIDEO_BYTES", "MAX_IMAGE_BYTES", "AUTH_RESOLVE_TIMEOUT", "ACCESS_POLICY_FILE",
		"PURGE_SCHEDULE", "PURGE_GRACE", "HTTP_ADDR",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "clipvault.sqlite", cfg.Database.URL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "cloudinary", cfg.Media.Backend)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.EqualValues(t, 70<<20, cfg.Upload.MaxVideoBytes)
	assert.EqualValues(t, 10<<20, cfg.Upload.MaxImageBytes)
	assert.Equal(t, 3*time.Second, cfg.Auth.ResolveTimeout)
	assert.Equal(t, "*/15 * * * *", cfg.Worker.PurgeSchedule)
	require.NotNil(t, cfg.Access)
	assert.Equal(t, gate.RootRedirectAlways, cfg.Access.RootMode())
}

func TestLoad_InvalidNumbers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ACCESS_POLICY_FILE", "")

	t.Setenv("MAX_VIDEO_BYTES", "lots")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("MAX_VIDEO_BYTES", "")
	t.Setenv("AUTH_RESOLVE_TIMEOUT", "soon")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadPolicyConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "access.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
public_pages: ["/", "/sign-in", "/sign-up", "/pricing"]
public_only_pages: ["/sign-in", "/sign-up", "/reset-password"]
root_mode: unauthenticated
`), 0o644))

	cfg, err := LoadPolicyConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "/sign-in", "/sign-up", "/pricing"}, cfg.PublicPages)
	assert.Equal(t, gate.RootRedirectUnauthenticated, cfg.RootMode)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Contains(t, cfg.PublicAPIPaths, "/api/videos")

	p, err := gate.NewPolicy(cfg)
	require.NoError(t, err)
	assert.True(t, p.IsPublicPage("/pricing"))
	assert.True(t, p.IsPublicOnlyPage("/reset-password"))
	assert.Equal(t, gate.Allow, gate.Decide(p, p.Context("/", true)).Outcome)
}

func TestLoadPolicyConfig_Errors(t *testing.T) {
	_, err := LoadPolicyConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("public_pages: {"), 0o644))
	_, err = LoadPolicyConfig(path)
	require.Error(t, err)
}

func TestLoad_InvalidPolicy(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "access.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root_mode: never\n"), 0o644))
	t.Setenv("ACCESS_POLICY_FILE", path)

	_, err := Load()
	require.ErrorIs(t, err, gate.ErrInvalidRootMode)
}
