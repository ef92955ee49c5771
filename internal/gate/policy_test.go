package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy_Defaults(t *testing.T) {
	p, err := NewPolicy(PolicyConfig{})
	require.NoError(t, err)

	assert.Equal(t, "/home", p.LandingPath())
	assert.Equal(t, "/sign-in", p.SignInPath())
	assert.Equal(t, RootRedirectAlways, p.RootMode())
	assert.True(t, p.IsPublicPage("/sign-up"))
	assert.True(t, p.IsPublicAPIPath("/api/videos"))
	assert.False(t, p.IsPublicPage("/home"))
	assert.True(t, p.IsPublicOnlyPage("/sign-in"))
	assert.True(t, p.IsPublicOnlyPage("/sign-up"))
	assert.False(t, p.IsPublicOnlyPage("/"))
}

func TestNewPolicy_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PolicyConfig)
		wantErr error
	}{
		{
			name:    "unknown root mode",
			mutate:  func(c *PolicyConfig) { c.RootMode = "sometimes" },
			wantErr: ErrInvalidRootMode,
		},
		{
			name:    "relative public page",
			mutate:  func(c *PolicyConfig) { c.PublicPages = []string{"sign-in"} },
			wantErr: ErrInvalidPath,
		},
		{
			name:    "relative public-only page",
			mutate:  func(c *PolicyConfig) { c.PublicOnlyPages = []string{"sign-up"} },
			wantErr: ErrInvalidPath,
		},
		{
			name:    "relative public api path",
			mutate:  func(c *PolicyConfig) { c.PublicAPIPaths = []string{"api/videos"} },
			wantErr: ErrInvalidPath,
		},
		{
			name:    "relative landing path",
			mutate:  func(c *PolicyConfig) { c.LandingPath = "home" },
			wantErr: ErrInvalidPath,
		},
		{
			name:    "relative excluded prefix",
			mutate:  func(c *PolicyConfig) { c.ExcludedPrefixes = []string{"static/"} },
			wantErr: ErrInvalidPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPolicyConfig()
			tt.mutate(&cfg)
			_, err := NewPolicy(cfg)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPolicy_IsolatedFromConfig(t *testing.T) {
	cfg := DefaultPolicyConfig()
	p, err := NewPolicy(cfg)
	require.NoError(t, err)

	cfg.PublicPages[0] = "/admin"
	assert.False(t, p.IsPublicPage("/admin"))
	assert.True(t, p.IsPublicPage("/"))
}

func TestPolicy_IsAPIPath(t *testing.T) {
	p, err := NewPolicy(PolicyConfig{APIPrefix: "/api/"})
	require.NoError(t, err)

	assert.True(t, p.IsAPIPath("/api"))
	assert.True(t, p.IsAPIPath("/api/"))
	assert.True(t, p.IsAPIPath("/api/videos"))
	assert.False(t, p.IsAPIPath("/apis"))
	assert.False(t, p.IsAPIPath("/home"))
}

func TestPolicy_Applies(t *testing.T) {
	p, err := NewPolicy(DefaultPolicyConfig())
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{"/", true},
		{"/home", true},
		{"/api/video-upload", true},
		{"/favicon.ico", false},
		{"/static/app.css", false},
		{"/static/fonts/inter", false},
		{"/images/logo.png", false},
		{"/health", false},
		{"/metrics", false},
		{"/healthy", true},
		{"/.env", true},
		{"/v1.2/", true},
		{"/file.", true},
		{"/api/upload.json", true},
		{"/api/videos/x.mp4", true},
		{"/api/videos.json", true},
		{"/api", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Applies(tt.path))
		})
	}
}
