// Package gate decides, for every inbound request, whether it may proceed,
// must be redirected, or must be rejected as unauthorized.
//
// The decision is a pure function of an immutable Policy and a per-request
// RequestContext, so it can be exercised without an HTTP pipeline. The gin
// binding lives in internal/server.
package gate

import (
	"errors"
	"fmt"
	"strings"
)

// RootMode controls how requests for "/" are handled.
type RootMode string

const (
	// RootRedirectAlways sends every request for "/" to the landing page.
	RootRedirectAlways RootMode = "always"
	// RootRedirectUnauthenticated sends only anonymous requests for "/" to the
	// landing page; authenticated ones fall through to the remaining rules.
	RootRedirectUnauthenticated RootMode = "unauthenticated"
)

const (
	DefaultAPIPrefix   = "/api"
	DefaultLandingPath = "/home"
	DefaultSignInPath  = "/sign-in"
	DefaultSignUpPath  = "/sign-up"
)

var (
	ErrInvalidPath     = errors.New("path must start with /")
	ErrInvalidRootMode = errors.New("invalid root mode")
)

// PolicyConfig is the mutable input used to build a Policy. PublicOnlyPages
// are public pages that signed-in callers are sent away from; they are
// treated as public pages too.
type PolicyConfig struct {
	PublicPages      []string `yaml:"public_pages"`
	PublicOnlyPages  []string `yaml:"public_only_pages"`
	PublicAPIPaths   []string `yaml:"public_api_paths"`
	APIPrefix        string   `yaml:"api_prefix"`
	LandingPath      string   `yaml:"landing_path"`
	SignInPath       string   `yaml:"sign_in_path"`
	RootMode         RootMode `yaml:"root_mode"`
	ExcludedPrefixes []string `yaml:"excluded_prefixes"`
}

// DefaultPolicyConfig returns the route classification used when no policy
// file is configured.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		PublicPages:      []string{"/", DefaultSignInPath, DefaultSignUpPath},
		PublicOnlyPages:  []string{DefaultSignInPath, DefaultSignUpPath},
		PublicAPIPaths:   []string{"/api/videos", "/api/auth/sign-in", "/api/auth/sign-up"},
		APIPrefix:        DefaultAPIPrefix,
		LandingPath:      DefaultLandingPath,
		SignInPath:       DefaultSignInPath,
		RootMode:         RootRedirectAlways,
		ExcludedPrefixes: []string{"/static/", "/health", "/metrics"},
	}
}

// Policy is the frozen route classification. It is built once at startup and
// shared read-only between requests.
type Policy struct {
	publicPages      map[string]struct{}
	publicOnlyPages  map[string]struct{}
	publicAPIPaths   map[string]struct{}
	apiPrefix        string
	landingPath      string
	signInPath       string
	rootMode         RootMode
	excludedPrefixes []string
}

// NewPolicy validates cfg and returns an immutable Policy. Empty fields take
// the defaults from DefaultPolicyConfig.
func NewPolicy(cfg PolicyConfig) (*Policy, error) {
	def := DefaultPolicyConfig()

	if cfg.PublicPages == nil {
		cfg.PublicPages = def.PublicPages
	}
	if cfg.PublicOnlyPages == nil {
		cfg.PublicOnlyPages = def.PublicOnlyPages
	}
	if cfg.PublicAPIPaths == nil {
		cfg.PublicAPIPaths = def.PublicAPIPaths
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = def.APIPrefix
	}
	if cfg.LandingPath == "" {
		cfg.LandingPath = def.LandingPath
	}
	if cfg.SignInPath == "" {
		cfg.SignInPath = def.SignInPath
	}
	if cfg.RootMode == "" {
		cfg.RootMode = def.RootMode
	}
	if cfg.ExcludedPrefixes == nil {
		cfg.ExcludedPrefixes = def.ExcludedPrefixes
	}

	switch cfg.RootMode {
	case RootRedirectAlways, RootRedirectUnauthenticated:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidRootMode, cfg.RootMode)
	}

	for _, p := range []string{cfg.APIPrefix, cfg.LandingPath, cfg.SignInPath} {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}

	pages, err := pathSet(cfg.PublicPages)
	if err != nil {
		return nil, fmt.Errorf("public pages: %w", err)
	}
	publicOnly, err := pathSet(cfg.PublicOnlyPages)
	if err != nil {
		return nil, fmt.Errorf("public-only pages: %w", err)
	}
	for path := range publicOnly {
		pages[path] = struct{}{}
	}
	apis, err := pathSet(cfg.PublicAPIPaths)
	if err != nil {
		return nil, fmt.Errorf("public api paths: %w", err)
	}

	excluded := make([]string, 0, len(cfg.ExcludedPrefixes))
	for _, p := range cfg.ExcludedPrefixes {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("excluded prefixes: %w: %q", ErrInvalidPath, p)
		}
		excluded = append(excluded, p)
	}

	return &Policy{
		publicPages:      pages,
		publicOnlyPages:  publicOnly,
		publicAPIPaths:   apis,
		apiPrefix:        normalize(cfg.APIPrefix),
		landingPath:      normalize(cfg.LandingPath),
		signInPath:       normalize(cfg.SignInPath),
		rootMode:         cfg.RootMode,
		excludedPrefixes: excluded,
	}, nil
}

func pathSet(paths []string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
		set[normalize(p)] = struct{}{}
	}
	return set, nil
}

// normalize strips trailing slashes; the root path stays "/".
func normalize(path string) string {
	if path == "" {
		return "/"
	}
	trimmed := strings.TrimRight(path, "/")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

func (p *Policy) LandingPath() string { return p.landingPath }
func (p *Policy) SignInPath() string  { return p.signInPath }
func (p *Policy) RootMode() RootMode  { return p.rootMode }

// IsPublicPage reports whether path is reachable without authentication.
func (p *Policy) IsPublicPage(path string) bool {
	_, ok := p.publicPages[normalize(path)]
	return ok
}

// IsPublicOnlyPage reports whether path is a public page that signed-in
// callers are redirected away from.
func (p *Policy) IsPublicOnlyPage(path string) bool {
	_, ok := p.publicOnlyPages[normalize(path)]
	return ok
}

// IsPublicAPIPath reports whether path is an API path reachable without
// authentication.
func (p *Policy) IsPublicAPIPath(path string) bool {
	_, ok := p.publicAPIPaths[normalize(path)]
	return ok
}

// IsAPIPath reports whether path falls under the API prefix.
func (p *Policy) IsAPIPath(path string) bool {
	path = normalize(path)
	return path == p.apiPrefix || strings.HasPrefix(path, p.apiPrefix+"/")
}

// Applies reports whether the gate runs for path at all. API paths are always
// gated. Otherwise static assets (any path whose last segment has a file
// extension) and the excluded prefixes bypass it.
func (p *Policy) Applies(path string) bool {
	if p.IsAPIPath(path) {
		return true
	}
	for _, prefix := range p.excludedPrefixes {
		base := strings.TrimRight(prefix, "/")
		if path == base || strings.HasPrefix(path, base+"/") {
			return false
		}
	}
	return !hasFileExtension(path)
}

func hasFileExtension(path string) bool {
	last := path[strings.LastIndex(path, "/")+1:]
	dot := strings.LastIndex(last, ".")
	if dot <= 0 || dot == len(last)-1 {
		return false
	}
	for _, r := range last[dot+1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}

// Context builds the RequestContext for path.
func (p *Policy) Context(path string, authenticated bool) RequestContext {
	return RequestContext{
		Path:            path,
		IsAPIPath:       p.IsAPIPath(path),
		IsAuthenticated: authenticated,
	}
}
