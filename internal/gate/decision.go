package gate

import "net/http"

// Outcome is the closed set of results the gate can produce.
type Outcome int

const (
	Allow Outcome = iota
	RedirectLanding
	RedirectSignIn
	Unauthorized
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case RedirectLanding:
		return "redirect_landing"
	case RedirectSignIn:
		return "redirect_sign_in"
	case Unauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// UnauthorizedMessage is the value of the "error" field in 401 responses.
const UnauthorizedMessage = "Unauthorized"

// RequestContext is what the gate knows about a single request.
type RequestContext struct {
	Path            string
	IsAPIPath       bool
	IsAuthenticated bool
}

// Decision is the gate's verdict for one request. Location is set for the
// redirect outcomes only.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Status returns the HTTP status code the outcome maps to, or 0 for Allow.
func (d Decision) Status() int {
	switch d.Outcome {
	case RedirectLanding, RedirectSignIn:
		return http.StatusFound
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		return 0
	}
}

// Decide applies the policy to req. Rules are evaluated in order and the
// first match wins:
//
//  1. "/" redirects to the landing page (only for anonymous callers when the
//     policy uses RootRedirectUnauthenticated).
//  2. Authenticated callers on a public-only page (sign-in, sign-up) other
//     than the landing page are sent to the landing page.
//  3. Anonymous callers on a non-public API path get 401; on any other
//     non-public path they are sent to sign-in.
//  4. Everything else is allowed.
func Decide(p *Policy, req RequestContext) Decision {
	path := normalize(req.Path)

	if path == "/" {
		if p.rootMode == RootRedirectAlways || !req.IsAuthenticated {
			return p.redirect(RedirectLanding)
		}
	}

	if req.IsAuthenticated {
		if p.IsPublicOnlyPage(path) && path != p.landingPath {
			return p.redirect(RedirectLanding)
		}
		return Decision{Outcome: Allow}
	}

	publicAPI := p.IsPublicAPIPath(path)

	// Checked before the sign-in redirect: API callers never get a redirect.
	if req.IsAPIPath && !publicAPI {
		return Decision{Outcome: Unauthorized}
	}

	if !p.IsPublicPage(path) && !publicAPI {
		return p.redirect(RedirectSignIn)
	}

	return Decision{Outcome: Allow}
}

func (p *Policy) redirect(o Outcome) Decision {
	if o == RedirectSignIn {
		return Decision{Outcome: o, Location: p.signInPath}
	}
	return Decision{Outcome: o, Location: p.landingPath}
}
