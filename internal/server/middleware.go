package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/clipvault-dev/clipvault/internal/auth"
	"github.com/clipvault-dev/clipvault/internal/gate"
	"github.com/clipvault-dev/clipvault/internal/metrics"
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

// AccessGateMiddleware applies the access policy to every request the policy
// covers. A caller whose identity cannot be resolved is treated as
// unauthenticated.
func AccessGateMiddleware(policy *gate.Policy, resolver *auth.Resolver, m *metrics.Metrics, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if !policy.Applies(path) {
			c.Next()
			return
		}

		session, err := resolver.Resolve(c.Request.Context(), c.Request)
		authenticated := err == nil
		if authenticated {
			setSession(c, session)
		} else if !errors.Is(err, auth.ErrNoCredentials) {
			log.Debug().Err(err).Str("path", path).Msg("Identity not resolved, continuing unauthenticated")
		}

		decision := gate.Decide(policy, policy.Context(path, authenticated))
		m.GateDecisions.WithLabelValues(decision.Outcome.String()).Inc()

		switch decision.Outcome {
		case gate.Allow:
			c.Next()
		case gate.Unauthorized:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gate.UnauthorizedMessage})
		default:
			log.Debug().
				Str("path", path).
				Str("outcome", decision.Outcome.String()).
				Str("location", decision.Location).
				Msg("Access gate redirect")
			c.Redirect(decision.Status(), decision.Location)
			c.Abort()
		}
	}
}

// requireSession returns the caller's session. Routes outside the public
// lists are already gated, so a missing session here only happens on public
// routes that need an identity.
func requireSession(c *gin.Context, log zerolog.Logger) (*auth.SessionData, bool) {
	session, ok := GetSessionData(c)
	if !ok {
		respondWithError(c, log, http.StatusUnauthorized, errors.New("no session"), gate.UnauthorizedMessage)
		return nil, false
	}
	return session, true
}
