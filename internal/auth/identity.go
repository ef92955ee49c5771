package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/clipvault-dev/clipvault/internal/models"
)

const (
	// SessionCookie carries the token for browser sessions
	SessionCookie = "clipvault_session"

	bearerPrefix = "Bearer "
)

var (
	ErrNoCredentials     = errors.New("no credentials")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrUserNotFound      = errors.New("user not found")
)

// Resolver turns request credentials into a session. It is the only place
// the access gate waits on.
type Resolver struct {
	tokens  *TokenManager
	db      *gorm.DB
	timeout time.Duration
}

// NewResolver creates a Resolver. timeout bounds the user lookup.
func NewResolver(tokens *TokenManager, db *gorm.DB, timeout time.Duration) *Resolver {
	return &Resolver{tokens: tokens, db: db, timeout: timeout}
}

// Resolve returns the session for r. Callers treat any error as
// "unauthenticated".
func (res *Resolver) Resolve(ctx context.Context, r *http.Request) (*SessionData, error) {
	token, method, err := extractToken(r)
	if err != nil {
		return nil, err
	}

	claims, err := res.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	if res.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, res.timeout)
		defer cancel()
	}

	var user models.User
	if err := res.db.WithContext(ctx).Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return &SessionData{
		UserID:     user.ID,
		Email:      user.Email,
		Name:       user.Name,
		AuthMethod: method,
	}, nil
}

// extractToken prefers the Authorization header and falls back to the
// session cookie.
func extractToken(r *http.Request) (token, method string, err error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, err := extractBearerToken(header)
		return token, "bearer", err
	}

	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", "", ErrNoCredentials
	}
	return cookie.Value, "cookie", nil
}

func extractBearerToken(authHeader string) (string, error) {
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}
