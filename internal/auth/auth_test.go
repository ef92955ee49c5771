package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/clipvault-dev/clipvault/internal/models"
)

func newTestManager(t *testing.T) *TokenManager {
	t.Helper()
	secret, err := GenerateSecret()
	require.NoError(t, err)
	require.Len(t, secret, 64)
	m, err := NewTokenManager(secret)
	require.NoError(t, err)
	return m
}

func TestNewTokenManager_EmptySecret(t *testing.T) {
	_, err := NewTokenManager("")
	require.ErrorIs(t, err, ErrSecretNotInitialized)
}

func TestTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, err := m.GenerateToken("user-1", "a@example.com")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
}

func TestValidateToken_Rejects(t *testing.T) {
	m := newTestManager(t)
	other := newTestManager(t)

	foreign, err := other.GenerateToken("user-1", "a@example.com")
	require.NoError(t, err)
	_, err = m.ValidateToken(foreign)
	require.Error(t, err, "token signed with another secret")

	_, err = m.ValidateToken("not-a-jwt")
	require.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{UserID: "user-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ValidateToken(unsigned)
	require.Error(t, err, "alg none")
}

func TestValidateToken_Expired(t *testing.T) {
	m := newTestManager(t)
	issued := time.Now().Add(-30 * 24 * time.Hour)
	m.now = func() time.Time { return issued }

	token, err := m.GenerateToken("user-1", "a@example.com")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	require.NoError(t, VerifyPassword("hunter22", hash))
	require.Error(t, VerifyPassword("hunter23", hash))
}

func newResolverFixture(t *testing.T) (*Resolver, *TokenManager, *models.User) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auth.sqlite")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	user := &models.User{Email: "a@example.com", PasswordHash: "x", Name: "Ada"}
	require.NoError(t, db.Create(user).Error)

	m := newTestManager(t)
	return NewResolver(m, db, time.Second), m, user
}

func TestResolver_Resolve(t *testing.T) {
	res, m, user := newResolverFixture(t)

	token, err := m.GenerateToken(user.ID, user.Email)
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		session, err := res.Resolve(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, user.ID, session.UserID)
		assert.Equal(t, "Ada", session.Name)
		assert.Equal(t, "bearer", session.AuthMethod)
	})

	t.Run("session cookie", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/home", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})

		session, err := res.Resolve(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, "cookie", session.AuthMethod)
	})

	t.Run("no credentials", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/home", nil)
		_, err := res.Resolve(context.Background(), r)
		require.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("malformed header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/home", nil)
		r.Header.Set("Authorization", "Token "+token)
		_, err := res.Resolve(context.Background(), r)
		require.ErrorIs(t, err, ErrInvalidAuthFormat)

		r.Header.Set("Authorization", "Bearer ")
		_, err = res.Resolve(context.Background(), r)
		require.ErrorIs(t, err, ErrEmptyToken)
	})

	t.Run("unknown user", func(t *testing.T) {
		ghost, err := m.GenerateToken("01GHOSTGHOSTGHOSTGHOSTGHOS", "ghost@example.com")
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/home", nil)
		r.Header.Set("Authorization", "Bearer "+ghost)
		_, err = res.Resolve(context.Background(), r)
		require.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		r := httptest.NewRequest(http.MethodGet, "/home", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		_, err := res.Resolve(ctx, r)
		require.Error(t, err)
	})
}
