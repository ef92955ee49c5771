package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/clipvault-dev/clipvault/internal/auth"
	"github.com/clipvault-dev/clipvault/internal/models"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// SignUpRequest represents a registration request
type SignUpRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" form:"name" binding:"omitempty,max=100"`
}

// SignInRequest represents a login request
type SignInRequest struct {
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

// SignInResponse represents a login response
type SignInResponse struct {
	Token string      `json:"token"`
	User  *UserDetail `json:"user"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func userDetail(u *models.User) *UserDetail {
	return &UserDetail{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

// registerUser creates an account. Emails are stored lower-cased.
func (s *Server) registerUser(ctx context.Context, req SignUpRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(req.Name),
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered")
	return user, nil
}

// authenticateUser checks credentials. Unknown emails and wrong passwords
// both yield ErrInvalidCredentials.
func (s *Server) authenticateUser(ctx context.Context, req SignInRequest) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}

// startSession issues a token and stores it in the session cookie
func (s *Server) startSession(c *gin.Context, user *models.User) (string, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		return "", err
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, token, int(s.tokens.TTL().Seconds()), "/", "", s.config.Auth.CookieSecure, true)
	return token, nil
}

func (s *Server) endSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", s.config.Auth.CookieSecure, true)
}

// @Summary Sign up
// @Description Creates an account and starts a session
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignUpRequest true "Sign-up request"
// @Success 201 {object} SignInResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/auth/sign-up [post]
func (s *Server) signUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.registerUser(c.Request.Context(), req)
	if errors.Is(err, ErrEmailTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to register user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := s.startSession(c, user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, SignInResponse{Token: token, User: userDetail(user)})
}

// @Summary Sign in
// @Description Authenticates with email and password. The token is returned and also set as a cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignInRequest true "Sign-in request"
// @Success 200 {object} SignInResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/sign-in [post]
func (s *Server) signIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.authenticateUser(c.Request.Context(), req)
	if errors.Is(err, ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to authenticate user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := s.startSession(c, user)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User signed in")
	c.JSON(http.StatusOK, SignInResponse{Token: token, User: userDetail(user)})
}

// @Summary Sign out
// @Description Clears the session cookie
// @Tags auth
// @Success 204
// @Router /api/auth/sign-out [post]
func (s *Server) signOut(c *gin.Context) {
	s.endSession(c)
	c.Status(http.StatusNoContent)
}

// @Summary Get current user
// @Description Returns the authenticated user's details
// @Tags auth
// @Produce json
// @Success 200 {object} UserDetail
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	session, ok := requireSession(c, s.logger)
	if !ok {
		return
	}

	var user models.User
	if err := models.FindByID(s.db.WithContext(c.Request.Context()), session.UserID, &user); err != nil {
		s.logger.Error().Err(err).Str("user_id", session.UserID).Msg("Failed to load current user")
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, userDetail(&user))
}
