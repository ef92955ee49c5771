package server

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"math"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/clipvault-dev/clipvault/internal/auth"
	"github.com/clipvault-dev/clipvault/internal/media"
	"github.com/clipvault-dev/clipvault/internal/videos"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFiles embed.FS

func staticFS() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

var templateFuncs = template.FuncMap{
	"bytes": func(n int64) string {
		if n < 0 {
			return "0 B"
		}
		return humanize.Bytes(uint64(n))
	},
	"duration": formatDuration,
	"ago":      humanize.Time,
}

// formatDuration renders seconds as m:ss or h:mm:ss
func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	total := int(math.Round(seconds))
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// authPage is the view model for the sign-in and sign-up forms
type authPage struct {
	Error string
	Email string
	Name  string
}

// homePage is the view model for the dashboard
type homePage struct {
	User     *auth.SessionData
	Videos   []VideoResponse
	MaxBytes int64
	Error    string
}

// socialSharePage is the view model for the image tool
type socialSharePage struct {
	User     *auth.SessionData
	Formats  []media.SocialFormat
	Image    *videos.ImageUpload
	MaxBytes int64
	Error    string
}

// rootPage is normally answered by the access gate
func (s *Server) rootPage(c *gin.Context) {
	c.Redirect(http.StatusFound, s.policy.LandingPath())
}

func (s *Server) signInPage(c *gin.Context) {
	c.HTML(http.StatusOK, "sign_in.html", authPage{})
}

func (s *Server) signInSubmit(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		c.HTML(http.StatusBadRequest, "sign_in.html", authPage{Error: "Enter your email and password.", Email: req.Email})
		return
	}

	user, err := s.authenticateUser(c.Request.Context(), req)
	if errors.Is(err, ErrInvalidCredentials) {
		c.HTML(http.StatusUnauthorized, "sign_in.html", authPage{Error: "Invalid email or password.", Email: req.Email})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to authenticate user")
		c.HTML(http.StatusInternalServerError, "sign_in.html", authPage{Error: "Something went wrong. Try again.", Email: req.Email})
		return
	}

	if _, err := s.startSession(c, user); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.HTML(http.StatusInternalServerError, "sign_in.html", authPage{Error: "Something went wrong. Try again.", Email: req.Email})
		return
	}

	c.Redirect(http.StatusSeeOther, s.policy.LandingPath())
}

func (s *Server) signUpPage(c *gin.Context) {
	c.HTML(http.StatusOK, "sign_up.html", authPage{})
}

func (s *Server) signUpSubmit(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindWith(&req, binding.Form); err != nil {
		c.HTML(http.StatusBadRequest, "sign_up.html", authPage{
			Error: "Enter a valid email and a password of at least 8 characters.",
			Email: req.Email,
			Name:  req.Name,
		})
		return
	}

	user, err := s.registerUser(c.Request.Context(), req)
	if errors.Is(err, ErrEmailTaken) {
		c.HTML(http.StatusConflict, "sign_up.html", authPage{Error: "That email is already registered.", Email: req.Email, Name: req.Name})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to register user")
		c.HTML(http.StatusInternalServerError, "sign_up.html", authPage{Error: "Something went wrong. Try again.", Email: req.Email, Name: req.Name})
		return
	}

	if _, err := s.startSession(c, user); err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.HTML(http.StatusInternalServerError, "sign_up.html", authPage{Error: "Something went wrong. Try again."})
		return
	}

	c.Redirect(http.StatusSeeOther, s.policy.LandingPath())
}

func (s *Server) signOutSubmit(c *gin.Context) {
	s.endSession(c)
	c.Redirect(http.StatusSeeOther, s.policy.SignInPath())
}

func (s *Server) homePage(c *gin.Context) {
	s.renderHome(c, http.StatusOK, "")
}

// renderHome lists the caller's videos. The gate guarantees a session here.
func (s *Server) renderHome(c *gin.Context, status int, message string) {
	session, ok := requireSession(c, s.logger)
	if !ok {
		return
	}

	list, err := s.videosService.ListVideos(c.Request.Context(), videos.ListVideosParams{
		OwnerID: session.UserID,
		Limit:   maxListLimit,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list videos")
		status, message = http.StatusInternalServerError, "Could not load your videos."
	}

	views := make([]VideoResponse, 0, len(list))
	for i := range list {
		views = append(views, s.videoResponse(&list[i]))
	}

	c.HTML(status, "home.html", homePage{
		User:     session,
		Videos:   views,
		MaxBytes: s.config.Upload.MaxVideoBytes,
		Error:    message,
	})
}

func (s *Server) homeUploadVideo(c *gin.Context) {
	session, ok := requireSession(c, s.logger)
	if !ok {
		return
	}

	video, status, message := s.handleVideoUpload(c, session.UserID)
	if video == nil {
		s.renderHome(c, status, message)
		return
	}

	c.Redirect(http.StatusSeeOther, s.policy.LandingPath())
}

func (s *Server) homeDeleteVideo(c *gin.Context) {
	session, ok := requireSession(c, s.logger)
	if !ok {
		return
	}

	err := s.videosService.DeleteVideo(c.Request.Context(), videos.DeleteVideoParams{
		VideoID:     c.Param("id"),
		RequesterID: session.UserID,
	})
	switch {
	case errors.Is(err, videos.ErrNotFound):
		s.renderHome(c, http.StatusNotFound, "That video no longer exists.")
	case errors.Is(err, videos.ErrForbidden):
		s.renderHome(c, http.StatusForbidden, "You can only delete your own videos.")
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to delete video")
		s.renderHome(c, http.StatusInternalServerError, "Could not delete the video.")
	default:
		c.Redirect(http.StatusSeeOther, s.policy.LandingPath())
	}
}

func (s *Server) socialSharePage(c *gin.Context) {
	session, ok := requireSession(c, s.logger)
	if !ok {
		return
	}

	c.HTML(http.StatusOK, "social_share.html", socialSharePage{
		User:     session,
		Formats:  media.SocialFormats,
		MaxBytes: s.config.Upload.MaxImageBytes,
	})
}

func (s *Server) socialShareSubmit(c *gin.Context) {
	session, ok := requireSession(c, s.logger)
	if !ok {
		return
	}

	image, status, message := s.handleImageUpload(c, session.UserID)
	c.HTML(status, "social_share.html", socialSharePage{
		User:     session,
		Formats:  media.SocialFormats,
		Image:    image,
		MaxBytes: s.config.Upload.MaxImageBytes,
		Error:    message,
	})
}
