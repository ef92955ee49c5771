package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnauthorized is returned when the server rejects the stored token
var ErrUnauthorized = errors.New("session expired or invalid. Please run 'clipvault login' again")

// APIError is a non-success response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// Client represents an HTTP client for the clipvault API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a new API client
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Video uploads can take a while
			Timeout: 10 * time.Minute,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.token = token
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User represents an account
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Video represents an uploaded video
type Video struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	PublicID           string    `json:"public_id"`
	URL                string    `json:"url"`
	OriginalSize       int64     `json:"original_size"`
	CompressedSize     int64     `json:"compressed_size"`
	CompressionPercent int       `json:"compression_percent"`
	Duration           float64   `json:"duration"`
	OwnerID            string    `json:"owner_id"`
	CreatedAt          time.Time `json:"created_at"`
	Links              struct {
		Thumbnail string `json:"thumbnail"`
		Preview   string `json:"preview"`
		Download  string `json:"download"`
	} `json:"links"`
}

// Login authenticates the user and returns a JWT token
func (c *Client) Login(email, password string) (*LoginResponse, error) {
	jsonData, err := json.Marshal(LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/auth/sign-in", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var loginResp LoginResponse
	if err := c.do(req, http.StatusOK, &loginResp); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return &loginResp, nil
}

// Me returns the authenticated user
func (c *Client) Me() (*User, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/auth/me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var user User
	if err := c.do(req, http.StatusOK, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListVideos returns videos newest first. mine restricts the list to the
// caller's own videos; limit <= 0 uses the server default.
func (c *Client) ListVideos(mine bool, limit int) ([]Video, error) {
	query := url.Values{}
	if mine {
		query.Set("mine", "true")
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	target := c.baseURL + "/api/videos"
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var videos []Video
	if err := c.do(req, http.StatusOK, &videos); err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}

// UploadVideo streams the file at path to the server
func (c *Client) UploadVideo(path, title, description string) (*Video, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}
	if !strings.HasPrefix(mtype.String(), "video/") {
		return nil, fmt.Errorf("%s does not look like a video (detected %s)", filepath.Base(path), mtype.String())
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind file: %w", err)
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeUploadBody(mw, file, filepath.Base(path), mtype.String(), title, description)
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/video-upload", pr)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var video Video
	if err := c.do(req, http.StatusCreated, &video); err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	return &video, nil
}

func writeUploadBody(mw *multipart.Writer, file io.Reader, filename, contentType, title, description string) error {
	if err := mw.WriteField("title", title); err != nil {
		return err
	}
	if description != "" {
		if err := mw.WriteField("description", description); err != nil {
			return err
		}
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return err
	}
	return mw.Close()
}

// DeleteVideo deletes a video by ID
func (c *Client) DeleteVideo(videoID string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+"/api/videos/"+url.PathEscape(videoID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if err := c.do(req, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}

// do sends req and decodes the response into out when the status matches
func (c *Client) do(req *http.Request, wantStatus int, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		var payload struct {
			Error string `json:"error"`
		}
		message := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			message = payload.Error
		}
		if resp.StatusCode == http.StatusUnauthorized && c.token != "" {
			return ErrUnauthorized
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
