package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mp4Header is the start of an ISO base media file
var mp4Header = []byte{
	0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm',
	0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'i', 's', 'o', '2',
}

func TestLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/sign-in", r.URL.Path)
		var req LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "secret-pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok","user":{"id":"u1","email":"a@example.com"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	resp, err := c.Login("a@example.com", "secret-pw")
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, "a@example.com", resp.User.Email)

	_, err = c.Login("a@example.com", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
}

func TestListVideos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.URL.Query().Get("mine"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"id":"v1","title":"One","compressed_size":10}]`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok")
	videos, err := c.ListVideos(true, 5)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "One", videos[0].Title)
}

func TestExpiredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("stale")
	_, err := c.Me()
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestUploadVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/video-upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Clip", r.FormValue("title"))
		assert.Equal(t, "about", r.FormValue("description"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "clip.mp4", header.Filename)
		assert.Equal(t, "video/mp4", header.Header.Get("Content-Type"))
		data, _ := io.ReadAll(file)
		assert.Equal(t, mp4Header, data)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"v1","title":"Clip"}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(path, mp4Header, 0644))

	c := New(srv.URL)
	c.SetToken("tok")
	video, err := c.UploadVideo(path, "Clip", "about")
	require.NoError(t, err)
	assert.Equal(t, "v1", video.ID)
}

func TestUploadVideo_RejectsNonVideo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just some text\n"), 0644))

	c := New("http://127.0.0.1:0")
	_, err := c.UploadVideo(path, "Notes", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not look like a video")
}

func TestDeleteVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		if r.URL.Path == "/api/videos/v1" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Video not found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetToken("tok")
	require.NoError(t, c.DeleteVideo("v1"))

	err := c.DeleteVideo("v2")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
