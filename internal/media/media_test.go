package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipvault-dev/clipvault/internal/config"
)

func newTestCloudinary(t *testing.T, handler http.HandlerFunc) *Cloudinary {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewCloudinary(config.CloudinaryConfig{
		CloudName: "demo",
		APIKey:    "key",
		APISecret: "secret",
		BaseURL:   srv.URL,
	})
	require.NoError(t, err)
	return c
}

func TestCloudinary_UploadVideo(t *testing.T) {
	c := newTestCloudinary(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/demo/video/upload"), r.URL.Path)

		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.Equal(t, "video-uploads", r.FormValue("folder"))
		assert.Equal(t, "q_auto,f_mp4", r.FormValue("transformation"))
		assert.NotEmpty(t, r.FormValue("timestamp"))
		assert.NotEmpty(t, r.FormValue("signature"))

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		body, _ := io.ReadAll(file)
		assert.Equal(t, "fake-video-bytes", string(body))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"public_id":"video-uploads/abc","secure_url":"https://res.cloudinary.com/demo/video/upload/v1/video-uploads/abc.mp4","bytes":9,"duration":12.5,"width":1280,"height":720,"format":"mp4"}`)
	})

	asset, err := c.Upload(context.Background(), UploadRequest{
		Kind:        KindVideo,
		Filename:    "clip.mp4",
		ContentType: "video/mp4",
		Size:        16,
		Body:        strings.NewReader("fake-video-bytes"),
	})
	require.NoError(t, err)

	assert.Equal(t, "video-uploads/abc", asset.PublicID)
	assert.Equal(t, "https://res.cloudinary.com/demo/video/upload/v1/video-uploads/abc.mp4", asset.URL)
	assert.EqualValues(t, 9, asset.Bytes)
	assert.Equal(t, 1280, asset.Width)
	assert.Equal(t, 720, asset.Height)
	assert.Equal(t, "mp4", asset.Format)
}

func TestCloudinary_UploadImageHasNoTransformation(t *testing.T) {
	c := newTestCloudinary(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/demo/image/upload"), r.URL.Path)
		assert.Equal(t, "image-uploads", r.FormValue("folder"))
		assert.Empty(t, r.FormValue("transformation"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"public_id":"image-uploads/xyz","bytes":3}`)
	})

	asset, err := c.Upload(context.Background(), UploadRequest{
		Kind: KindImage, Filename: "a.png", Body: strings.NewReader("png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "image-uploads/xyz", asset.PublicID)
	assert.Zero(t, asset.Duration)
}

func TestCloudinary_UploadErrors(t *testing.T) {
	t.Run("error payload", func(t *testing.T) {
		c := newTestCloudinary(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":{"message":"Invalid Signature"}}`)
		})
		_, err := c.Upload(context.Background(), UploadRequest{Kind: KindVideo, Body: strings.NewReader("x")})

		var hostErr *HostError
		require.ErrorAs(t, err, &hostErr)
		assert.Contains(t, hostErr.Message, "Invalid Signature")
	})

	t.Run("non json failure", func(t *testing.T) {
		c := newTestCloudinary(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			io.WriteString(w, "bad gateway")
		})
		_, err := c.Upload(context.Background(), UploadRequest{Kind: KindVideo, Body: strings.NewReader("x")})

		var hostErr *HostError
		require.ErrorAs(t, err, &hostErr)
	})

	t.Run("missing public id", func(t *testing.T) {
		c := newTestCloudinary(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{}`)
		})
		_, err := c.Upload(context.Background(), UploadRequest{Kind: KindVideo, Body: strings.NewReader("x")})
		require.Error(t, err)
	})
}

func TestDurationOf(t *testing.T) {
	raw := map[string]interface{}{"public_id": "video-uploads/abc", "duration": 12.5}
	assert.InDelta(t, 12.5, durationOf(raw), 0.001)
	assert.InDelta(t, 12.5, durationOf(&raw), 0.001)
	assert.Zero(t, durationOf(nil))
	assert.Zero(t, durationOf(map[string]interface{}{"duration": "long"}))
}

func TestCloudinary_Destroy(t *testing.T) {
	results := map[string]string{
		"video-uploads/ok":      `{"result":"ok"}`,
		"video-uploads/missing": `{"result":"not found"}`,
	}

	c := newTestCloudinary(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/demo/video/destroy"), r.URL.Path)
		assert.Equal(t, "key", r.FormValue("api_key"))
		assert.NotEmpty(t, r.FormValue("signature"))
		assert.Equal(t, "true", r.FormValue("invalidate"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, results[r.FormValue("public_id")])
	})

	require.NoError(t, c.Destroy(context.Background(), "video-uploads/ok", KindVideo))

	err := c.Destroy(context.Background(), "video-uploads/missing", KindVideo)
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestNewCloudinary_Incomplete(t *testing.T) {
	_, err := NewCloudinary(config.CloudinaryConfig{CloudName: "demo"})
	require.Error(t, err)
}

func TestCloudinary_URL(t *testing.T) {
	c := newTestCloudinary(t, func(http.ResponseWriter, *http.Request) {})

	assert.Equal(t,
		"https://res.cloudinary.com/demo/video/upload/video-uploads/abc",
		c.URL("video-uploads/abc", KindVideo, Transform{}))

	links := LinksFor(c, "video-uploads/abc")
	assert.Equal(t,
		"https://res.cloudinary.com/demo/video/upload/c_fill,f_jpg,g_auto,h_225,q_auto,w_400/video-uploads/abc",
		links.Thumbnail)
	assert.Equal(t,
		"https://res.cloudinary.com/demo/video/upload/h_225,w_400/e_preview:duration_15:max_seg_9:min_seg_dur_1/video-uploads/abc",
		links.Preview)
	assert.Equal(t,
		"https://res.cloudinary.com/demo/video/upload/h_1080,w_1920/video-uploads/abc",
		links.Download)
}

func TestSocialURLs(t *testing.T) {
	c := newTestCloudinary(t, func(http.ResponseWriter, *http.Request) {})

	urls := SocialURLs(c, "image-uploads/xyz")
	require.Len(t, urls, len(SocialFormats))
	assert.Equal(t, "Instagram Square", urls[0].Name)
	assert.Equal(t,
		"https://res.cloudinary.com/demo/image/upload/c_fill,g_auto,h_1080,w_1080/image-uploads/xyz",
		urls[0].URL)
	assert.Contains(t, urls[4].URL, "h_312,w_820")
}

func TestTransform_String(t *testing.T) {
	assert.Equal(t, "", Transform{}.String())
	assert.Equal(t, "e_blur", Transform{Raw: []string{"e_blur"}}.String())
	assert.Equal(t, "w_10", Transform{Width: 10}.String())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(&HostError{StatusCode: http.StatusNotFound}))
	assert.False(t, IsNotFound(&HostError{StatusCode: http.StatusBadRequest}))
	assert.False(t, IsNotFound(io.EOF))
	assert.Equal(t, "media host error: timeout", (&HostError{Message: "timeout"}).Error())
}

func TestNormaliseEndpoint(t *testing.T) {
	tests := []struct {
		raw      string
		endpoint string
		secure   bool
		wantErr  bool
	}{
		{raw: "minio:9000", endpoint: "minio:9000"},
		{raw: "http://minio:9000", endpoint: "minio:9000"},
		{raw: "https://s3.example.com", endpoint: "s3.example.com", secure: true},
		{raw: "https://s3.example.com/bucket", wantErr: true},
		{raw: "  ", wantErr: true},
		{raw: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			endpoint, secure, err := normaliseEndpoint(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.endpoint, endpoint)
			assert.Equal(t, tt.secure, secure)
		})
	}
}

func TestObjectKey(t *testing.T) {
	key := objectKey(KindVideo, "../Holiday.MP4")
	assert.True(t, strings.HasPrefix(key, "video-uploads/"), key)
	assert.True(t, strings.HasSuffix(key, ".mp4"), key)
	assert.Len(t, key, len("video-uploads/")+26+len(".mp4"))

	assert.True(t, strings.HasPrefix(objectKey(KindImage, "noext"), "image-uploads/"))
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(config.MediaConfig{Backend: "dropbox"})
	require.ErrorIs(t, err, ErrUnknownBackend)
}
