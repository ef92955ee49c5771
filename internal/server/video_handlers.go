package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/clipvault-dev/clipvault/internal/media"
	"github.com/clipvault-dev/clipvault/internal/models"
	"github.com/clipvault-dev/clipvault/internal/videos"
)

const maxListLimit = 100

// VideoUploadForm holds the non-file fields of a video upload
type VideoUploadForm struct {
	Title       string `form:"title" binding:"required,notblank,max=200"`
	Description string `form:"description" binding:"max=2000"`
}

// VideoResponse represents a video in API responses
type VideoResponse struct {
	ID                 string           `json:"id"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	PublicID           string           `json:"public_id"`
	URL                string           `json:"url"`
	OriginalSize       int64            `json:"original_size"`
	CompressedSize     int64            `json:"compressed_size"`
	CompressionPercent int              `json:"compression_percent"`
	Duration           float64          `json:"duration"`
	OwnerID            string           `json:"owner_id"`
	CreatedAt          time.Time        `json:"created_at"`
	Links              media.VideoLinks `json:"links"`
}

// ImageUploadResponse represents the result of an image upload
type ImageUploadResponse struct {
	PublicID string            `json:"publicId"`
	URL      string            `json:"url"`
	Formats  []media.FormatURL `json:"formats"`
}

func (s *Server) videoResponse(v *models.Video) VideoResponse {
	return VideoResponse{
		ID:                 v.ID,
		Title:              v.Title,
		Description:        v.Description,
		PublicID:           v.PublicID,
		URL:                v.URL,
		OriginalSize:       v.OriginalSize,
		CompressedSize:     v.CompressedSize,
		CompressionPercent: v.CompressionPercent(),
		Duration:           v.Duration,
		OwnerID:            v.OwnerID,
		CreatedAt:          v.CreatedAt,
		Links:              s.videosService.Links(v),
	}
}

// hostFailure reports whether err came from the media host
func hostFailure(err error) bool {
	var hostErr *media.HostError
	return errors.As(err, &hostErr)
}

// @Summary Upload video
// @Description Uploads a video to the media host and records it
// @Tags videos
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Video file"
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Success 201 {object} VideoResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 413 {object} map[string]interface{}
// @Failure 415 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/video-upload [post]
func (s *Server) uploadVideo(c *gin.Context) {
	session, ok := requireSession(c, s.logger)
	if !ok {
		return
	}

	video, status, message := s.handleVideoUpload(c, session.UserID)
	if video == nil {
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusCreated, s.videoResponse(video))
}

// handleVideoUpload is shared by the API and the dashboard. On failure it
// returns a nil video with a status and message.
func (s *Server) handleVideoUpload(c *gin.Context, ownerID string) (*models.Video, int, string) {
	maxBytes := s.config.Upload.MaxVideoBytes
	upload, err := readUpload(c, maxBytes, "video/")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Rejected video upload")
		status, message := uploadErrorStatus(err, maxBytes)
		return nil, status, message
	}
	defer upload.Close()

	var form VideoUploadForm
	if err := c.ShouldBindWith(&form, binding.FormMultipart); err != nil {
		return nil, http.StatusBadRequest, err.Error()
	}

	video, err := s.videosService.CreateVideo(c.Request.Context(), videos.CreateVideoParams{
		OwnerID:      ownerID,
		Title:        form.Title,
		Description:  form.Description,
		Filename:     upload.filename,
		ContentType:  upload.contentType,
		OriginalSize: upload.size,
		Body:         upload.file,
	})
	if err != nil {
		if hostFailure(err) {
			return nil, http.StatusBadGateway, "Media host rejected the upload"
		}
		return nil, http.StatusInternalServerError, "Upload video failed"
	}

	return video, http.StatusCreated, ""
}

// @Summary Upload image
// @Description Uploads an image and returns social-format URLs
// @Tags images
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Success 200 {object} ImageUploadResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 413 {object} map[string]interface{}
// @Router /api/image-upload [post]
func (s *Server) uploadImage(c *gin.Context) {
	session, ok := requireSession(c, s.logger)
	if !ok {
		return
	}

	image, status, message := s.handleImageUpload(c, session.UserID)
	if image == nil {
		c.JSON(status, gin.H{"error": message})
		return
	}

	c.JSON(http.StatusOK, ImageUploadResponse{
		PublicID: image.PublicID,
		URL:      image.URL,
		Formats:  image.Formats,
	})
}

// handleImageUpload is shared by the API and the social-share page. On
// failure it returns a nil image with a status and message.
func (s *Server) handleImageUpload(c *gin.Context, ownerID string) (*videos.ImageUpload, int, string) {
	maxBytes := s.config.Upload.MaxImageBytes
	upload, err := readUpload(c, maxBytes, "image/")
	if err != nil {
		s.logger.Warn().Err(err).Msg("Rejected image upload")
		status, message := uploadErrorStatus(err, maxBytes)
		return nil, status, message
	}
	defer upload.Close()

	image, err := s.videosService.UploadImage(c.Request.Context(), videos.UploadImageParams{
		OwnerID:     ownerID,
		Filename:    upload.filename,
		ContentType: upload.contentType,
		Size:        upload.size,
		Body:        upload.file,
	})
	if err != nil {
		if hostFailure(err) {
			return nil, http.StatusBadGateway, "Media host rejected the upload"
		}
		return nil, http.StatusInternalServerError, "Upload image failed"
	}

	return image, http.StatusOK, ""
}

// @Summary List videos
// @Description Lists videos newest first. Pass mine=true to list only the caller's videos.
// @Tags videos
// @Produce json
// @Param limit query int false "Maximum number of videos (1-100)"
// @Param mine query bool false "Only the caller's videos"
// @Success 200 {array} VideoResponse
// @Router /api/videos [get]
func (s *Server) listVideos(c *gin.Context) {
	params := videos.ListVideosParams{Limit: maxListLimit}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		params.Limit = limit
	}

	if c.Query("mine") == "true" {
		session, ok := requireSession(c, s.logger)
		if !ok {
			return
		}
		params.OwnerID = session.UserID
	}

	list, err := s.videosService.ListVideos(c.Request.Context(), params)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list videos")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching videos"})
		return
	}

	response := make([]VideoResponse, 0, len(list))
	for i := range list {
		response = append(response, s.videoResponse(&list[i]))
	}

	c.JSON(http.StatusOK, response)
}

// @Summary Get video
// @Tags videos
// @Produce json
// @Param id path string true "Video ID"
// @Success 200 {object} VideoResponse
// @Failure 404 {object} map[string]interface{}
// @Router /api/videos/{id} [get]
func (s *Server) getVideo(c *gin.Context) {
	video, err := s.videosService.GetVideo(c.Request.Context(), c.Param("id"))
	if errors.Is(err, videos.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to fetch video")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching video"})
		return
	}

	c.JSON(http.StatusOK, s.videoResponse(video))
}

// @Summary Delete video
// @Description Deletes one of the caller's videos. The remote asset is removed in the background.
// @Tags videos
// @Param id path string true "Video ID"
// @Success 204
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/videos/{id} [delete]
func (s *Server) deleteVideo(c *gin.Context) {
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
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
	case errors.Is(err, videos.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can delete this video"})
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to delete video")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting video"})
	default:
		c.Status(http.StatusNoContent)
	}
}
