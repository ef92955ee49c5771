package server

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
)

const multipartMemory = 8 << 20

var (
	ErrUploadTooLarge    = errors.New("upload too large")
	ErrMissingFile       = errors.New("missing file")
	ErrUnsupportedFormat = errors.New("unsupported file type")
)

// uploadedFile is a validated multipart file part
type uploadedFile struct {
	file        multipart.File
	filename    string
	contentType string
	size        int64
}

func (u *uploadedFile) Close() error {
	return u.file.Close()
}

// readUpload parses the multipart body, limited to maxBytes, and returns the
// "file" part if its media type starts with typePrefix.
func readUpload(c *gin.Context, maxBytes int64, typePrefix string) (*uploadedFile, error) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrUploadTooLarge
		}
		return nil, fmt.Errorf("invalid multipart body: %w", err)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return nil, ErrMissingFile
	}

	contentType := header.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, typePrefix) {
		file.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
	}

	return &uploadedFile{
		file:        file,
		filename:    header.Filename,
		contentType: mediaType,
		size:        header.Size,
	}, nil
}

// uploadErrorStatus maps readUpload errors to a status and message
func uploadErrorStatus(err error, maxBytes int64) (int, string) {
	switch {
	case errors.Is(err, ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds the %s limit", humanize.IBytes(uint64(maxBytes)))
	case errors.Is(err, ErrMissingFile):
		return http.StatusBadRequest, "File not found"
	case errors.Is(err, ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "Unsupported file type"
	default:
		return http.StatusBadRequest, "Invalid upload"
	}
}
