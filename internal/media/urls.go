package media

import (
	"strconv"
	"strings"
)

// SocialFormat is a named crop target for image sharing.
type SocialFormat struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Aspect string `json:"aspect"`
}

// SocialFormats lists the crops offered for uploaded images.
var SocialFormats = []SocialFormat{
	{Name: "Instagram Square", Width: 1080, Height: 1080, Aspect: "1:1"},
	{Name: "Instagram Portrait", Width: 1080, Height: 1350, Aspect: "4:5"},
	{Name: "Twitter Post", Width: 1200, Height: 675, Aspect: "16:9"},
	{Name: "Twitter Header", Width: 1500, Height: 500, Aspect: "3:1"},
	{Name: "Facebook Cover", Width: 820, Height: 312, Aspect: "205:78"},
}

// FormatURL pairs a social format with its delivery URL.
type FormatURL struct {
	SocialFormat
	URL string `json:"url"`
}

// VideoLinks are the derived URLs shown for a video.
type VideoLinks struct {
	Thumbnail string `json:"thumbnail"`
	Preview   string `json:"preview"`
	Download  string `json:"download"`
}

var (
	thumbnailTransform = Transform{Width: 400, Height: 225, Crop: "fill", Gravity: "auto", Format: "jpg", Quality: "auto"}
	previewTransform   = Transform{Width: 400, Height: 225, Raw: []string{"e_preview:duration_15:max_seg_9:min_seg_dur_1"}}
	downloadTransform  = Transform{Width: 1920, Height: 1080}
)

// LinksFor derives the thumbnail, preview and download URLs for a video.
func LinksFor(h Host, publicID string) VideoLinks {
	return VideoLinks{
		Thumbnail: h.URL(publicID, KindVideo, thumbnailTransform),
		Preview:   h.URL(publicID, KindVideo, previewTransform),
		Download:  h.URL(publicID, KindVideo, downloadTransform),
	}
}

// SocialURLs derives one delivery URL per social format for an image.
func SocialURLs(h Host, publicID string) []FormatURL {
	out := make([]FormatURL, 0, len(SocialFormats))
	for _, f := range SocialFormats {
		out = append(out, FormatURL{
			SocialFormat: f,
			URL: h.URL(publicID, KindImage, Transform{
				Width: f.Width, Height: f.Height, Crop: "fill", Gravity: "auto",
			}),
		})
	}
	return out
}

// String renders t in the comma-separated URL component syntax, e.g.
// "c_fill,g_auto,h_225,w_400/e_preview:duration_15". Raw components follow
// the sized component as separate chained segments.
func (t Transform) String() string {
	var parts []string
	if t.Crop != "" {
		parts = append(parts, "c_"+t.Crop)
	}
	if t.Format != "" {
		parts = append(parts, "f_"+t.Format)
	}
	if t.Gravity != "" {
		parts = append(parts, "g_"+t.Gravity)
	}
	if t.Height > 0 {
		parts = append(parts, "h_"+strconv.Itoa(t.Height))
	}
	if t.Quality != "" {
		parts = append(parts, "q_"+t.Quality)
	}
	if t.Width > 0 {
		parts = append(parts, "w_"+strconv.Itoa(t.Width))
	}

	segments := make([]string, 0, 1+len(t.Raw))
	if len(parts) > 0 {
		segments = append(segments, strings.Join(parts, ","))
	}
	segments = append(segments, t.Raw...)
	return strings.Join(segments, "/")
}
