package dto

import (
	"net/url"
	"path"
	"strings"

	ioutils "github.com/handiism/album-dl/internal/io"
	"github.com/handiism/album-dl/internal/model"
)

const defaultMediaExt = ".m4a"

// JSONTrack represents a track metadata document.
type JSONTrack struct {
	PlayPath64 string  `json:"play_path_64"`
	PlayPath32 string  `json:"play_path_32"`
	PlayPath   string  `json:"play_path"`
	Title      string  `json:"title"`
	AlbumTitle string  `json:"album_title"`
	Nickname   string  `json:"nickname"`
	CoverURL   string  `json:"cover_url"`
	Duration   float64 `json:"duration"`
}

// MediaURL returns the preferred playable URL: the 64 kbps stream, then the
// 32 kbps one, then the generic path.
func (jt *JSONTrack) MediaURL() string {
	for _, u := range []string{jt.PlayPath64, jt.PlayPath32, jt.PlayPath} {
		if u = strings.TrimSpace(u); u != "" {
			if strings.HasPrefix(u, "//") {
				u = "https:" + u
			}
			return u
		}
	}
	return ""
}

// ToItem converts JSONTrack to a model.Item.
//
// The file name is the title with non-ASCII characters removed and invalid
// characters replaced, plus the media URL's extension. When nothing of the
// title survives, the track ID is used instead.
func (jt *JSONTrack) ToItem(ref model.ItemReference) *model.Item {
	mediaURL := jt.MediaURL()

	base := ioutils.SanitizeFileName(ioutils.StripNonASCII(jt.Title))
	if base == "" {
		base = ref.ID
	}

	return &model.Item{
		Ref:        ref,
		MediaURL:   mediaURL,
		Title:      jt.Title,
		FileName:   base + mediaExt(mediaURL),
		AlbumTitle: jt.AlbumTitle,
		Artist:     jt.Nickname,
		CoverURL:   jt.CoverURL,
		Duration:   jt.Duration,
	}
}

// mediaExt returns the extension of the URL path, ignoring any query string.
func mediaExt(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := path.Ext(p)
	if ext == "" || len(ext) > 5 {
		return defaultMediaExt
	}
	return strings.ToLower(ext)
}
