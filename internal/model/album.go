package model

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	ioutils "github.com/handiism/album-dl/internal/io"
)

// ItemReference identifies one entry of an album listing.
//
// It is produced by the listing parser and never modified afterwards.
type ItemReference struct {
	// DetailURL is the link to the item's page as found on the listing.
	DetailURL string

	// MetadataURL is the URL of the item's metadata document.
	MetadataURL string

	// ID is the item identifier, used by the "track" naming policy.
	ID string

	// Index is the 1-based position on the listing page.
	Index int
}

// AlbumJob is one album download: an ordered set of items plus the
// directory their files are written to.
type AlbumJob struct {
	// Title is the album title as found on the listing page.
	Title string

	// Path is the album output directory, <outputRoot>/<sanitized title>.
	Path string

	// Items holds one reference per track, in listing order.
	Items []ItemReference
}

// NewAlbumJob creates an AlbumJob whose Path is computed from the output root
// and the album title.
//
// Invalid filename characters in the title are replaced with underscores.
// The folder name is shortened on a rune boundary when the path would exceed
// Windows path length limits; the output root is never cut.
func NewAlbumJob(title, outputRoot string, items []ItemReference) *AlbumJob {
	name := ioutils.SanitizeFileName(title)
	if over := len(filepath.Join(outputRoot, name)) - maxDirPath; over > 0 {
		name = truncateName(name, len(name)-over)
	}

	return &AlbumJob{
		Title: title,
		Path:  filepath.Join(outputRoot, name),
		Items: items,
	}
}

// maxDirPath is the longest directory path Windows accepts.
const maxDirPath = 247

// truncateName cuts name to at most n bytes without splitting a rune and
// drops trailing spaces and dots. At least one rune is kept.
func truncateName(name string, n int) string {
	if n >= len(name) {
		return name
	}
	for n > 0 && !utf8.RuneStart(name[n]) {
		n--
	}
	if cut := strings.TrimRight(name[:max(n, 0)], " ."); cut != "" {
		return cut
	}
	_, size := utf8.DecodeRuneInString(name)
	return name[:size]
}
