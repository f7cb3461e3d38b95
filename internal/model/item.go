package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// NamingPolicy selects how output file names are built.
type NamingPolicy string

const (
	// NamingDefault uses the file name derived from the item metadata.
	NamingDefault NamingPolicy = "default"

	// NamingTrack prefixes the file name with the item identifier.
	NamingTrack NamingPolicy = "track"
)

// ParseNamingPolicy validates a naming policy string.
func ParseNamingPolicy(s string) (NamingPolicy, error) {
	switch NamingPolicy(s) {
	case NamingDefault, NamingTrack:
		return NamingPolicy(s), nil
	}
	return "", fmt.Errorf("unknown naming policy %q (want default or track)", s)
}

// Extension is a target container/codec for output files, without the dot.
type Extension string

const (
	ExtensionM4A Extension = "m4a"
	ExtensionMP3 Extension = "mp3"
)

// ParseExtension validates a target extension string. A leading dot is accepted.
func ParseExtension(s string) (Extension, error) {
	s = strings.TrimPrefix(strings.ToLower(s), ".")
	switch Extension(s) {
	case ExtensionM4A, ExtensionMP3:
		return Extension(s), nil
	}
	return "", fmt.Errorf("unknown extension %q (want m4a or mp3)", s)
}

// Matches reports whether path already carries this extension.
func (e Extension) Matches(path string) bool {
	return strings.EqualFold(filepath.Ext(path), "."+string(e))
}

// Item is the parsed metadata document of one listing entry.
type Item struct {
	// Ref is the listing reference this item was resolved from.
	Ref ItemReference

	// MediaURL is the URL of the playable media file.
	MediaURL string

	// Title is the item title as published.
	Title string

	// FileName is the base output file name, including the media extension.
	FileName string

	// Optional fields used for tagging and playlists.
	AlbumTitle string
	Artist     string
	CoverURL   string
	Duration   float64
}

// OutputName returns the file name for the given naming policy.
//
//	Item{Ref: ItemReference{ID: "42"}, FileName: "Song.m4a"}.OutputName(NamingTrack) // "42_Song.m4a"
func (i *Item) OutputName(naming NamingPolicy) string {
	if naming == NamingTrack && i.Ref.ID != "" {
		return i.Ref.ID + "_" + i.FileName
	}
	return i.FileName
}

// OutputPath joins the album directory and OutputName.
func (i *Item) OutputPath(albumPath string, naming NamingPolicy) string {
	return filepath.Join(albumPath, i.OutputName(naming))
}
