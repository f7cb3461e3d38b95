package audio

import (
	"fmt"
	"strconv"

	"github.com/bogem/id3v2"

	"github.com/handiism/album-dl/internal/model"
)

// TagEditAction defines how to handle individual ID3 tags.
type TagEditAction int

const (
	TagEmpty       TagEditAction = iota // remove the frame
	TagModify                           // write the value from item metadata
	TagDoNotModify                      // keep whatever the file has
)

// TagConfig selects what happens to each ID3 frame.
type TagConfig struct {
	// ModifyTags gates all text frames. Artwork is controlled by the caller.
	ModifyTags bool

	Artist      TagEditAction // TPE1
	AlbumArtist TagEditAction // TPE2
	Album       TagEditAction // TALB
	TrackNumber TagEditAction // TRCK
	TrackTitle  TagEditAction // TIT2
	Comments    TagEditAction // COMM, only TagEmpty has an effect
}

// DefaultTagConfig returns the default tag configuration: every field is
// updated from the item metadata and comments are cleared.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags:  true,
		Artist:      TagModify,
		AlbumArtist: TagModify,
		Album:       TagModify,
		TrackNumber: TagModify,
		TrackTitle:  TagModify,
		Comments:    TagEmpty,
	}
}

// TrackInfo is what the tagger writes into one file.
type TrackInfo struct {
	Title  string
	Album  string
	Artist string

	// Number is the 1-based position in the listing, 0 if unknown.
	Number int
}

// NewTrackInfo builds TrackInfo from parsed item metadata. albumTitle is used
// when the metadata itself carries no album title.
func NewTrackInfo(item *model.Item, albumTitle string, number int) TrackInfo {
	info := TrackInfo{
		Title:  item.Title,
		Album:  item.AlbumTitle,
		Artist: item.Artist,
		Number: number,
	}
	if info.Album == "" {
		info.Album = albumTitle
	}
	return info
}

// Tagger writes ID3 tags to MP3 files.
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// SaveTags writes ID3 tags to the MP3 file at path.
//
// Existing frames are parsed and kept unless the config says otherwise.
// artwork, when non-nil, replaces any attached front cover and must be JPEG.
func (t *Tagger) SaveTags(path string, info TrackInfo, artwork []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open tags %s: %w", path, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	if t.config.ModifyTags {
		t.updateStringTags(tag, info)
	}

	if artwork != nil {
		t.updateArtwork(tag, artwork)
	}

	return tag.Save()
}

// textFrame pairs a frame ID with its configured action and value.
type textFrame struct {
	id     string
	action TagEditAction
	value  string
}

func (t *Tagger) frames(info TrackInfo) []textFrame {
	var number string
	if info.Number > 0 {
		number = strconv.Itoa(info.Number)
	}
	return []textFrame{
		{"TPE1", t.config.Artist, info.Artist},
		{"TPE2", t.config.AlbumArtist, info.Artist},
		{"TALB", t.config.Album, info.Album},
		{"TRCK", t.config.TrackNumber, number},
		{"TIT2", t.config.TrackTitle, info.Title},
	}
}

// updateStringTags applies the frame actions. An empty value never
// overwrites an existing frame.
func (t *Tagger) updateStringTags(tag *id3v2.Tag, info TrackInfo) {
	for _, f := range t.frames(info) {
		switch {
		case f.action == TagEmpty:
			tag.DeleteFrames(f.id)
		case f.action == TagModify && f.value != "":
			tag.AddTextFrame(f.id, id3v2.EncodingUTF8, f.value)
		}
	}

	if t.config.Comments == TagEmpty {
		tag.DeleteFrames(tag.CommonID("Comments"))
	}
}

// updateArtwork embeds cover art as an attached picture frame.
func (t *Tagger) updateArtwork(tag *id3v2.Tag, artwork []byte) {
	tag.DeleteFrames(tag.CommonID("Attached picture"))

	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	})
}
