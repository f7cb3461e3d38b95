package download

import (
	"time"

	"github.com/handiism/album-dl/internal/audio"
	"github.com/handiism/album-dl/internal/model"
)

// DefaultConcurrency is the worker pool width used when none is given.
const DefaultConcurrency = 10

// Options configures a Manager.
type Options struct {
	// OutputRoot is the directory album directories are created in.
	OutputRoot string

	// CacheDir holds listing pages, metadata documents and cover art.
	CacheDir string

	Naming    model.NamingPolicy
	Extension model.Extension

	// Concurrency is the default worker pool width for Run.
	Concurrency int

	UserAgent string
	Timeout   time.Duration

	// TrackURLFormat builds metadata URLs from item IDs.
	TrackURLFormat string

	// FFmpegPath is the transcoder binary, resolved on PATH.
	FFmpegPath string

	// TagConfig enables ID3 tagging of MP3 output when non-nil.
	TagConfig *audio.TagConfig

	// EmbedCover embeds cover art when tagging.
	EmbedCover      bool
	CoverArtMaxSize int

	// Playlist, when non-nil, writes a playlist of the successful items after Run.
	Playlist *audio.PlaylistCreator
}

func (o Options) withDefaults() Options {
	if o.Concurrency < 1 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Naming == "" {
		o.Naming = model.NamingDefault
	}
	if o.Extension == "" {
		o.Extension = model.ExtensionM4A
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	return o
}
