package audio

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ioutils "github.com/handiism/album-dl/internal/io"
	"github.com/handiism/album-dl/internal/model"
)

// PlaylistFormat is a playlist file format.
type PlaylistFormat int

const (
	FormatM3U PlaylistFormat = iota
	FormatPLS
	FormatWPL // Windows Media Player SMIL
	FormatZPL // Zune SMIL
)

var formatExts = map[PlaylistFormat]string{
	FormatM3U: ".m3u",
	FormatPLS: ".pls",
	FormatWPL: ".wpl",
	FormatZPL: ".zpl",
}

// ParsePlaylistFormat maps a config value (m3u, pls, wpl, zpl) to a PlaylistFormat.
func ParsePlaylistFormat(s string) (PlaylistFormat, error) {
	ext := "." + strings.ToLower(strings.TrimPrefix(s, "."))
	for f, e := range formatExts {
		if e == ext {
			return f, nil
		}
	}
	return FormatM3U, fmt.Errorf("unknown playlist format %q (want m3u, pls, wpl or zpl)", s)
}

// Ext returns the file extension of the format, with the leading dot.
func (f PlaylistFormat) Ext() string {
	if ext, ok := formatExts[f]; ok {
		return ext
	}
	return formatExts[FormatM3U]
}

// PlaylistEntry is one line of a playlist.
type PlaylistEntry struct {
	// Path is the file location; only its base name is written.
	Path     string
	Title    string
	Artist   string
	Duration float64
}

// EntriesFromResults builds playlist entries from the successful results of a
// run, ordered as the items appear in job.
func EntriesFromResults(job *model.AlbumJob, results []model.ItemResult) []PlaylistEntry {
	byID := make(map[string]model.ItemResult, len(results))
	for _, r := range results {
		if r.Failed() || r.Path == "" {
			continue
		}
		byID[r.Ref.ID] = r
	}

	entries := make([]PlaylistEntry, 0, len(byID))
	for _, ref := range job.Items {
		r, ok := byID[ref.ID]
		if !ok {
			continue
		}
		e := PlaylistEntry{Path: r.Path, Title: strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path))}
		if r.Item != nil {
			if r.Item.Title != "" {
				e.Title = r.Item.Title
			}
			e.Artist = r.Item.Artist
			e.Duration = r.Item.Duration
		}
		entries = append(entries, e)
	}
	return entries
}

// PlaylistCreator renders entries in one format. Extended only affects M3U,
// where it adds the #EXTM3U header and #EXTINF lines.
type PlaylistCreator struct {
	format   PlaylistFormat
	extended bool
}

func NewPlaylistCreator(format PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{format: format, extended: extended}
}

// CreatePlaylist generates playlist content. Paths are written as base names,
// assuming the playlist sits in the same directory as the files.
func (p *PlaylistCreator) CreatePlaylist(title string, entries []PlaylistEntry) string {
	switch p.format {
	case FormatPLS:
		return p.createPLS(entries)
	case FormatWPL:
		return writeSMIL("wpl", "1.0", title, nil, entries, func(e PlaylistEntry) string {
			return fmt.Sprintf(`src="%s"`, xmlEscaper.Replace(filepath.Base(e.Path)))
		})
	case FormatZPL:
		meta := []string{
			`<meta name="Generator" content="album-dl"/>`,
			fmt.Sprintf(`<meta name="ItemCount" content="%d"/>`, len(entries)),
		}
		return writeSMIL("zpl", "2.0", title, meta, entries, func(e PlaylistEntry) string {
			ms := time.Duration(e.Duration * float64(time.Second)).Milliseconds()
			return fmt.Sprintf(`src="%s" albumTitle="%s" trackTitle="%s" trackArtist="%s" duration="%d"`,
				xmlEscaper.Replace(filepath.Base(e.Path)), xmlEscaper.Replace(title),
				xmlEscaper.Replace(e.Title), xmlEscaper.Replace(e.Artist), ms)
		})
	default:
		return p.createM3U(entries)
	}
}

// WritePlaylist writes the playlist for job into its album directory, named
// after the album, and returns the file path.
func (p *PlaylistCreator) WritePlaylist(job *model.AlbumJob, entries []PlaylistEntry) (string, error) {
	name := ioutils.SanitizeFileName(job.Title)
	if name == "" {
		name = "playlist"
	}
	path := filepath.Join(job.Path, name+p.format.Ext())

	if err := ioutils.WriteFileAtomic(path, []byte(p.CreatePlaylist(job.Title, entries))); err != nil {
		return "", fmt.Errorf("write playlist: %w", err)
	}
	return path, nil
}

func (p *PlaylistCreator) createM3U(entries []PlaylistEntry) string {
	var sb strings.Builder
	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}
	for _, e := range entries {
		if p.extended {
			name := e.Title
			if e.Artist != "" {
				name = e.Artist + " - " + e.Title
			}
			fmt.Fprintf(&sb, "#EXTINF:%d,%s\n", int(e.Duration), name)
		}
		fmt.Fprintln(&sb, filepath.Base(e.Path))
	}
	return sb.String()
}

func (p *PlaylistCreator) createPLS(entries []PlaylistEntry) string {
	var sb strings.Builder
	sb.WriteString("[playlist]\n")
	for i, e := range entries {
		n := i + 1
		fmt.Fprintf(&sb, "File%d=%s\nTitle%d=%s\nLength%d=%d\n", n, filepath.Base(e.Path), n, e.Title, n, int(e.Duration))
	}
	fmt.Fprintf(&sb, "NumberOfEntries=%d\nVersion=2\n", len(entries))
	return sb.String()
}

// writeSMIL renders the SMIL document shared by WPL and ZPL. attrs returns
// the attributes of one media element.
func writeSMIL(kind, version, title string, meta []string, entries []PlaylistEntry, attrs func(PlaylistEntry) string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<?%s version=\"%s\"?>\n<smil>\n  <head>\n", kind, version)
	fmt.Fprintf(&sb, "    <title>%s</title>\n", xmlEscaper.Replace(title))
	for _, m := range meta {
		fmt.Fprintf(&sb, "    %s\n", m)
	}
	sb.WriteString("  </head>\n  <body>\n    <seq>\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "      <media %s/>\n", attrs(e))
	}
	sb.WriteString("    </seq>\n  </body>\n</smil>\n")
	return sb.String()
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
