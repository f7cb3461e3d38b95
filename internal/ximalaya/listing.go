package ximalaya

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/handiism/album-dl/internal/model"
)

// DefaultTrackURLFormat builds a track metadata URL from a track ID.
const DefaultTrackURLFormat = "https://www.ximalaya.com/tracks/%s.json"

const (
	titleSelector = "h1.title"
	itemSelector  = "div.sound-list div.text a[href]"
)

// Listing is the parsed content of an album listing page.
type Listing struct {
	Title string
	Items []model.ItemReference
}

// ListingParser extracts the album title and item references from a listing page.
//
// Example usage:
//
//	parser := NewListingParser(DefaultTrackURLFormat)
//	listing, err := parser.Parse(strings.NewReader(html), albumURL)
//	for _, ref := range listing.Items {
//	    fmt.Println(ref.ID, ref.MetadataURL)
//	}
type ListingParser struct {
	trackURLFormat string
}

// NewListingParser creates a ListingParser. trackURLFormat must contain one %s
// verb for the track ID; an empty value selects DefaultTrackURLFormat.
func NewListingParser(trackURLFormat string) *ListingParser {
	if trackURLFormat == "" {
		trackURLFormat = DefaultTrackURLFormat
	}
	return &ListingParser{trackURLFormat: trackURLFormat}
}

// Parse reads a listing page. baseURL is the page's own URL and is used to make
// relative item links absolute.
//
// Items are returned in page order with duplicate IDs removed.
//
// Returns model.ErrNoTitle or model.ErrNoTracks (wrapped) when the page lacks
// the expected elements.
func (p *ListingParser) Parse(r io.Reader, baseURL string) (*Listing, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read listing HTML: %w", err)
	}

	title := ownText(doc.Find(titleSelector).First())
	if title == "" {
		return nil, model.ErrNoTitle
	}

	base, _ := url.Parse(baseURL)

	seen := make(map[string]struct{})
	var items []model.ItemReference
	doc.Find(itemSelector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		id := lastSegment(href)
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		items = append(items, model.ItemReference{
			DetailURL:   resolve(base, href),
			MetadataURL: fmt.Sprintf(p.trackURLFormat, id),
			ID:          id,
			Index:       len(items) + 1,
		})
	})

	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", title, model.ErrNoTracks)
	}

	return &Listing{Title: title, Items: items}, nil
}

// ownText returns the text of the selection's direct text children, falling
// back to its full text when it has none.
func ownText(s *goquery.Selection) string {
	own := s.Contents().FilterFunction(func(_ int, c *goquery.Selection) bool {
		return goquery.NodeName(c) == "#text"
	}).Text()
	if own = strings.TrimSpace(own); own != "" {
		return own
	}
	return strings.TrimSpace(s.Text())
}

// lastSegment returns the last non-empty path segment of href, without query.
func lastSegment(href string) string {
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	href = strings.TrimRight(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		href = href[i+1:]
	}
	return strings.TrimSpace(href)
}

func resolve(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
