package download

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/handiism/album-dl/internal/audio"
	"github.com/handiism/album-dl/internal/cache"
	apphttp "github.com/handiism/album-dl/internal/http"
	ioutils "github.com/handiism/album-dl/internal/io"
	"github.com/handiism/album-dl/internal/model"
	"github.com/handiism/album-dl/internal/ximalaya"
)

// Processor runs one item from metadata to output file.
//
// Implementations never return failures out of band: every error is carried
// in the returned result.
type Processor interface {
	Process(ctx context.Context, albumPath string, naming model.NamingPolicy, ext model.Extension, ref model.ItemReference) model.ItemResult
}

// Converter transcodes a file into the target extension.
type Converter interface {
	Convert(ctx context.Context, src string, ext model.Extension) (string, error)
}

// Pipeline is the per-item Processor:
//
//  1. fetch the metadata document through the cache
//  2. parse media URL and file name
//  3. compute the output path from the naming policy
//  4. fetch the media with resume support
//  5. convert when the media extension differs from the target
//
// MP3 files produced by the run are then tagged.
type Pipeline struct {
	cache     *cache.Cache
	fetcher   *apphttp.ResumableFetcher
	converter Converter

	tagger       *audio.Tagger
	images       *ioutils.ImageService
	embedCover   bool
	coverMaxSize int

	onProgress func(ProgressEvent)
}

// NewPipeline creates a Pipeline. tagger may be nil to disable tagging.
func NewPipeline(c *cache.Cache, fetcher *apphttp.ResumableFetcher, converter Converter, tagger *audio.Tagger) *Pipeline {
	return &Pipeline{
		cache:     c,
		fetcher:   fetcher,
		converter: converter,
		tagger:    tagger,
		images:    ioutils.NewImageService(),
	}
}

// Process implements Processor.
func (p *Pipeline) Process(ctx context.Context, albumPath string, naming model.NamingPolicy, ext model.Extension, ref model.ItemReference) model.ItemResult {
	res := model.ItemResult{Ref: ref}

	metaPath, err := p.cache.Fetch(ctx, ref.MetadataURL)
	if err != nil {
		res.Err = err
		return res
	}

	item, err := ximalaya.ParseTrackFile(metaPath, ref)
	if err != nil {
		res.Err = err
		return res
	}
	res.Item = item

	out := item.OutputPath(albumPath, naming)
	res.Path = out

	status, err := p.fetcher.Fetch(ctx, item.MediaURL, out)
	if err != nil {
		res.Err = err
		return res
	}
	fresh := status != apphttp.StatusSkipped
	if status == apphttp.StatusResumed {
		p.progress(ProgressEvent{Message: fmt.Sprintf("Resumed: %s", filepath.Base(out)), Level: LevelVerbose, ItemID: ref.ID})
	}

	if !ext.Matches(out) {
		target := audio.TargetPath(out, ext)
		if !ioutils.IsComplete(target) {
			fresh = true
		}
		converted, err := p.converter.Convert(ctx, out, ext)
		if err != nil {
			res.Err = err
			return res
		}
		res.Path = converted
	}
	res.Skipped = !fresh

	if fresh && p.tagger != nil && strings.EqualFold(filepath.Ext(res.Path), ".mp3") {
		p.tag(ctx, res.Path, item, filepath.Base(albumPath))
	}

	return res
}

// tag writes ID3 tags. Failures are reported as warnings and never fail the item.
func (p *Pipeline) tag(ctx context.Context, path string, item *model.Item, albumTitle string) {
	var artwork []byte
	if p.embedCover && item.CoverURL != "" {
		data, err := p.cache.Read(ctx, item.CoverURL)
		if err == nil {
			artwork, err = p.images.PrepareCover(ctx, data, p.coverMaxSize)
		}
		if err != nil {
			p.progress(ProgressEvent{Message: fmt.Sprintf("Cover art unavailable for %s: %v", filepath.Base(path), err), Level: LevelWarning, ItemID: item.Ref.ID, Err: err})
			artwork = nil
		}
	}

	info := audio.NewTrackInfo(item, albumTitle, item.Ref.Index)
	if err := p.tagger.SaveTags(path, info, artwork); err != nil {
		p.progress(ProgressEvent{Message: fmt.Sprintf("Error tagging %s: %v", filepath.Base(path), err), Level: LevelWarning, ItemID: item.Ref.ID, Err: err})
	}
}

func (p *Pipeline) progress(event ProgressEvent) {
	if p.onProgress != nil {
		p.onProgress(event)
	}
}
