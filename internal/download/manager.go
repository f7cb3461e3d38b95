package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/handiism/album-dl/internal/audio"
	"github.com/handiism/album-dl/internal/cache"
	apphttp "github.com/handiism/album-dl/internal/http"
	ioutils "github.com/handiism/album-dl/internal/io"
	"github.com/handiism/album-dl/internal/logging"
	"github.com/handiism/album-dl/internal/model"
	"github.com/handiism/album-dl/internal/ximalaya"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a download progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel

	// RunID is set for events emitted during Run.
	RunID string

	// ItemID is set for events about a single item.
	ItemID string

	Err error
}

// Manager coordinates album downloads.
type Manager struct {
	opts      Options
	cache     *cache.Cache
	listing   *ximalaya.ListingParser
	converter *audio.Converter
	processor Processor

	totalFiles      int32
	downloadedFiles int32

	// bytes holds the resume offset, last position and size per output path.
	bytes sync.Map // path -> *transfer

	onProgress func(ProgressEvent)
}

type transfer struct {
	start   atomic.Int64
	written atomic.Int64
	total   atomic.Int64
}

// NewManager creates a new download Manager. The cache directory is created
// if needed.
func NewManager(opts Options, onProgress func(ProgressEvent)) (*Manager, error) {
	opts = opts.withDefaults()

	client := apphttp.NewClient(opts.UserAgent, opts.Timeout)
	c, err := cache.New(opts.CacheDir, client)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	m := &Manager{
		opts:       opts,
		cache:      c,
		listing:    ximalaya.NewListingParser(opts.TrackURLFormat),
		converter:  audio.NewConverter(opts.FFmpegPath),
		onProgress: onProgress,
	}

	var tagger *audio.Tagger
	if opts.TagConfig != nil {
		tagger = audio.NewTagger(opts.TagConfig)
	}

	p := NewPipeline(c, apphttp.NewResumableFetcher(client, m.trackBytes), m.converter, tagger)
	p.embedCover = opts.EmbedCover
	p.coverMaxSize = opts.CoverArtMaxSize
	p.onProgress = m.progress
	m.processor = p

	return m, nil
}

// CanConvert reports whether the transcoder was found. Without it, items
// whose media extension differs from the target fail with a ConversionError.
func (m *Manager) CanConvert() bool {
	return m.converter.Available()
}

// Resolve fetches and parses the listing page at listingURL. The album
// directory is created by Run.
//
// The page goes through the cache, so a listing is only fetched once.
func (m *Manager) Resolve(ctx context.Context, listingURL string) (*model.AlbumJob, error) {
	m.progress(ProgressEvent{Message: fmt.Sprintf("Fetching listing: %s", listingURL), Level: LevelVerbose})

	path, err := m.cache.Fetch(ctx, listingURL)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &model.ParseError{Path: path, Err: err}
	}
	defer f.Close()

	listing, err := m.listing.Parse(f, listingURL)
	if err != nil {
		return nil, &model.ParseError{Path: path, Err: err}
	}

	job := model.NewAlbumJob(listing.Title, m.opts.OutputRoot, listing.Items)
	m.progress(ProgressEvent{Message: fmt.Sprintf("Found album: %s (%d tracks)", job.Title, len(job.Items)), Level: LevelInfo})

	return job, nil
}

// Run processes every item of job with at most concurrency items in flight
// and returns once all of them finished. A concurrency below 1 selects the
// configured default.
//
// Item failures are recorded in the result and never stop other items.
func (m *Manager) Run(ctx context.Context, job *model.AlbumJob, concurrency int) *model.RunResult {
	if concurrency < 1 {
		concurrency = m.opts.Concurrency
	}

	result := model.NewRunResult(logging.GenerateID(), len(job.Items))

	atomic.StoreInt32(&m.totalFiles, int32(len(job.Items)))
	atomic.StoreInt32(&m.downloadedFiles, 0)

	if err := ioutils.EnsureDir(job.Path); err != nil {
		for _, ref := range job.Items {
			result.Record(model.ItemResult{Ref: ref, Err: err})
		}
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating directory: %v", err), Level: LevelError, RunID: result.ID, Err: err})
		return result
	}

	m.progress(ProgressEvent{Message: fmt.Sprintf("Downloading %d items to %s", len(job.Items), job.Path), Level: LevelInfo, RunID: result.ID})

	var g errgroup.Group
	g.SetLimit(concurrency)

	var claimed sync.Map // output path -> item ID

	for _, ref := range job.Items {
		g.Go(func() error {
			res := m.process(ctx, job.Path, ref)
			result.Record(res)
			m.reportItem(result.ID, res)
			m.checkShared(result.ID, &claimed, res)
			return nil // Continue with other items
		})
	}
	g.Wait()

	if m.opts.Playlist != nil && len(result.Succeeded) > 0 {
		m.writePlaylist(result.ID, job, result)
	}

	if result.OK() {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Successfully downloaded album: %s", job.Title), Level: LevelSuccess, RunID: result.ID})
	} else {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Finished %s, %d of %d items failed", job.Title, result.Failed, result.Total), Level: LevelWarning, RunID: result.ID})
	}

	return result
}

// GetProgress returns current download progress. Bytes count only what this
// manager transferred; data kept from an earlier run's partial file is
// excluded from both figures. Byte totals only cover transfers whose size the
// server reported.
func (m *Manager) GetProgress() (received, total int64, filesReceived, filesTotal int32) {
	m.bytes.Range(func(_, v any) bool {
		t := v.(*transfer)
		start := t.start.Load()
		received += t.written.Load() - start
		if n := t.total.Load(); n > 0 {
			total += n - start
		}
		return true
	})
	return received, total, atomic.LoadInt32(&m.downloadedFiles), atomic.LoadInt32(&m.totalFiles)
}

// process runs one item. A panic is recorded as that item's failure.
func (m *Manager) process(ctx context.Context, albumPath string, ref model.ItemReference) (res model.ItemResult) {
	defer func() {
		if r := recover(); r != nil {
			res = model.ItemResult{Ref: ref, Err: fmt.Errorf("item %s panicked: %v", ref.ID, r)}
		}
	}()
	return m.processor.Process(ctx, albumPath, m.opts.Naming, m.opts.Extension, ref)
}

func (m *Manager) reportItem(runID string, res model.ItemResult) {
	atomic.AddInt32(&m.downloadedFiles, 1)

	name := res.Ref.ID
	if res.Item != nil {
		name = res.Item.FileName
	}

	switch {
	case res.Failed():
		m.progress(ProgressEvent{
			Message: fmt.Sprintf("Error downloading %s (%s): %v", name, model.Kind(res.Err), res.Err),
			Level:   LevelError,
			RunID:   runID,
			ItemID:  res.Ref.ID,
			Err:     res.Err,
		})
	case res.Skipped:
		m.progress(ProgressEvent{Message: fmt.Sprintf("Skipping existing: %s", name), Level: LevelVerbose, RunID: runID, ItemID: res.Ref.ID})
	default:
		m.progress(ProgressEvent{Message: fmt.Sprintf("Downloaded: %s", name), Level: LevelVerbose, RunID: runID, ItemID: res.Ref.ID})
	}
}

// checkShared warns when an item resolved to an output file that another
// item of the same run already produced.
func (m *Manager) checkShared(runID string, claimed *sync.Map, res model.ItemResult) {
	if res.Failed() || res.Path == "" {
		return
	}
	prev, loaded := claimed.LoadOrStore(res.Path, res.Ref.ID)
	if !loaded || prev == res.Ref.ID {
		return
	}
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("%s already holds item %s, item %s was not saved (track naming keeps both)", filepath.Base(res.Path), prev, res.Ref.ID),
		Level:   LevelWarning,
		RunID:   runID,
		ItemID:  res.Ref.ID,
	})
}

func (m *Manager) writePlaylist(runID string, job *model.AlbumJob, result *model.RunResult) {
	path, err := m.opts.Playlist.WritePlaylist(job, audio.EntriesFromResults(job, result.Succeeded))
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Error creating playlist: %v", err), Level: LevelWarning, RunID: runID, Err: err})
		return
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Created playlist %s", path), Level: LevelSuccess, RunID: runID})
}

func (m *Manager) trackBytes(path string, start, written, total int64) {
	v, _ := m.bytes.LoadOrStore(path, &transfer{})
	t := v.(*transfer)
	t.start.Store(start)
	t.written.Store(written)
	t.total.Store(total)
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}
