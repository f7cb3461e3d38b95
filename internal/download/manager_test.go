package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bogem/id3v2"

	"github.com/handiism/album-dl/internal/audio"
	"github.com/handiism/album-dl/internal/model"
)

// fakeProcessor fails the items listed in fail, panics on those in panics
// and records peak concurrency.
type fakeProcessor struct {
	fail   map[string]bool
	panics map[string]bool

	inFlight atomic.Int32
	peak     atomic.Int32

	mu   sync.Mutex
	seen []string
}

func (f *fakeProcessor) Process(ctx context.Context, albumPath string, naming model.NamingPolicy, ext model.Extension, ref model.ItemReference) model.ItemResult {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.seen = append(f.seen, ref.ID)
	f.mu.Unlock()

	if f.panics[ref.ID] {
		panic("corrupt frame")
	}
	if f.fail[ref.ID] {
		return model.ItemResult{Ref: ref, Err: &model.TransferError{URL: ref.MetadataURL, Err: errors.New("connection reset")}}
	}
	return model.ItemResult{Ref: ref, Path: filepath.Join(albumPath, ref.ID+".m4a")}
}

func newTestManager(t *testing.T, opts Options) *Manager {
	t.Helper()
	if opts.OutputRoot == "" {
		opts.OutputRoot = t.TempDir()
	}
	if opts.CacheDir == "" {
		opts.CacheDir = filepath.Join(t.TempDir(), "cache")
	}
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = filepath.Join(t.TempDir(), "no-such-ffmpeg")
	}
	m, err := NewManager(opts, nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func testJob(t *testing.T, n int) *model.AlbumJob {
	items := make([]model.ItemReference, n)
	for i := range items {
		id := fmt.Sprint(i + 1)
		items[i] = model.ItemReference{ID: id, MetadataURL: "https://example.com/tracks/" + id + ".json", Index: i + 1}
	}
	return model.NewAlbumJob("Test Album", t.TempDir(), items)
}

func TestManager_Run_FailureIsolation(t *testing.T) {
	m := newTestManager(t, Options{})
	fake := &fakeProcessor{fail: map[string]bool{"3": true, "7": true}}
	m.processor = fake

	job := testJob(t, 12)
	result := m.Run(context.Background(), job, 4)

	if result.Total != 12 {
		t.Errorf("Total = %d, want 12", result.Total)
	}
	if result.Failed != 2 || len(result.Failures) != 2 {
		t.Errorf("Failed = %d (%d failures), want 2", result.Failed, len(result.Failures))
	}
	if len(result.Succeeded) != 10 {
		t.Errorf("Succeeded = %d, want 10", len(result.Succeeded))
	}
	if result.OK() {
		t.Error("OK() should be false with failures")
	}
	if len(fake.seen) != 12 {
		t.Errorf("processed %d items, want all 12", len(fake.seen))
	}
	if p := fake.peak.Load(); p > 4 {
		t.Errorf("peak concurrency = %d, want <= 4", p)
	}
	if result.ID == "" {
		t.Error("run should carry an ID")
	}

	_, _, done, total := m.GetProgress()
	if done != 12 || total != 12 {
		t.Errorf("GetProgress files = %d/%d, want 12/12", done, total)
	}
}

func TestManager_Run_PanicIsItemFailure(t *testing.T) {
	m := newTestManager(t, Options{})
	fake := &fakeProcessor{panics: map[string]bool{"2": true}}
	m.processor = fake

	result := m.Run(context.Background(), testJob(t, 4), 2)

	if result.Failed != 1 || len(result.Succeeded) != 3 {
		t.Fatalf("Failed = %d, Succeeded = %d, want 1 and 3", result.Failed, len(result.Succeeded))
	}
	f := result.Failures[0]
	if f.Ref.ID != "2" || !strings.Contains(f.Err.Error(), "corrupt frame") {
		t.Errorf("failure = %s: %v, want item 2 with the panic value", f.Ref.ID, f.Err)
	}
	if len(fake.seen) != 4 {
		t.Errorf("seen = %v, want all four items started", fake.seen)
	}
}

func TestManager_Run_DefaultConcurrency(t *testing.T) {
	m := newTestManager(t, Options{Concurrency: 2})
	fake := &fakeProcessor{}
	m.processor = fake

	result := m.Run(context.Background(), testJob(t, 8), 0)

	if !result.OK() {
		t.Errorf("unexpected failures: %+v", result.Failures)
	}
	if p := fake.peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestManager_Run_Events(t *testing.T) {
	var (
		mu     sync.Mutex
		events []ProgressEvent
	)
	m, err := NewManager(Options{
		OutputRoot: t.TempDir(),
		CacheDir:   t.TempDir(),
	}, func(e ProgressEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	m.processor = &fakeProcessor{fail: map[string]bool{"2": true}}

	result := m.Run(context.Background(), testJob(t, 3), 2)

	var errorsSeen int
	for _, e := range events {
		if e.RunID != result.ID {
			t.Errorf("event %q has run ID %q, want %q", e.Message, e.RunID, result.ID)
		}
		if e.Level == LevelError {
			errorsSeen++
			if e.ItemID != "2" || !strings.Contains(e.Message, "transfer") {
				t.Errorf("unexpected error event %+v", e)
			}
		}
	}
	if errorsSeen != 1 {
		t.Errorf("saw %d error events, want 1", errorsSeen)
	}
	if last := events[len(events)-1]; last.Level != LevelWarning {
		t.Errorf("last event = %+v, want run summary warning", last)
	}
}

// albumServer serves a listing page, metadata documents and media for ids.
type albumServer struct {
	*httptest.Server

	ids        []string
	mediaExt   string
	missing    map[string]bool
	titles     map[string]string
	mediaHits  atomic.Int32
	coverBytes []byte
}

func newAlbumServer(t *testing.T, mediaExt string, ids ...string) *albumServer {
	t.Helper()
	s := &albumServer{ids: ids, mediaExt: mediaExt, missing: map[string]bool{}, titles: map[string]string{}}

	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	s.coverBytes = buf.Bytes()

	mux := http.NewServeMux()
	mux.HandleFunc("/album/1", func(w http.ResponseWriter, r *http.Request) {
		var sb strings.Builder
		sb.WriteString(`<html><body><h1 class="title">Test Album</h1><div class="sound-list">`)
		for _, id := range s.ids {
			fmt.Fprintf(&sb, `<div class="text"><a href="/sound/%s">Track %s</a></div>`, id, id)
		}
		sb.WriteString(`</div></body></html>`)
		w.Write([]byte(sb.String()))
	})
	mux.HandleFunc("/tracks/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(r.PathValue("id"), ".json")
		if s.missing[id] {
			http.NotFound(w, r)
			return
		}
		title, ok := s.titles[id]
		if !ok {
			title = "Track " + id
		}
		fmt.Fprintf(w, `{"play_path_64":"%s/media/%s%s","title":"%s","album_title":"Test Album","nickname":"Host","cover_url":"%s/cover.png"}`,
			s.URL, id, s.mediaExt, title, s.URL)
	})
	mux.HandleFunc("/media/{name}", func(w http.ResponseWriter, r *http.Request) {
		s.mediaHits.Add(1)
		body := strings.Repeat("audio-"+r.PathValue("name")+";", 500)
		http.ServeContent(w, r, r.PathValue("name"), time.Time{}, strings.NewReader(body))
	})
	mux.HandleFunc("/cover.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write(s.coverBytes)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

func (s *albumServer) options(t *testing.T) Options {
	return Options{
		OutputRoot:     t.TempDir(),
		CacheDir:       filepath.Join(t.TempDir(), "cache"),
		TrackURLFormat: s.URL + "/tracks/%s.json",
		FFmpegPath:     filepath.Join(t.TempDir(), "no-such-ffmpeg"),
	}
}

func TestManager_SharedOutputWarns(t *testing.T) {
	srv := newAlbumServer(t, ".m4a", "31", "32", "33")
	srv.titles["31"] = "第一集 Same"
	srv.titles["32"] = "第二集 Same"

	var (
		mu       sync.Mutex
		warnings []ProgressEvent
	)
	m, err := NewManager(srv.options(t), func(e ProgressEvent) {
		if e.Level == LevelWarning && e.ItemID != "" {
			mu.Lock()
			warnings = append(warnings, e)
			mu.Unlock()
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	job, err := m.Resolve(ctx, srv.URL+"/album/1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	result := m.Run(ctx, job, 3)
	if !result.OK() {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}

	if len(warnings) != 1 {
		t.Fatalf("got %d shared-output warnings, want 1: %+v", len(warnings), warnings)
	}
	w := warnings[0]
	if (w.ItemID != "31" && w.ItemID != "32") || !strings.Contains(w.Message, "Same.m4a") {
		t.Errorf("warning = %+v, want one of the colliding items naming Same.m4a", w)
	}
	if w.RunID != result.ID {
		t.Errorf("warning run = %q, want %q", w.RunID, result.ID)
	}
}

func TestManager_ResumedBytesNotCounted(t *testing.T) {
	srv := newAlbumServer(t, ".m4a", "41", "42")
	m := newTestManager(t, srv.options(t))
	ctx := context.Background()

	job, err := m.Resolve(ctx, srv.URL+"/album/1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	body := strings.Repeat("audio-41.m4a;", 500)
	const kept = 2000
	if err := os.MkdirAll(job.Path, 0755); err != nil {
		t.Fatal(err)
	}
	partial := filepath.Join(job.Path, "Track 41.m4a.temp")
	if err := os.WriteFile(partial, []byte(body[:kept]), 0644); err != nil {
		t.Fatal(err)
	}

	result := m.Run(ctx, job, 2)
	if !result.OK() {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}

	data, err := os.ReadFile(filepath.Join(job.Path, "Track 41.m4a"))
	if err != nil || string(data) != body {
		t.Fatalf("resumed file is incomplete (err %v)", err)
	}

	received, total, _, _ := m.GetProgress()
	want := int64(2*len(body) - kept)
	if received != want || total != want {
		t.Errorf("GetProgress bytes = %d/%d, want %d/%d", received, total, want, want)
	}
}

func TestManager_EndToEnd(t *testing.T) {
	srv := newAlbumServer(t, ".m4a", "11", "12", "13")
	opts := srv.options(t)
	m := newTestManager(t, opts)
	ctx := context.Background()

	job, err := m.Resolve(ctx, srv.URL+"/album/1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if job.Title != "Test Album" || len(job.Items) != 3 {
		t.Fatalf("job = %+v", job)
	}
	if job.Path != filepath.Join(opts.OutputRoot, "Test Album") {
		t.Errorf("job.Path = %q", job.Path)
	}

	result := m.Run(ctx, job, 10)
	if !result.OK() {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}

	for _, id := range []string{"11", "12", "13"} {
		path := filepath.Join(job.Path, "Track "+id+".m4a")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("missing output %s: %v", path, err)
			continue
		}
		if want := strings.Repeat("audio-"+id+".m4a;", 500); string(data) != want {
			t.Errorf("%s has wrong content", path)
		}
	}

	received, total, _, _ := m.GetProgress()
	if received == 0 || received != total {
		t.Errorf("GetProgress bytes = %d/%d", received, total)
	}

	// A second run finds every file complete and sends no media requests.
	hits := srv.mediaHits.Load()
	again := m.Run(ctx, job, 10)
	if !again.OK() {
		t.Fatalf("second run failures: %+v", again.Failures)
	}
	for _, res := range again.Succeeded {
		if !res.Skipped {
			t.Errorf("item %s should be skipped on re-run", res.Ref.ID)
		}
	}
	if srv.mediaHits.Load() != hits {
		t.Errorf("media requests on re-run = %d, want 0", srv.mediaHits.Load()-hits)
	}
}

func TestManager_EndToEnd_TrackNamingAndPartialFailure(t *testing.T) {
	srv := newAlbumServer(t, ".m4a", "21", "22", "23")
	srv.missing["22"] = true

	opts := srv.options(t)
	opts.Naming = model.NamingTrack
	opts.Playlist = audio.NewPlaylistCreator(audio.FormatM3U, false)
	m := newTestManager(t, opts)
	ctx := context.Background()

	job, err := m.Resolve(ctx, srv.URL+"/album/1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	result := m.Run(ctx, job, 2)

	if result.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", result.Failed)
	}
	var fe *model.FetchError
	if f := result.Failures[0]; f.Ref.ID != "22" || !errors.As(f.Err, &fe) {
		t.Errorf("failure = %+v, want FetchError for 22", f)
	}

	for _, name := range []string{"21_Track 21.m4a", "23_Track 23.m4a"} {
		if _, err := os.Stat(filepath.Join(job.Path, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	playlist, err := os.ReadFile(filepath.Join(job.Path, "Test Album.m3u"))
	if err != nil {
		t.Fatalf("playlist not written: %v", err)
	}
	if string(playlist) != "21_Track 21.m4a\n23_Track 23.m4a\n" {
		t.Errorf("playlist = %q", playlist)
	}
}

func TestManager_EndToEnd_ConversionFailureKeepsSource(t *testing.T) {
	srv := newAlbumServer(t, ".m4a", "31")
	opts := srv.options(t)
	opts.Extension = model.ExtensionMP3
	m := newTestManager(t, opts)
	ctx := context.Background()

	job, err := m.Resolve(ctx, srv.URL+"/album/1")
	if err != nil {
		t.Fatal(err)
	}

	result := m.Run(ctx, job, 1)

	if result.Failed != 1 {
		t.Fatalf("Failed = %d, want 1", result.Failed)
	}
	var ce *model.ConversionError
	if !errors.As(result.Failures[0].Err, &ce) {
		t.Errorf("error = %v, want ConversionError", result.Failures[0].Err)
	}
	if _, err := os.Stat(filepath.Join(job.Path, "Track 31.m4a")); err != nil {
		t.Errorf("downloaded source should be kept: %v", err)
	}
}

func TestManager_EndToEnd_TagsMP3(t *testing.T) {
	srv := newAlbumServer(t, ".mp3", "41", "42")
	opts := srv.options(t)
	opts.Extension = model.ExtensionMP3
	opts.TagConfig = audio.DefaultTagConfig()
	opts.EmbedCover = true
	opts.CoverArtMaxSize = 16
	m := newTestManager(t, opts)
	ctx := context.Background()

	job, err := m.Resolve(ctx, srv.URL+"/album/1")
	if err != nil {
		t.Fatal(err)
	}

	if result := m.Run(ctx, job, 2); !result.OK() {
		t.Fatalf("unexpected failures: %+v", result.Failures)
	}

	tag, err := id3v2.Open(filepath.Join(job.Path, "Track 42.mp3"), id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	defer tag.Close()

	if tag.Title() != "Track 42" || tag.Artist() != "Host" || tag.Album() != "Test Album" {
		t.Errorf("tags = %q / %q / %q", tag.Title(), tag.Artist(), tag.Album())
	}
	if got := tag.GetTextFrame("TRCK").Text; got != "2" {
		t.Errorf("TRCK = %q, want 2", got)
	}
	if pics := tag.GetFrames(tag.CommonID("Attached picture")); len(pics) != 1 {
		t.Errorf("got %d pictures, want 1", len(pics))
	}
}

func TestManager_Resolve_Errors(t *testing.T) {
	srv := newAlbumServer(t, ".m4a")
	m := newTestManager(t, srv.options(t))
	ctx := context.Background()

	_, err := m.Resolve(ctx, srv.URL+"/album/1")
	if !errors.Is(err, model.ErrNoTracks) {
		t.Errorf("empty listing error = %v, want ErrNoTracks", err)
	}

	_, err = m.Resolve(ctx, srv.URL+"/album/404")
	var fe *model.FetchError
	if !errors.As(err, &fe) {
		t.Errorf("unreachable listing error = %v, want FetchError", err)
	}
}
