package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/handiism/album-dl/internal/audio"
	"github.com/handiism/album-dl/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("APPDATA", dir)

	s, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := DefaultSettings()
	if *s != *want {
		t.Errorf("Load() = %+v, want defaults %+v", s, want)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "album-dl.yaml")
	content := strings.Join([]string{
		"output_root: /srv/audio",
		"concurrency: 4",
		"extension: mp3",
		"timeout: 90s",
		"create_playlist: true",
		"playlist_format: pls",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ALBUMDL_CONCURRENCY", "2")
	t.Setenv("ALBUMDL_NAMING", "track")

	s, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.OutputRoot != "/srv/audio" {
		t.Errorf("OutputRoot = %q", s.OutputRoot)
	}
	if s.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want env override 2", s.Concurrency)
	}
	if s.Naming != "track" {
		t.Errorf("Naming = %q, want env override", s.Naming)
	}
	if s.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", s.Timeout)
	}
	if s.CacheDir != ".cache" {
		t.Errorf("CacheDir = %q, want default", s.CacheDir)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("naming: fancy\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(New(), path); err == nil {
		t.Error("expected validation error")
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr bool
	}{
		{"defaults", func(*Settings) {}, false},
		{"zero concurrency", func(s *Settings) { s.Concurrency = 0 }, true},
		{"bad naming", func(s *Settings) { s.Naming = "fancy" }, true},
		{"bad extension", func(s *Settings) { s.Extension = "ogg" }, true},
		{"dotted extension", func(s *Settings) { s.Extension = ".mp3" }, false},
		{"bad playlist", func(s *Settings) { s.PlaylistFormat = "xspf" }, true},
		{"bad log level", func(s *Settings) { s.LogLevel = "loud" }, true},
		{"no verb in track url", func(s *Settings) { s.TrackURLFormat = "https://x/tracks.json" }, true},
		{"empty output", func(s *Settings) { s.OutputRoot = "" }, true},
		{"negative cover size", func(s *Settings) { s.CoverArtMaxSize = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(s)
			if err := s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSettings_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "album-dl.yaml")

	s := DefaultSettings()
	s.Extension = "mp3"
	s.Timeout = 2 * time.Minute
	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *loaded != *s {
		t.Errorf("round trip = %+v, want %+v", loaded, s)
	}
}

func TestSettings_PipelineOptions(t *testing.T) {
	s := DefaultSettings()
	s.Extension = ".MP3"
	s.Naming = "track"
	s.CreatePlaylist = true
	s.ModifyTags = false
	s.SaveCoverArtInTags = false

	opts := s.PipelineOptions()

	if opts.Extension != model.ExtensionMP3 {
		t.Errorf("Extension = %q", opts.Extension)
	}
	if opts.Naming != model.NamingTrack {
		t.Errorf("Naming = %q", opts.Naming)
	}
	if opts.Playlist == nil {
		t.Error("Playlist should be set when create_playlist is on")
	}
	if opts.TagConfig != nil {
		t.Error("TagConfig should be nil when tagging is off")
	}
	if opts.TrackURLFormat != s.TrackURLFormat || opts.CacheDir != s.CacheDir {
		t.Errorf("options not carried over: %+v", opts)
	}

	s.ModifyTags = true
	if opts := s.PipelineOptions(); opts.TagConfig == nil || !opts.TagConfig.ModifyTags || opts.TagConfig.Artist != audio.TagModify {
		t.Errorf("TagConfig = %+v, want default tag config", opts.TagConfig)
	}
}
