package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/handiism/album-dl/internal/audio"
	"github.com/handiism/album-dl/internal/download"
	apphttp "github.com/handiism/album-dl/internal/http"
	"github.com/handiism/album-dl/internal/logging"
	"github.com/handiism/album-dl/internal/model"
	"github.com/handiism/album-dl/internal/ximalaya"
)

// EnvPrefix prefixes environment overrides, e.g. ALBUMDL_CONCURRENCY=4.
const EnvPrefix = "ALBUMDL"

// configName is the base name searched for when no file is given.
const configName = "album-dl"

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	OutputRoot     string        `mapstructure:"output_root" yaml:"output_root"`
	CacheDir       string        `mapstructure:"cache_dir" yaml:"cache_dir"`
	Concurrency    int           `mapstructure:"concurrency" yaml:"concurrency"`
	Naming         string        `mapstructure:"naming" yaml:"naming"`       // default, track
	Extension      string        `mapstructure:"extension" yaml:"extension"` // m4a, mp3
	UserAgent      string        `mapstructure:"user_agent" yaml:"user_agent"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	TrackURLFormat string        `mapstructure:"track_url_format" yaml:"track_url_format"`
	FFmpegPath     string        `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`

	// Playlist settings
	CreatePlaylist bool   `mapstructure:"create_playlist" yaml:"create_playlist"`
	PlaylistFormat string `mapstructure:"playlist_format" yaml:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended    bool   `mapstructure:"m3u_extended" yaml:"m3u_extended"`

	// Tag settings
	ModifyTags         bool `mapstructure:"modify_tags" yaml:"modify_tags"`
	SaveCoverArtInTags bool `mapstructure:"save_cover_art_in_tags" yaml:"save_cover_art_in_tags"`
	CoverArtMaxSize    int  `mapstructure:"cover_art_max_size" yaml:"cover_art_max_size"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		OutputRoot:     "./downloads",
		CacheDir:       ".cache",
		Concurrency:    download.DefaultConcurrency,
		Naming:         string(model.NamingDefault),
		Extension:      string(model.ExtensionM4A),
		UserAgent:      apphttp.DefaultUserAgent,
		Timeout:        60 * time.Second,
		TrackURLFormat: ximalaya.DefaultTrackURLFormat,
		FFmpegPath:     audio.DefaultFFmpegPath,

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
		M3UExtended:    true,

		ModifyTags:         true,
		SaveCoverArtInTags: true,
		CoverArtMaxSize:    500,

		LogLevel: "info",
	}
}

// New returns a viper instance carrying the defaults and environment
// overrides. Callers may bind command-line flags to it before Load.
func New() *viper.Viper {
	v := viper.New()

	d := DefaultSettings()
	v.SetDefault("output_root", d.OutputRoot)
	v.SetDefault("cache_dir", d.CacheDir)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("naming", d.Naming)
	v.SetDefault("extension", d.Extension)
	v.SetDefault("user_agent", d.UserAgent)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("track_url_format", d.TrackURLFormat)
	v.SetDefault("ffmpeg_path", d.FFmpegPath)
	v.SetDefault("create_playlist", d.CreatePlaylist)
	v.SetDefault("playlist_format", d.PlaylistFormat)
	v.SetDefault("m3u_extended", d.M3UExtended)
	v.SetDefault("modify_tags", d.ModifyTags)
	v.SetDefault("save_cover_art_in_tags", d.SaveCoverArtInTags)
	v.SetDefault("cover_art_max_size", d.CoverArtMaxSize)
	v.SetDefault("log_level", d.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads settings into v and returns them validated.
//
// An explicit path must exist. With an empty path, album-dl.yaml is searched
// for in the user config directory and the working directory; a missing file
// means defaults are used.
func Load(v *viper.Viper, path string) (*Settings, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigDir())
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects values the downloader cannot act on.
func (s *Settings) Validate() error {
	if s.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", s.Concurrency)
	}
	if _, err := model.ParseNamingPolicy(s.Naming); err != nil {
		return err
	}
	if _, err := model.ParseExtension(s.Extension); err != nil {
		return err
	}
	if _, err := audio.ParsePlaylistFormat(s.PlaylistFormat); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(s.LogLevel); err != nil {
		return err
	}
	if s.OutputRoot == "" {
		return errors.New("output_root must not be empty")
	}
	if s.CacheDir == "" {
		return errors.New("cache_dir must not be empty")
	}
	if strings.Count(s.TrackURLFormat, "%s") != 1 {
		return fmt.Errorf("track_url_format must contain exactly one %%s, got %q", s.TrackURLFormat)
	}
	if s.CoverArtMaxSize < 0 {
		return fmt.Errorf("cover_art_max_size must not be negative, got %d", s.CoverArtMaxSize)
	}
	return nil
}

// Save writes settings to a YAML file.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("output_root", s.OutputRoot)
	v.Set("cache_dir", s.CacheDir)
	v.Set("concurrency", s.Concurrency)
	v.Set("naming", s.Naming)
	v.Set("extension", s.Extension)
	v.Set("user_agent", s.UserAgent)
	v.Set("timeout", s.Timeout.String())
	v.Set("track_url_format", s.TrackURLFormat)
	v.Set("ffmpeg_path", s.FFmpegPath)
	v.Set("create_playlist", s.CreatePlaylist)
	v.Set("playlist_format", s.PlaylistFormat)
	v.Set("m3u_extended", s.M3UExtended)
	v.Set("modify_tags", s.ModifyTags)
	v.Set("save_cover_art_in_tags", s.SaveCoverArtInTags)
	v.Set("cover_art_max_size", s.CoverArtMaxSize)
	v.Set("log_level", s.LogLevel)

	v.SetConfigType("yaml")
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// PipelineOptions converts settings to download options. Settings must have
// passed Validate.
func (s *Settings) PipelineOptions() download.Options {
	naming, _ := model.ParseNamingPolicy(s.Naming)
	ext, _ := model.ParseExtension(s.Extension)

	opts := download.Options{
		OutputRoot:      s.OutputRoot,
		CacheDir:        s.CacheDir,
		Naming:          naming,
		Extension:       ext,
		Concurrency:     s.Concurrency,
		UserAgent:       s.UserAgent,
		Timeout:         s.Timeout,
		TrackURLFormat:  s.TrackURLFormat,
		FFmpegPath:      s.FFmpegPath,
		CoverArtMaxSize: s.CoverArtMaxSize,
	}

	if s.ModifyTags || s.SaveCoverArtInTags {
		cfg := audio.DefaultTagConfig()
		cfg.ModifyTags = s.ModifyTags
		opts.TagConfig = cfg
		opts.EmbedCover = s.SaveCoverArtInTags
	}

	if s.CreatePlaylist {
		format, _ := audio.ParsePlaylistFormat(s.PlaylistFormat)
		opts.Playlist = audio.NewPlaylistCreator(format, s.M3UExtended)
	}

	return opts
}

// DefaultConfigPath returns the file Save writes to when none is given.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), configName+".yaml")
}

func defaultConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, configName)
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), configName)
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", configName)
	}
}
