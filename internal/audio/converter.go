package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	ioutils "github.com/handiism/album-dl/internal/io"
	"github.com/handiism/album-dl/internal/model"
)

// DefaultFFmpegPath is the transcoder looked up on PATH when none is configured.
const DefaultFFmpegPath = "ffmpeg"

// ErrTranscoderNotFound is wrapped in the ConversionError returned when the
// transcoder binary cannot be found.
var ErrTranscoderNotFound = errors.New("transcoder binary not found")

// Converter transcodes downloaded media into the target extension with ffmpeg.
//
// Output is written to a sibling "<root>.<ext>.temp" file and renamed into
// place, so a converted file is either complete or absent. The source file is
// never modified.
type Converter struct {
	BinaryPath string

	lookErr error
}

// NewConverter resolves binary (a name on PATH or a file path). A missing
// binary is not an error here; it surfaces from Convert as a ConversionError,
// so runs that need no conversion still work.
func NewConverter(binary string) *Converter {
	if binary == "" {
		binary = DefaultFFmpegPath
	}

	path, err := exec.LookPath(binary)
	if err != nil {
		return &Converter{BinaryPath: binary, lookErr: fmt.Errorf("%w: %s: %v", ErrTranscoderNotFound, binary, err)}
	}
	return &Converter{BinaryPath: path}
}

// Available reports whether the transcoder binary was found.
func (c *Converter) Available() bool {
	return c.lookErr == nil
}

// TargetPath returns the sibling of src carrying ext.
//
//	TargetPath("/a/Song.m4a", ExtensionMP3) // "/a/Song.mp3"
func TargetPath(src string, ext model.Extension) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + "." + string(ext)
}

// Convert transcodes src into TargetPath(src, ext) and returns that path.
//
// When the target already exists and is non-empty, no work is done. Failures
// are returned as *model.ConversionError and leave src intact.
func (c *Converter) Convert(ctx context.Context, src string, ext model.Extension) (string, error) {
	dst := TargetPath(src, ext)
	if ioutils.IsComplete(dst) {
		return dst, nil
	}

	if c.lookErr != nil {
		return "", &model.ConversionError{Path: src, Err: c.lookErr}
	}

	tmp := dst + ioutils.TempSuffix
	os.Remove(tmp)

	args := append([]string{"-i", src, "-y", "-vn"}, codecArgs(ext)...)
	args = append(args, tmp)

	cmd := exec.CommandContext(ctx, c.BinaryPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(tmp)
		return "", &model.ConversionError{
			Path: src,
			Err:  fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, strings.TrimSpace(string(output))),
		}
	}

	if !ioutils.IsComplete(tmp) {
		os.Remove(tmp)
		return "", &model.ConversionError{Path: src, Err: errors.New("ffmpeg produced no output")}
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", &model.ConversionError{Path: src, Err: err}
	}
	return dst, nil
}

// codecArgs returns the codec and container flags for ext. The container is
// forced because the temp file name carries no usable extension.
func codecArgs(ext model.Extension) []string {
	switch ext {
	case model.ExtensionMP3:
		return []string{"-acodec", "libmp3lame", "-aq", "4", "-f", "mp3"}
	default:
		return []string{"-acodec", "aac", "-f", "ipod"}
	}
}
