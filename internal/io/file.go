package ioutils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// TempSuffix is the reserved suffix of in-progress files.
const TempSuffix = ".temp"

var (
	invalidChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots  = regexp.MustCompile(`\.+$`)
	multipleSpace = regexp.MustCompile(`\s+`)
	nonASCII      = regexp.MustCompile(`[^\x00-\x7f]`)
)

// SanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → underscore
//   - Trailing dots → removed (Windows limitation)
//   - Multiple whitespace → single space
//   - Leading and trailing whitespace → removed
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2")     // Returns "Song_ Part 1_2"
//	SanitizeFileName("Track...")           // Returns "Track"
//	SanitizeFileName("Name   with  spaces") // Returns "Name with spaces"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = multipleSpace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// StripNonASCII drops every rune outside the 7-bit ASCII range.
func StripNonASCII(s string) string {
	return nonASCII.ReplaceAllString(s, "")
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// IsComplete reports whether path exists as a regular, non-empty file.
//
// Final paths are only ever created by rename, so existence implies the
// content was fully written.
func IsComplete(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Publish flushes f to stable storage, closes it and renames it to final.
//
// f must live in the same directory as final: rename is only atomic within
// one volume. On error f is closed and left in place.
func Publish(f *os.File, final string) error {
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", f.Name(), err)
	}
	if filepath.Dir(f.Name()) != filepath.Dir(final) {
		return fmt.Errorf("publish %s: temp file %s is not in the same directory", final, f.Name())
	}
	return os.Rename(f.Name(), final)
}

// WriteFileAtomic writes data to a sibling temp file and publishes it to path.
func WriteFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*"+TempSuffix)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := Publish(f, path); err != nil {
		os.Remove(f.Name())
		return err
	}
	return nil
}
