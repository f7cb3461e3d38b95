// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Atomic publish of temp files (sync, close, rename)
//   - Filename sanitization for cross-platform compatibility
//   - Directory creation
//   - Image resizing and format conversion
//
// # Atomic Publish
//
// Every final artifact is written under a temporary name first and renamed
// into place once complete, so a final path that exists is always whole:
//
//	f, _ := os.CreateTemp(dir, "cover.*.temp")
//	io.Copy(f, body)
//	err := ioutils.Publish(f, filepath.Join(dir, "cover.jpg"))
//
// # Filename Sanitization
//
//	safe := ioutils.SanitizeFileName("Song: Part 1/2") // Returns "Song_ Part 1_2"
//
// # Image Processing
//
// The ImageService turns cover art into a JPEG no larger than a square box,
// ready to embed into tags:
//
//	svc := ioutils.NewImageService()
//	jpeg, err := svc.PrepareCover(ctx, imageData, 500)
package ioutils
