// Package audio provides post-download media services: format conversion,
// ID3 tag writing and playlist generation.
//
// # Conversion
//
// The Converter shells out to ffmpeg and writes the converted file next to
// the source:
//
//	conv := audio.NewConverter("ffmpeg")
//	mp3Path, err := conv.Convert(ctx, "/albums/Show/Episode 1.m4a", model.ExtensionMP3)
//
// # ID3 Tagging
//
// Use the Tagger to write ID3 tags to MP3 files:
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	err := tagger.SaveTags(path, audio.NewTrackInfo(item, job.Title, 3), jpegBytes)
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true)
//	path, err := creator.WritePlaylist(job, audio.EntriesFromResults(job, result.Succeeded))
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio
