// Package audio provides audio file manipulation services: transcoding the
// raw provider stream to MP3, ID3 tag writing and playlist generation.
//
// # Transcoding
//
// FFmpegTranscoder shells out to ffmpeg:
//
//	tc := audio.NewFFmpegTranscoder("ffmpeg", "320k")
//	err := tc.Transcode(ctx, "/tmp/w0-abc.ogg.tmp", "/music/List/Song - A.mp3.part")
//
// # ID3 Tagging
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	err := tagger.SaveTags(path, item, artworkBytes)
//
// The tagger supports:
//   - Artist, Album Title, Track Title
//   - Track Number, Disc Number
//   - Cover Art (embedded in MP3)
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true) // extended M3U
//	content := creator.CreatePlaylist(collection, present)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
package audio
