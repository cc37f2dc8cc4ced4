package download

import (
	"context"

	"github.com/handiism/playlist-archiver/internal/audio"
	"github.com/handiism/playlist-archiver/internal/config"
	"github.com/handiism/playlist-archiver/internal/http"
	"github.com/handiism/playlist-archiver/internal/stream"
)

// NewDeps wires the production collaborators described by settings: an HTTP
// streaming provider session per worker, ffmpeg for transcoding and id3v2
// for tags.
func NewDeps(settings *config.Settings, onProgress func(ProgressEvent)) Deps {
	client := http.NewClient(config.Seconds(settings.ProviderTimeout))

	return Deps{
		Providers: func(_ context.Context, _ int) (stream.Provider, error) {
			p, err := stream.NewHTTPProvider(stream.HTTPConfig{
				BaseURL:   settings.ProviderURL,
				Token:     settings.ProviderToken,
				RateLimit: settings.ProviderRateLimit,
			}, client)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		Transcoder: audio.NewFFmpegTranscoder(settings.FFmpegPath, settings.Bitrate),
		Tagger:     audio.NewTagger(audio.DefaultTagConfig()),
		Covers:     client,
		OnProgress: onProgress,
	}
}
