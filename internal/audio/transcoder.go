package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// FFmpeg constants for MP3 output.
const (
	FFmpegCommand  = "ffmpeg"
	AudioCodec     = "libmp3lame"
	DefaultBitrate = "320k"
	OutputFormat   = "mp3"
)

// ErrTranscode wraps every failure reported by the transcoding engine.
var ErrTranscode = errors.New("transcode failed")

// Transcoder converts a raw encoded stream into the output container.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string) error
}

// FFmpegTranscoder runs ffmpeg as a child process.
type FFmpegTranscoder struct {
	command string
	bitrate string
}

// NewFFmpegTranscoder creates a transcoder. Empty arguments fall back to
// FFmpegCommand and DefaultBitrate.
func NewFFmpegTranscoder(command, bitrate string) *FFmpegTranscoder {
	if command == "" {
		command = FFmpegCommand
	}
	if bitrate == "" {
		bitrate = DefaultBitrate
	}
	return &FFmpegTranscoder{command: command, bitrate: bitrate}
}

// Transcode writes an MP3 of src to dst, overwriting dst. The output format
// is forced so dst may carry any suffix, such as ".part".
func (t *FFmpegTranscoder) Transcode(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, t.command, t.BuildArgs(src, dst)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v: %s", ErrTranscode, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// BuildArgs returns the ffmpeg arguments for one conversion.
func (t *FFmpegTranscoder) BuildArgs(src, dst string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vn",
		"-map_metadata", "-1",
		"-c:a", AudioCodec,
		"-b:a", t.bitrate,
		"-f", OutputFormat,
		dst,
	}
}
