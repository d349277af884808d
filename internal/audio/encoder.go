package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Encoder converts an assembled WAV track into a distributable MP3 file.
type Encoder interface {
	// EncodeMP3 reads the WAV at wavPath and writes an MP3 to mp3Path.
	EncodeMP3(ctx context.Context, wavPath, mp3Path string) error
}

// FFmpegEncoder shells out to ffmpeg for MP3 encoding.
type FFmpegEncoder struct {
	binary  string
	bitrate string
}

var _ Encoder = (*FFmpegEncoder)(nil)

// FFmpegOption configures an FFmpegEncoder.
type FFmpegOption func(*FFmpegEncoder)

// WithBinary overrides the ffmpeg executable path. Defaults to "ffmpeg"
// resolved via PATH.
func WithBinary(path string) FFmpegOption {
	return func(e *FFmpegEncoder) {
		if path != "" {
			e.binary = path
		}
	}
}

// WithBitrate sets the MP3 bitrate, e.g. "192k". Defaults to "128k".
func WithBitrate(bitrate string) FFmpegOption {
	return func(e *FFmpegEncoder) {
		if bitrate != "" {
			e.bitrate = bitrate
		}
	}
}

// NewFFmpegEncoder creates an encoder backed by the ffmpeg CLI.
func NewFFmpegEncoder(opts ...FFmpegOption) *FFmpegEncoder {
	e := &FFmpegEncoder{
		binary:  "ffmpeg",
		bitrate: "128k",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EncodeMP3 implements Encoder. The -y flag overwrites any stale output from
// a previous failed attempt at the same path.
func (e *FFmpegEncoder) EncodeMP3(ctx context.Context, wavPath, mp3Path string) error {
	cmd := exec.CommandContext(ctx, e.binary,
		"-y",
		"-i", wavPath,
		"-codec:a", "libmp3lame",
		"-b:a", e.bitrate,
		mp3Path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("audio: mp3 encode: %w", ctx.Err())
		}
		msg := stderr.String()
		if len(msg) > 512 {
			msg = msg[len(msg)-512:]
		}
		return fmt.Errorf("audio: mp3 encode: %w: %s", err, msg)
	}
	return nil
}
