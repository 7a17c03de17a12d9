package audio

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// Target sample format for the STT path: mono, 16-bit, 24 kHz linear PCM.
const (
	TargetSampleRate = 24000
	TargetChannels   = 1
)

// Supported input container formats for transcoding.
var supportedFormats = map[string]bool{
	"webm": true,
	"ogg":  true,
	"opus": true,
	"mp3":  true,
	"mp4":  true,
	"m4a":  true,
	"wav":  true,
	"flac": true,
}

// IsSupportedFormat reports whether the container format can be transcoded.
func IsSupportedFormat(format string) bool {
	return supportedFormats[strings.ToLower(strings.TrimPrefix(format, "."))]
}

// GetSupportedFormats returns the accepted container formats.
func GetSupportedFormats() []string {
	formats := make([]string, 0, len(supportedFormats))
	for f := range supportedFormats {
		formats = append(formats, f)
	}
	return formats
}

// Transcoder converts arbitrary compressed audio containers into the
// fixed linear PCM format the STT provider expects. It shells out to
// ffmpeg; when ffmpeg is unavailable the caller falls back to sending
// the original container.
type Transcoder struct {
	ffmpegPath string
	available  bool
}

// NewTranscoder probes for ffmpeg at path ("" uses $PATH).
func NewTranscoder(path string) *Transcoder {
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		log.Printf("⚠️  [TRANSCODE] ffmpeg not found (%v) - audio will be sent untranscoded", err)
		return &Transcoder{ffmpegPath: path}
	}
	return &Transcoder{ffmpegPath: resolved, available: true}
}

// Available reports whether ffmpeg was found at startup.
func (t *Transcoder) Available() bool {
	return t.available
}

// ToPCM16 converts the input container to mono 16-bit little-endian PCM
// at 24 kHz, reading and writing through pipes.
func (t *Transcoder) ToPCM16(ctx context.Context, data []byte, format string) ([]byte, error) {
	if !t.available {
		return nil, fmt.Errorf("ffmpeg not available")
	}
	if !IsSupportedFormat(format) {
		return nil, fmt.Errorf("unsupported audio format: %s", format)
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath, PCMArgs(format)...)
	cmd.Stdin = bytes.NewReader(data)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg failed: %w (%s)", err, strings.TrimSpace(errBuf.String()))
	}
	return out.Bytes(), nil
}

// PCMArgs builds the ffmpeg argument list for a pipe-to-pipe conversion.
func PCMArgs(format string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", strings.ToLower(strings.TrimPrefix(format, ".")),
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", fmt.Sprintf("%d", TargetChannels),
		"-ar", fmt.Sprintf("%d", TargetSampleRate),
		"pipe:1",
	}
}
