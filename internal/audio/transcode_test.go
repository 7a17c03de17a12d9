package audio

import (
	"context"
	"encoding/binary"
	"testing"
)

func TestIsSupportedFormat(t *testing.T) {
	tests := []struct {
		format string
		want   bool
	}{
		{"webm", true},
		{".webm", true},
		{"WAV", true},
		{"ogg", true},
		{"aiff", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSupportedFormat(tt.format); got != tt.want {
			t.Errorf("IsSupportedFormat(%q): expected %v, got %v", tt.format, tt.want, got)
		}
	}
}

func TestPCMArgs(t *testing.T) {
	args := PCMArgs(".WebM")

	want := map[string]string{
		"-ac": "1",
		"-ar": "24000",
	}
	for flag, value := range want {
		found := false
		for i, a := range args {
			if a == flag && i+1 < len(args) && args[i+1] == value {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected %s %s in args %v", flag, value, args)
		}
	}

	// The input format must be normalized.
	for i, a := range args {
		if a == "-i" {
			break
		}
		if a == "-f" && args[i+1] != "webm" {
			t.Errorf("Expected normalized input format webm, got %s", args[i+1])
		}
	}
	if args[len(args)-1] != "pipe:1" {
		t.Errorf("Expected pipe output, got %s", args[len(args)-1])
	}
}

func TestWrapPCMInWAV(t *testing.T) {
	pcm := make([]byte, 480) // 10ms of 24kHz mono 16-bit audio
	wav := WrapPCMInWAV(pcm, TargetSampleRate, TargetChannels)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("Expected 44-byte header plus data, got %d bytes", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("Expected RIFF/WAVE magic")
	}
	if string(wav[12:16]) != "fmt " || string(wav[36:40]) != "data" {
		t.Error("Expected fmt and data chunks")
	}

	if got := binary.LittleEndian.Uint32(wav[24:28]); got != TargetSampleRate {
		t.Errorf("Expected sample rate %d, got %d", TargetSampleRate, got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != TargetChannels {
		t.Errorf("Expected %d channel(s), got %d", TargetChannels, got)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("Expected data length %d, got %d", len(pcm), got)
	}
	if got := binary.LittleEndian.Uint32(wav[4:8]); got != uint32(36+len(pcm)) {
		t.Errorf("Expected RIFF size %d, got %d", 36+len(pcm), got)
	}
}

func TestTranscoder_UnavailableErrors(t *testing.T) {
	tr := &Transcoder{ffmpegPath: "ffmpeg", available: false}
	if tr.Available() {
		t.Error("Expected transcoder to report unavailable")
	}
	if _, err := tr.ToPCM16(context.Background(), []byte("x"), "webm"); err == nil {
		t.Error("Expected an error when ffmpeg is unavailable")
	}
}
