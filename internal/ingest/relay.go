package ingest

import (
	"fmt"
	"os/exec"
)

// defaultBinary is resolved through $PATH when no binary is configured.
const defaultBinary = "ffmpeg"

// Argument profile shared by every relay.
const (
	// socketTimeoutMicros bounds RTSP socket reads so a dead camera ends the relay.
	socketTimeoutMicros = "5000000"
	audioBitrate        = "128k"
	audioSampleRate     = "44100"
)

// relayArgs builds the fixed ffmpeg argument list for one room: RTSP over
// TCP in, low-latency demuxing, video copied as-is, audio transcoded to AAC,
// FLV over RTMP out.
func relayArgs(sourceURL, destURL string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "warning",
		"-rtsp_transport", "tcp",
		"-timeout", socketTimeoutMicros,
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-i", sourceURL,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", audioBitrate,
		"-ar", audioSampleRate,
		"-f", "flv",
		destURL,
	}
}

// resolveBinary returns the absolute path of the relay executable.
func resolveBinary(configured string) (string, error) {
	name := configured
	if name == "" {
		name = defaultBinary
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrBinaryNotFound, name, err)
	}
	return path, nil
}

// binaryName is the executable name used to recognise orphaned relays.
func binaryName(configured string) string {
	if configured == "" {
		return defaultBinary
	}
	return configured
}
