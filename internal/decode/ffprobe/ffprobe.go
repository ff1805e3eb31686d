// Package ffprobe shells out to the ffprobe binary to identify the audio
// stream format of containers internal/decode/wavfile cannot open natively
// (FLAC, and anything else ffmpeg understands).
package ffprobe

import "time"

const (
	name = "ffprobe"
	// Slow hard-drives spinning up or network retrieved resources may cause timeouts if too aggressive.
	timeout = 60 * time.Second
)
