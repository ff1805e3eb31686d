//nolint:tagliatelle
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/farcloser/primordium/fault"

	"github.com/wavegate/bs1770meter/internal/decode/binary"
	"github.com/wavegate/bs1770meter/internal/pcm"
)

// Result contains the marshalled output of ffprobe.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// BaseStream contains the stream fields we rely on for PCM decoding.
type BaseStream struct {
	Index         int    `json:"index"`
	CodecName     string `json:"codec_name"`
	CodecType     string `json:"codec_type"`
	SampleRate    string `json:"sample_rate,omitempty"`
	Channels      int    `json:"channels,omitempty"`
	ChannelLayout string `json:"channel_layout,omitempty"`
	Duration      string `json:"duration,omitempty"`

	// BitsPerRawSample is the source bit depth before any internal codec
	// conversion; prefer it over BitsPerSample when both are present.
	BitsPerRawSample string `json:"bits_per_raw_sample,omitempty"`
}

// Stream represents one decoded stream's properties.
type Stream struct {
	BaseStream

	CodecLongName string `json:"codec_long_name"`
	SampleFmt     string `json:"sample_fmt,omitempty"`
	BitsPerSample int    `json:"bits_per_sample,omitempty"`
}

// BaseFormat contains common container fields.
type BaseFormat struct {
	Filename   string `json:"filename"`
	NbStreams  int    `json:"nb_streams"`
	FormatName string `json:"format_name"`
	Duration   string `json:"duration,omitempty"`
	ProbeScore int    `json:"probe_score"`
}

// Format represents container-level information.
type Format struct {
	BaseFormat

	FormatLongName string `json:"format_long_name"`
}

// Probe runs ffprobe on the given file path and returns parsed metadata.
// It requires ffprobe to be available in the system PATH.
func Probe(ctx context.Context, filePath string) (*Result, error) {
	slog.Debug("ffprobe.Probe", "file path", filePath)

	ffprobePath, found := binary.Available(name)
	if !found {
		return nil, fmt.Errorf("%w: %s", fault.ErrMissingRequirements, name)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // filePath is intentionally user-provided input for probing media files
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		return nil, fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	var result Result
	if err = json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", fault.ErrInvalidJSON, err)
	}

	return &result, nil
}

// FirstAudioStream locates the first audio stream in the probe result. It
// returns streamsIndex, the position of that stream within r.Streams (for
// looking up Stream fields), and audioIndex, its position among audio
// streams only (the index ffmpeg's "-map 0:a:N" selector expects).
func (r *Result) FirstAudioStream() (streamsIndex, audioIndex int, ok bool) {
	for i, stream := range r.Streams {
		if stream.CodecType == "audio" {
			return i, 0, true
		}
	}

	return 0, 0, false
}

// PCMFormat derives the bs1770meter decoding format from a probed stream,
// preferring the raw source bit depth ffprobe reports over the internal
// decoding bit depth, since the latter is occasionally padded up by the
// codec (e.g. a 16-bit FLAC probed as bits_per_sample: 32).
func (s *Stream) PCMFormat() (pcm.Format, error) {
	sampleRate, err := strconv.Atoi(s.SampleRate)
	if err != nil {
		return pcm.Format{}, fmt.Errorf("ffprobe: invalid sample rate %q: %w", s.SampleRate, err)
	}

	bitDepth := s.BitsPerSample
	if s.BitsPerRawSample != "" {
		if raw, convErr := strconv.Atoi(s.BitsPerRawSample); convErr == nil && raw > 0 {
			bitDepth = raw
		}
	}

	switch bitDepth {
	case 16, 24, 32:
	default:
		return pcm.Format{}, fmt.Errorf("%w: %d", pcm.ErrUnsupportedBitDepth, bitDepth)
	}

	return pcm.Format{
		SampleRateHz: sampleRate,
		BitDepth:     pcm.BitDepth(bitDepth),
		Channels:     s.Channels,
	}, nil
}
