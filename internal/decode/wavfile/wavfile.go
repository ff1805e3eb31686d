// Package wavfile decodes RIFF/WAVE audio natively, without shelling out to
// ffmpeg. It is the fast path for the common case; anything wavfile can't
// open falls back to internal/decode/ffmpeg.
package wavfile

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/wavegate/bs1770meter/internal/pcm"
)

// ErrNotWAV is returned when the input does not look like a RIFF/WAVE file.
var ErrNotWAV = fmt.Errorf("wavfile: not a RIFF/WAVE file")

const framesPerChunk = 4096

// Decode reads a WAV file from r and invokes onFormat once the header has
// been parsed, then onFrame once per sample frame with one normalized
// float64 per channel, the same convention pcm.Decode uses for every other
// container. onFormat runs before any frame is decoded so that callers
// needing the sample rate up front (e.g. to build a rate-dependent filter)
// can do so without a second pass over the file.
func Decode(r io.Reader, onFormat func(pcm.Format), onFrame func(frame []float64)) (pcm.Format, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return pcm.Format{}, ErrNotWAV
	}

	format := pcm.Format{
		SampleRateHz: int(decoder.SampleRate),
		BitDepth:     pcm.BitDepth(decoder.BitDepth),
		Channels:     int(decoder.NumChans),
	}

	if onFormat != nil {
		onFormat(format)
	}

	normalizer := 1.0 / float64(int64(1)<<(uint(format.BitDepth)-1))
	frame := make([]float64, format.Channels)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: format.Channels, SampleRate: format.SampleRateHz},
		Data:           make([]int, framesPerChunk*format.Channels),
		SourceBitDepth: int(format.BitDepth),
	}

	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil && err != io.EOF {
			return pcm.Format{}, fmt.Errorf("wavfile: reading PCM: %w", err)
		}

		completeFrames := n / format.Channels
		for i := 0; i < completeFrames; i++ {
			for ch := 0; ch < format.Channels; ch++ {
				frame[ch] = float64(buf.Data[i*format.Channels+ch]) * normalizer
			}

			onFrame(frame)
		}

		if n == 0 || err == io.EOF {
			break
		}
	}

	return format, nil
}
