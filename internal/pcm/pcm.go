// Package pcm converts interleaved, signed-integer PCM byte frames into
// normalized float64 samples in [-1.0, 1.0] per channel, the sample
// convention the bs1770 core expects. It owns no container-format
// knowledge; decoding containers is internal/decode's job.
package pcm

import (
	"encoding/binary"
	"fmt"
)

// BitDepth is the number of bits per sample in a PCM stream.
type BitDepth int

const (
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// normalizer returns 1 / 2^(bits-1), the full-scale divisor for a signed
// PCM sample of the given bit depth (one bit is the sign bit).
func (d BitDepth) normalizer() float64 {
	return 1.0 / float64(int64(1)<<(uint(d)-1))
}

// Format describes one decoded PCM stream.
type Format struct {
	SampleRateHz int
	BitDepth     BitDepth
	Channels     int
}

// BytesPerFrame is the size, in bytes, of one interleaved multi-channel
// sample frame.
func (f Format) BytesPerFrame() int {
	return int(f.BitDepth/8) * f.Channels
}

// ErrUnsupportedBitDepth is returned for a BitDepth other than 16, 24, or 32.
var ErrUnsupportedBitDepth = fmt.Errorf("pcm: unsupported bit depth")

// Decode reads raw interleaved PCM bytes and invokes onFrame once per
// complete frame with one normalized float64 sample per channel. The slice
// passed to onFrame is reused between calls; callers that need to retain it
// must copy. Trailing bytes that don't form a complete frame are discarded,
// matching the core's own policy of dropping a partially filled window.
func Decode(data []byte, format Format, onFrame func(frame []float64)) error {
	bytesPerSample := int(format.BitDepth / 8)

	switch format.BitDepth {
	case Depth16, Depth24, Depth32:
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, format.BitDepth)
	}

	frameSize := format.BytesPerFrame()
	normalizer := format.BitDepth.normalizer()
	frame := make([]float64, format.Channels)

	complete := (len(data) / frameSize) * frameSize

	for offset := 0; offset < complete; offset += frameSize {
		for ch := 0; ch < format.Channels; ch++ {
			sampleOffset := offset + ch*bytesPerSample
			frame[ch] = decodeSample(data[sampleOffset:sampleOffset+bytesPerSample], format.BitDepth) * normalizer
		}

		onFrame(frame)
	}

	return nil
}

func decodeSample(b []byte, depth BitDepth) float64 {
	switch depth {
	case Depth16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case Depth24:
		raw := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if raw&0x800000 != 0 {
			raw |= ^0xFFFFFF
		}

		return float64(raw)
	case Depth32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	default:
		return 0
	}
}
