// Package ffmpeg shells out to the ffmpeg binary to decode any container
// format internal/decode/wavfile can't read natively into raw interleaved
// PCM, which internal/pcm then normalizes.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"github.com/farcloser/primordium/fault"

	"github.com/wavegate/bs1770meter/internal/decode/binary"
	"github.com/wavegate/bs1770meter/internal/pcm"
)

const (
	name    = "ffmpeg"
	codec   = "pcm"
	timeout = 120 * time.Second
)

// ExtractStream decodes a single audio stream from input into raw
// little-endian signed-integer PCM matching format, writing the result to
// output.
func ExtractStream(ctx context.Context, input io.Reader, output io.Writer, streamIndex int, format pcm.Format) error {
	slog.Debug("ffmpeg.ExtractStream", "stream index", streamIndex, "stage", "start")

	ffmpegPath, found := binary.Available(name)
	if !found {
		return fmt.Errorf("%w: %s", fault.ErrMissingRequirements, name)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-i", "-",
		"-map", "0:a:"+strconv.Itoa(streamIndex),
		"-ar", strconv.Itoa(format.SampleRateHz),
		"-ac", strconv.Itoa(format.Channels),
		"-f", bitDepthToSpec(format.BitDepth),
		"-acodec", codec+bitDepthSuffix(format.BitDepth),
		"-v", "quiet",
		"-",
	)

	cmd.Stdout = output
	cmd.Stdin = input

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Debug("ffmpeg.ExtractStream", "stream index", streamIndex, "stage", "timeout")

			return fmt.Errorf("%w: after %v", fault.ErrTimeout, timeout)
		}

		slog.Debug("ffmpeg.ExtractStream", "stream index", streamIndex, "stage", "error")

		return fmt.Errorf("%w: %s: %w", fault.ErrCommandFailure, stderr.String(), err)
	}

	return nil
}

// bitDepthToSpec maps a bit depth to the ffmpeg raw PCM muxer name.
func bitDepthToSpec(bitDepth pcm.BitDepth) string {
	//nolint:gosec // bitDepth is always one of 16/24/32, validated upstream
	return "s" + strconv.Itoa(int(bitDepth)) + "le"
}

// bitDepthSuffix maps a bit depth to the ffmpeg pcm_s*le codec suffix.
func bitDepthSuffix(bitDepth pcm.BitDepth) string {
	return "_" + bitDepthToSpec(bitDepth)
}

// Decode runs ffmpeg over input and streams the resulting PCM through
// internal/pcm into onFrame, one normalized sample frame at a time.
func Decode(ctx context.Context, input io.Reader, streamIndex int, format pcm.Format, onFrame func(frame []float64)) error {
	pr, pw := io.Pipe()

	done := make(chan error, 1)

	go func() {
		done <- ExtractStream(ctx, input, pw, streamIndex, format)
		pw.Close()
	}()

	const chunkFrames = 4096

	chunk := make([]byte, chunkFrames*format.BytesPerFrame())

	for {
		n, err := io.ReadFull(pr, chunk)
		if n > 0 {
			if decodeErr := pcm.Decode(chunk[:n], format, onFrame); decodeErr != nil {
				return decodeErr
			}
		}

		if err != nil {
			break
		}
	}

	if err := <-done; err != nil {
		return err
	}

	return nil
}
