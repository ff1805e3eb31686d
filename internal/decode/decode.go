// Package decode picks a container decoding strategy for an input file and
// streams normalized PCM frames out of it, preferring the native wavfile
// path and falling back to ffprobe+ffmpeg for everything else.
package decode

import (
	"context"
	"fmt"
	"os"

	"github.com/wavegate/bs1770meter/internal/decode/ffmpeg"
	"github.com/wavegate/bs1770meter/internal/decode/ffprobe"
	"github.com/wavegate/bs1770meter/internal/decode/wavfile"
	"github.com/wavegate/bs1770meter/internal/pcm"
)

// Stream opens path and invokes onFormat once the stream's format is known,
// then onFrame once per normalized PCM sample frame. onFormat always runs
// before the first onFrame call, so callers that need the sample rate to
// configure rate-dependent state can do so without buffering. It tries the
// native WAV decoder first; any other container is handed to
// ffprobe+ffmpeg.
func Stream(ctx context.Context, path string, onFormat func(pcm.Format), onFrame func(frame []float64)) (pcm.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcm.Format{}, fmt.Errorf("decode: opening %s: %w", path, err)
	}
	defer f.Close()

	format, err := wavfile.Decode(f, onFormat, onFrame)
	if err == nil {
		return format, nil
	}

	if err != wavfile.ErrNotWAV {
		return pcm.Format{}, err
	}

	return streamViaFFmpeg(ctx, path, onFormat, onFrame)
}

func streamViaFFmpeg(ctx context.Context, path string, onFormat func(pcm.Format), onFrame func(frame []float64)) (pcm.Format, error) {
	probed, err := ffprobe.Probe(ctx, path)
	if err != nil {
		return pcm.Format{}, fmt.Errorf("decode: probing %s: %w", path, err)
	}

	streamsIndex, audioIndex, ok := probed.FirstAudioStream()
	if !ok {
		return pcm.Format{}, fmt.Errorf("decode: %s has no audio stream", path)
	}

	format, err := probed.Streams[streamsIndex].PCMFormat()
	if err != nil {
		return pcm.Format{}, fmt.Errorf("decode: %s: %w", path, err)
	}

	if onFormat != nil {
		onFormat(format)
	}

	f, err := os.Open(path)
	if err != nil {
		return pcm.Format{}, fmt.Errorf("decode: reopening %s: %w", path, err)
	}
	defer f.Close()

	if err := ffmpeg.Decode(ctx, f, audioIndex, format, onFrame); err != nil {
		return pcm.Format{}, fmt.Errorf("decode: %s: %w", path, err)
	}

	return format, nil
}
