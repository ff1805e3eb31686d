// Package measure bridges internal/decode's normalized PCM frames into the
// bs1770 core: it builds one ChannelLoudnessMeter per channel at the
// stream's sample rate, feeds every frame through the right meter, and
// channel-reduces the result into a single power sequence per file.
package measure

import (
	"context"
	"errors"
	"fmt"

	"github.com/wavegate/bs1770meter"
	"github.com/wavegate/bs1770meter/internal/decode"
	"github.com/wavegate/bs1770meter/internal/pcm"
)

// ErrUnsupportedChannelLayout is returned for anything other than mono or
// stereo input; BS.1770 surround weights are documented but not implemented
// (see bs1770.ReduceStereo).
var ErrUnsupportedChannelLayout = errors.New("measure: only mono and stereo input is supported")

// Result is one file's channel-reduced power windows plus the format it was
// decoded at, for callers that want to report sample rate or duration
// alongside loudness.
type Result struct {
	Format  pcm.Format
	Windows []bs1770.Power
}

// File decodes path and returns its channel-reduced 100 ms power windows.
// Mono input is passed straight through the one channel's meter; stereo
// input is combined with bs1770.ReduceStereo. Samples are pushed one frame
// at a time as they stream off disk, so memory use is bounded by the
// windows the core itself retains, not by the input's duration.
func File(ctx context.Context, path string) (Result, error) {
	var meters []*bs1770.ChannelLoudnessMeter

	var buildErr error

	onFormat := func(format pcm.Format) {
		meters = make([]*bs1770.ChannelLoudnessMeter, format.Channels)

		for ch := range meters {
			meter, err := bs1770.NewChannelLoudnessMeter(format.SampleRateHz)
			if err != nil {
				buildErr = fmt.Errorf("measure: %s: %w", path, err)

				return
			}

			meters[ch] = meter
		}
	}

	scratch := make([][]float64, 0)

	onFrame := func(frame []float64) {
		if buildErr != nil {
			return
		}

		if len(scratch) != len(frame) {
			scratch = make([][]float64, len(frame))
			for ch := range scratch {
				scratch[ch] = make([]float64, 1)
			}
		}

		for ch, x := range frame {
			scratch[ch][0] = x
			meters[ch].Push(scratch[ch])
		}
	}

	format, err := decode.Stream(ctx, path, onFormat, onFrame)
	if err != nil {
		return Result{}, err
	}

	if buildErr != nil {
		return Result{}, buildErr
	}

	windows, err := reduce(meters)
	if err != nil {
		return Result{}, fmt.Errorf("measure: %s: %w", path, err)
	}

	return Result{Format: format, Windows: windows}, nil
}

func reduce(meters []*bs1770.ChannelLoudnessMeter) ([]bs1770.Power, error) {
	switch len(meters) {
	case 1:
		return meters[0].PowerWindows(), nil
	case 2:
		return bs1770.ReduceStereo(meters[0].PowerWindows(), meters[1].PowerWindows())
	default:
		return nil, fmt.Errorf("%w: got %d channels", ErrUnsupportedChannelLayout, len(meters))
	}
}
