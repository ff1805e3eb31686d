package bs1770

import "fmt"

// ChannelLoudnessMeter drives a single channel's samples through the
// two-stage K-weighting filter, squares the result, and accumulates mean
// square "power" over contiguous 100 ms windows. It is an exclusive resource
// of its owner: nothing in this package synchronizes access to it, so
// concurrent channels should each own their own meter.
type ChannelLoudnessMeter struct {
	samplesPer100ms int

	stage1 Filter
	stage2 Filter

	sum   CompensatedSum
	count int

	windows []Power
}

// NewChannelLoudnessMeter builds a meter for the given sample rate. Returns
// an error if sampleRateHz is too low to contain even one sample per 100 ms
// window.
func NewChannelLoudnessMeter(sampleRateHz int) (*ChannelLoudnessMeter, error) {
	samplesPer100ms := sampleRateHz / 10
	if samplesPer100ms <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d Hz yields no samples per 100ms window", ErrInvalidSampleRate, sampleRateHz)
	}

	rate := float64(sampleRateHz)

	return &ChannelLoudnessMeter{
		samplesPer100ms: samplesPer100ms,
		stage1:          NewHighShelfFilter(rate),
		stage2:          NewHighPassFilter(rate),
	}, nil
}

// Push feeds samples through the filter cascade and accumulates completed
// 100 ms windows into the meter's power sequence. Calling Push repeatedly is
// equivalent to a single Push over the concatenated stream: filter and
// compensated-sum state persist across calls, with no implicit flush.
func (m *ChannelLoudnessMeter) Push(samples []float64) {
	for _, x := range samples {
		y := m.stage1.Apply(x)
		z := m.stage2.Apply(y)

		m.sum.Add(z * z)
		m.count++

		if m.count == m.samplesPer100ms {
			m.windows = append(m.windows, Power(m.sum.Value()/float64(m.samplesPer100ms)))
			m.sum.sum = 0
			m.count = 0
		}
	}
}

// PowerWindows returns the completed 100 ms power windows in input order.
// Any samples in a still-open window (fewer than samplesPer100ms trailing
// samples) are not represented here; gating operates in whole 100 ms blocks.
func (m *ChannelLoudnessMeter) PowerWindows() []Power {
	return m.windows
}
