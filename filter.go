// Package bs1770 implements the ITU-R BS.1770-4 loudness measurement
// algorithm: K-weighting, windowed mean-square power, stereo reduction, and
// the two-stage gated mean that produces integrated loudness in LKFS/LUFS.
package bs1770

import "math"

// Filter is a 2nd-order IIR (biquad) filter, applied one sample at a time
// while carrying its state across calls. The feedback coefficient a0 is
// implicitly 1; state lives with the filter and is never reset mid-stream.
type Filter struct {
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 float64
	y1, y2 float64
}

// NewHighShelfFilter builds the "stage 1" pre-filter (head-effect
// correction) for the given sample rate. Coefficients per ITU-R BS.1770-4 §1.
func NewHighShelfFilter(sampleRateHz float64) Filter {
	const (
		gainDb = 3.99984385397
		q      = 0.7071752369554193
		f0     = 1681.9744509555319
	)

	k := math.Tan(math.Pi * f0 / sampleRateHz)
	vh := math.Pow(10, gainDb/20)
	vb := math.Pow(vh, 0.499666774155)
	a0 := 1 + k/q + k*k

	return Filter{
		b0: (vh + vb*k/q + k*k) / a0,
		b1: 2 * (k*k - vh) / a0,
		b2: (vh - vb*k/q + k*k) / a0,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/q + k*k) / a0,
	}
}

// NewHighPassFilter builds the "stage 2" RLB high-pass filter for the given
// sample rate. Coefficients per ITU-R BS.1770-4 §1.
func NewHighPassFilter(sampleRateHz float64) Filter {
	const (
		q  = 0.5003270373253953
		f0 = 38.13547087613982
	)

	k := math.Tan(math.Pi * f0 / sampleRateHz)
	a0 := 1 + k/q + k*k

	return Filter{
		b0: 1,
		b1: -2,
		b2: 1,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/q + k*k) / a0,
	}
}

// Apply filters one sample and advances the filter's internal state.
func (f *Filter) Apply(x0 float64) float64 {
	y0 := f.b0*x0 + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2

	f.x2, f.x1 = f.x1, x0
	f.y2, f.y1 = f.y1, y0

	return y0
}
