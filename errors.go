package bs1770

import "errors"

// Precondition failures the core reports. Everything else about the core is
// total: gating on empty or tiny inputs returns a documented sentinel Power
// rather than an error (see GatedMean).
var (
	// ErrInvalidSampleRate is returned by NewChannelLoudnessMeter when the
	// sample rate is too low to contain a full 100 ms window.
	ErrInvalidSampleRate = errors.New("bs1770: sample rate must be at least 10 Hz")

	// ErrMismatchedChannelLength is returned by ReduceStereo when the two
	// input power sequences do not have equal length.
	ErrMismatchedChannelLength = errors.New("bs1770: left and right channel power sequences must have equal length")
)
