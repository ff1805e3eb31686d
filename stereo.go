package bs1770

// ReduceStereo combines two equal-length channel power sequences into a
// single unnormalized sum, as specified by BS.1770-4 Table 3 for the stereo
// case: unit weight per channel, not divided by channel count. The
// compensating constant is folded into Power.LoudnessLKFS instead, so the
// two must never be "fixed" in isolation (see DESIGN.md).
//
// Surround channel layouts would supply per-channel weights here (1.0 for
// L/R/C, 1.41 for Ls/Rs) instead of always summing with unit weight; this
// package only implements the stereo case.
func ReduceStereo(left, right []Power) ([]Power, error) {
	if len(left) != len(right) {
		return nil, ErrMismatchedChannelLength
	}

	combined := make([]Power, len(left))
	for i := range left {
		combined[i] = left[i] + right[i]
	}

	return combined, nil
}
