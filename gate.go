package bs1770

// absoluteGateLKFS is the fixed absolute-gate threshold from BS.1770-4: 400 ms
// blocks quieter than this are silence and never contribute to the result.
const absoluteGateLKFS = -70

// relativeGateOffsetLU is how far below the absolute-gated mean a block may
// fall before the relative gate excludes it too.
const relativeGateOffsetLU = -10

// undefinedLoudness is returned by GatedMean when there is nothing to gate:
// fewer than four 100 ms windows, an absolute gate that empties the input,
// or a relative gate that empties what the absolute gate kept. BS.1770-4
// does not define integrated loudness for these inputs; this package pins
// Power(0) (LKFS -Inf) rather than an "undefined" sentinel type, so that
// GatedMean stays total and composes with LoudnessLKFS without a second
// error check. Tests pin this choice (see bs1770_test.go).
const undefinedLoudness = Power(0)

// GatedMean runs the two-stage absolute/relative gate over overlapping
// 400 ms blocks (four consecutive 100 ms windows) and returns the resulting
// integrated loudness. windows must already be channel-reduced, e.g. by
// ReduceStereo.
func GatedMean(windows []Power) Power {
	if len(windows) < 4 {
		return undefinedLoudness
	}

	blocks := make([]Power, 0, len(windows)-3)
	for k := 0; k+4 <= len(windows); k++ {
		blocks = append(blocks, 0.25*(windows[k]+windows[k+1]+windows[k+2]+windows[k+3]))
	}

	absoluteThreshold := FromLKFS(absoluteGateLKFS)

	var (
		gate1Sum   CompensatedSum
		gate1Count int
	)

	for _, b := range blocks {
		if b > absoluteThreshold {
			gate1Sum.Add(float64(b))
			gate1Count++
		}
	}

	if gate1Count == 0 {
		return undefinedLoudness
	}

	p1 := Power(gate1Sum.Value() / float64(gate1Count))
	relativeThreshold := FromLKFS(p1.LoudnessLKFS() + relativeGateOffsetLU)

	var (
		gate2Sum   CompensatedSum
		gate2Count int
	)

	for _, b := range blocks {
		if b > absoluteThreshold && b > relativeThreshold {
			gate2Sum.Add(float64(b))
			gate2Count++
		}
	}

	if gate2Count == 0 {
		return undefinedLoudness
	}

	return Power(gate2Sum.Value() / float64(gate2Count))
}
