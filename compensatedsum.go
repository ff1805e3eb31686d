package bs1770

// CompensatedSum is a Kahan running sum. It keeps the residue lost to
// floating-point rounding alongside the principal sum so that accumulating
// many small squared samples (~1e-5) into a much larger total (~1e-1) does
// not drift the result beyond measurement tolerance.
type CompensatedSum struct {
	sum     float64
	residue float64
}

// Zero resets both the sum and the residue.
func (s *CompensatedSum) Zero() {
	s.sum = 0
	s.residue = 0
}

// Add accumulates x using Kahan summation.
func (s *CompensatedSum) Add(x float64) {
	y := s.residue + x
	t := s.sum + y
	s.residue = y - (t - s.sum)
	s.sum = t
}

// Value returns the current sum (the residue is carried internally, not
// added back in, matching the identity sum + residue ≈ true total).
func (s CompensatedSum) Value() float64 {
	return s.sum
}
