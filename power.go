package bs1770

import "math"

// Power is a non-negative mean-square value of K-weighted squared amplitude,
// accumulated over some window (100 ms, 400 ms, or the whole gated signal,
// depending on where it is produced). It carries no unit beyond "full-scale
// power" until converted to LKFS.
type Power float64

// LoudnessLKFS converts this power to LKFS (equivalently LUFS). Power(0)
// converts to negative infinity, matching the mathematical limit of
// 10*log10(p) as p approaches 0.
func (p Power) LoudnessLKFS() float64 {
	return -0.691 + 10*math.Log10(float64(p))
}

// FromLKFS is the inverse of LoudnessLKFS: the power that would report the
// given LKFS value. Total for all finite inputs.
func FromLKFS(lkfs float64) Power {
	return Power(math.Pow(10, (lkfs+0.691)/10))
}
