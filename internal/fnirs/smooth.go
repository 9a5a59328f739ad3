package fnirs

// RollingMean applies a centred moving average of the given window size.
// Edges use whatever samples fall inside the window, so the output has the
// same length as the input and no leading/trailing gaps.
func RollingMean(xs []float64, window int) []float64 {
	if window <= 1 || len(xs) == 0 {
		out := make([]float64, len(xs))
		copy(out, xs)
		return out
	}

	half := window / 2
	out := make([]float64, len(xs))
	for i := range xs {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := i + half
		if hi >= len(xs) {
			hi = len(xs) - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += xs[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// Interp linearly interpolates fp sampled at xp onto the query points x.
// xp must be ascending. Queries outside the xp range clamp to the edge
// values, matching the behaviour expected when a sensor log slightly
// overruns the CGM log.
func Interp(x, xp, fp []float64) []float64 {
	out := make([]float64, len(x))
	if len(xp) == 0 {
		return out
	}
	for i, q := range x {
		out[i] = interpOne(q, xp, fp)
	}
	return out
}

func interpOne(q float64, xp, fp []float64) float64 {
	if q <= xp[0] {
		return fp[0]
	}
	last := len(xp) - 1
	if q >= xp[last] {
		return fp[last]
	}
	// Binary search for the bracketing interval.
	lo, hi := 0, last
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xp[mid] <= q {
			lo = mid
		} else {
			hi = mid
		}
	}
	span := xp[hi] - xp[lo]
	if span == 0 {
		return fp[lo]
	}
	frac := (q - xp[lo]) / span
	return fp[lo] + frac*(fp[hi]-fp[lo])
}
