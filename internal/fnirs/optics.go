package fnirs

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Modified Beer-Lambert constants for the two instrument wavelengths.
const (
	dpf740 = 6.25 // differential pathlength factor, 740 nm
	dpf850 = 4.89 // differential pathlength factor, 850 nm

	// Optode separation distances in centimetres.
	SeparationShortCm = 0.8
	SeparationLongCm  = 3.0

	// Floor applied before the log to keep optical density finite.
	odFloor = 1e-9
)

// Molar extinction coefficients divided by ln(10), scaled to micromolar.
var (
	ln10 = math.Log(10)

	epsHbO740 = 803.1 / ln10 / 1e6
	epsHbR740 = 2278.1 / ln10 / 1e6
	epsHbO850 = 1058.0 / ln10 / 1e6
	epsHbR850 = 740.0 / ln10 / 1e6

	// extinctionInv is the inverse of the 2×2 extinction matrix, computed
	// once at init. The matrix is well-conditioned for these published
	// coefficients; a singular matrix here is a programming error.
	extinctionInv = mustInvertExtinction()
)

func mustInvertExtinction() *mat.Dense {
	e := mat.NewDense(2, 2, []float64{
		epsHbO740, epsHbR740,
		epsHbO850, epsHbR850,
	})
	var inv mat.Dense
	if err := inv.Inverse(e); err != nil {
		panic("fnirs: extinction coefficient matrix is singular: " + err.Error())
	}
	return &inv
}

// Haemoglobin converts raw two-wavelength intensity series into ΔHbO and
// ΔHbR concentration changes (micromolar) via the modified Beer-Lambert
// law: optical density relative to the channel mean, pathlength-corrected,
// then unmixed through the inverse extinction matrix.
func Haemoglobin(raw740, raw850 []float64, separationCm float64) (hbo, hbr []float64, err error) {
	if len(raw740) != len(raw850) {
		return nil, nil, dataErrf("haemoglobin: channel lengths differ (%d vs %d)", len(raw740), len(raw850))
	}
	if len(raw740) == 0 {
		return nil, nil, dataErrf("haemoglobin: empty signal")
	}
	if separationCm <= 0 {
		return nil, nil, dataErrf("haemoglobin: non-positive optode separation %v", separationCm)
	}

	mean740 := nanMean(raw740)
	mean850 := nanMean(raw850)
	if mean740 == 0 || mean850 == 0 {
		return nil, nil, dataErrf("haemoglobin: zero-mean channel")
	}

	hbo = make([]float64, len(raw740))
	hbr = make([]float64, len(raw740))
	for i := range raw740 {
		od740 := opticalDensity(raw740[i], mean740) / (separationCm * dpf740)
		od850 := opticalDensity(raw850[i], mean850) / (separationCm * dpf850)

		hbo[i] = extinctionInv.At(0, 0)*od740 + extinctionInv.At(0, 1)*od850
		hbr[i] = extinctionInv.At(1, 0)*od740 + extinctionInv.At(1, 1)*od850
	}
	return hbo, hbr, nil
}

// opticalDensity returns the attenuation of one sample relative to the
// channel mean, floored to keep the log finite.
func opticalDensity(raw, mean float64) float64 {
	ratio := raw / mean
	if ratio < odFloor || math.IsNaN(ratio) {
		ratio = odFloor
	}
	return -math.Log10(ratio)
}

// nanMean averages a series ignoring NaN samples. Returns 0 when every
// sample is NaN.
func nanMean(xs []float64) float64 {
	var sum float64
	var n int
	for _, v := range xs {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
