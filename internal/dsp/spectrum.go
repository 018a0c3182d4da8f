package dsp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// FullScale returns the largest magnitude representable by a signed sample
// of the given width.
func FullScale(bits uint) float64 {
	return math.Ldexp(1, int(bits)-1)
}

// Spectrum applies a Hamming window to one channel, normalizes the real FFT by
// the window sum and returns the one-sided magnitude in dB relative to
// fullScale. Bin k corresponds to k/len(samples) of the sample rate.
func Spectrum(samples []int32, fullScale float64) []float64 {
	if len(samples) == 0 {
		return []float64{}
	}
	win := Hamming(len(samples))
	windowed := ApplyWindow(toFloat(samples, nil), win)
	coeffs := fourier.NewFFT(len(samples)).Coefficients(nil, windowed)
	sumWin := floats.Sum(win)

	db := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mag := cmplx.Abs(c) / sumWin
		if mag == 0 {
			db[i] = math.Inf(-1)
			continue
		}
		db[i] = 20 * math.Log10(mag/fullScale)
	}
	return db
}

// PeakBin returns the index of the largest value, ignoring the DC bin when
// there is more than one bin.
func PeakBin(db []float64) int {
	if len(db) < 2 {
		return 0
	}
	return 1 + floats.MaxIdx(db[1:])
}
