package dsp

import (
	"math"
	"testing"
)

func TestSpectrumPeak(t *testing.T) {
	n := 64
	samples := make([]int32, n)
	for i := range samples {
		samples[i] = int32(math.Round(1000 * math.Cos(2*math.Pi*8*float64(i)/float64(n))))
	}
	db := Spectrum(samples, FullScale(16))
	if len(db) != n/2+1 {
		t.Fatalf("expected %d bins, got %d", n/2+1, len(db))
	}
	if peak := PeakBin(db); peak != 8 {
		t.Fatalf("expected peak at bin 8, got %d", peak)
	}
	for i, v := range db {
		if math.IsNaN(v) {
			t.Fatalf("bin %d is NaN", i)
		}
	}
}

func TestSpectrumEmpty(t *testing.T) {
	if len(Spectrum(nil, 1)) != 0 {
		t.Fatalf("expected empty spectrum")
	}
}

func TestFullScale(t *testing.T) {
	if FullScale(16) != 32768 || FullScale(32) != 2147483648 {
		t.Fatalf("unexpected full scale %g %g", FullScale(16), FullScale(32))
	}
}
