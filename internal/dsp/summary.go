package dsp

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rjboer/goeep/internal/decoder"
)

// ChannelSummary describes the amplitude statistics of one decoded channel.
type ChannelSummary struct {
	Channel int     `json:"channel"`
	Method  uint32  `json:"method"`
	Min     int32   `json:"min"`
	Max     int32   `json:"max"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stddev"`
	RMS     float64 `json:"rms"`
	PeakBin int     `json:"peak_bin"`
	PeakDB  float64 `json:"peak_db"`
}

// floorDB stands in for empty spectral bins so reports stay JSON encodable.
const floorDB = -300

// Summarize computes per-channel statistics for a decoded block.
func Summarize(m *decoder.Matrix) []ChannelSummary {
	out := make([]ChannelSummary, m.NChan)
	x := make([]float64, m.NSamp)
	for c := range out {
		s := SummarizeChannel(m.Channel(c), x)
		s.Channel = c
		if c < len(m.Methods) {
			s.Method = m.Methods[c]
		}
		if m.NSamp > 1 {
			_, dbit := decoder.FieldWidths(s.Method)
			db := Spectrum(m.Channel(c), FullScale(dbit))
			s.PeakBin = PeakBin(db)
			s.PeakDB = math.Max(db[s.PeakBin], floorDB)
		}
		out[c] = s
	}
	return out
}

// SummarizeChannel computes statistics for one channel. scratch is reused for
// the float conversion when it is long enough.
func SummarizeChannel(samples []int32, scratch []float64) ChannelSummary {
	if len(samples) == 0 {
		return ChannelSummary{}
	}
	x := toFloat(samples, scratch)

	var s ChannelSummary
	s.Min = int32(floats.Min(x))
	s.Max = int32(floats.Max(x))
	if len(x) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(x, nil)
	} else {
		s.Mean = x[0]
	}
	s.RMS = math.Sqrt(floats.Dot(x, x) / float64(len(x)))
	return s
}

func toFloat(samples []int32, scratch []float64) []float64 {
	var x []float64
	if cap(scratch) >= len(samples) {
		x = scratch[:len(samples)]
	} else {
		x = make([]float64, len(samples))
	}
	for i, v := range samples {
		x[i] = float64(v)
	}
	return x
}
