// Package residual reverses the delta coding applied to a channel's samples.
package residual

import "fmt"

// Scheme selects how stored residuals are accumulated back into samples.
// It is the low three bits of a channel's compression method.
type Scheme uint32

const (
	// None stores absolute samples.
	None Scheme = iota
	// Samples stores first-order differences along the sample axis.
	Samples
	// SamplesTwice stores second-order differences along the sample axis.
	SamplesTwice
	// Channels stores first-order differences along samples combined with the
	// previous channel's first-order differences.
	Channels
)

// SchemeOf extracts the residual scheme from a compression method nibble.
func SchemeOf(method uint32) Scheme {
	return Scheme(method & 7)
}

// Valid reports whether the scheme is one the format defines.
func (s Scheme) Valid() bool {
	return s <= Channels
}

func (s Scheme) String() string {
	switch s {
	case None:
		return "none"
	case Samples:
		return "samples"
	case SamplesTwice:
		return "samples-twice"
	case Channels:
		return "samples+channels"
	default:
		return fmt.Sprintf("scheme(%d)", uint32(s))
	}
}

// Expand converts stored residuals in data into absolute samples, in place.
//
// prev is the previous channel's already expanded samples; it is only read for
// the Channels scheme and must then be at least as long as data. Arithmetic
// wraps at 32 bits.
func Expand(data, prev []int32, method uint32) {
	switch SchemeOf(method) {
	case Samples:
		for i := 1; i < len(data); i++ {
			data[i] += data[i-1]
		}

	case SamplesTwice:
		if len(data) < 2 {
			return
		}
		data[1] += data[0]
		for i := 2; i < len(data); i++ {
			data[i] += data[i-1] + (data[i-1] - data[i-2])
		}

	case Channels:
		for i := 1; i < len(data); i++ {
			data[i] += data[i-1] + (prev[i] - prev[i-1])
		}
	}
}
