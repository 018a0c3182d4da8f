package decoder

import (
	"testing"

	"github.com/rjboer/goeep/internal/residual"
)

// bitWriter packs fields most-significant bit first.
type bitWriter struct {
	buf []byte
	n   uint64
}

func (w *bitWriter) put(v uint32, length uint) {
	for i := int(length) - 1; i >= 0; i-- {
		if w.n%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>uint(i)&1 != 0 {
			w.buf[w.n/8] |= 0x80 >> (w.n % 8)
		}
		w.n++
	}
}

func (w *bitWriter) putInt(v int32, length uint) { w.put(uint32(v), length) }

func (w *bitWriter) align() {
	w.n = (w.n + 7) &^ 7
}

// residuals computes the values a writer stores for samples under method.
func residuals(samples, prev []int32, method uint32) []int32 {
	out := make([]int32, len(samples))
	copy(out, samples)
	switch residual.SchemeOf(method) {
	case residual.Samples:
		for i := 1; i < len(samples); i++ {
			out[i] = samples[i] - samples[i-1]
		}
	case residual.SamplesTwice:
		if len(samples) > 1 {
			out[1] = samples[1] - samples[0]
		}
		for i := 2; i < len(samples); i++ {
			out[i] = samples[i] - 2*samples[i-1] + samples[i-2]
		}
	case residual.Channels:
		for i := 1; i < len(samples); i++ {
			out[i] = samples[i] - samples[i-1] - (prev[i] - prev[i-1])
		}
	}
	return out
}

func fitsSigned(v int32, width uint) bool {
	if width >= 32 {
		return true
	}
	lo := -(int64(1) << (width - 1))
	hi := int64(1)<<(width-1) - 1
	return int64(v) >= lo && int64(v) <= hi
}

// chanLayout describes how one channel is written.
type chanLayout struct {
	method  uint32
	samples []int32
	nbit    uint // standard residual width; ignored for scheme 0
	xbit    uint // extended width; 0 or equal to nbit disables the escape
}

// writeChannel emits one channel, method nibble included, followed by padding.
func writeChannel(t *testing.T, w *bitWriter, ch chanLayout, prev []int32) {
	t.Helper()
	mbit, dbit := FieldWidths(ch.method)
	w.put(ch.method, methodBits)

	res := residuals(ch.samples, prev, ch.method)
	if residual.SchemeOf(ch.method) == residual.None {
		w.put(0, rawHeaderSkip)
		for _, v := range res {
			w.putInt(v, dbit)
		}
		w.align()
		return
	}

	w.put(uint32(ch.nbit), mbit)
	w.put(uint32(ch.xbit), mbit)
	w.putInt(res[0], dbit)

	escape := ch.xbit != 0 && ch.xbit != ch.nbit
	sentinel := int32(escapeSentinel(ch.nbit))
	for i, v := range res[1:] {
		switch {
		case escape && (v == sentinel || !fitsSigned(v, ch.nbit)):
			if !fitsSigned(v, ch.xbit) {
				t.Fatalf("residual %d of sample %d does not fit %d bits", v, i+1, ch.xbit)
			}
			w.putInt(sentinel, ch.nbit)
			w.putInt(v, ch.xbit)
		case fitsSigned(v, ch.nbit):
			w.putInt(v, ch.nbit)
		default:
			t.Fatalf("residual %d of sample %d does not fit %d bits", v, i+1, ch.nbit)
		}
	}
	w.align()
}

// encodeBlock writes all channels and returns the buffer with tail padding.
func encodeBlock(t *testing.T, chans []chanLayout, pad int) []byte {
	t.Helper()
	w := &bitWriter{}
	var prev []int32
	for _, ch := range chans {
		writeChannel(t, w, ch, prev)
		prev = ch.samples
	}
	return append(w.buf, make([]byte, pad)...)
}
