// Package decoder reconstructs blocks of multichannel samples from the
// bit-packed, residual-coded layout used by EEP/CNT recordings.
//
// A block stores its channels one after another. Each channel starts with a
// 4-bit compression method, followed by its residual widths, a full-width
// first sample and nsamp-1 residuals, and is padded to a byte boundary.
// Channels are decoded strictly in order because inter-channel residuals
// (scheme 3) refer to the previous channel's reconstructed samples.
package decoder

import (
	"fmt"
	"math"

	"github.com/rjboer/goeep/internal/bitfield"
	"github.com/rjboer/goeep/internal/residual"
)

// methodBits is the width of the per-channel compression method field.
const methodBits = 4

// Matrix holds a decoded block. Data is channel-major: channel c occupies
// Data[c*NSamp : (c+1)*NSamp].
type Matrix struct {
	NSamp   int
	NChan   int
	Data    []int32
	Methods []uint32 // method nibble of each channel
}

// Channel returns the samples of channel c. The slice aliases Data.
func (m *Matrix) Channel(c int) []int32 {
	return m.Data[c*m.NSamp : (c+1)*m.NSamp]
}

// At returns sample s of channel c.
func (m *Matrix) At(c, s int) int32 {
	return m.Data[c*m.NSamp+s]
}

// Rows returns the block as nsamp rows of nchan samples, the sample-major view
// used by callers that index [sample][channel].
func (m *Matrix) Rows() [][]int32 {
	rows := make([][]int32, m.NSamp)
	flat := make([]int32, m.NSamp*m.NChan)
	for s := range rows {
		row := flat[s*m.NChan : (s+1)*m.NChan]
		for c := range row {
			row[c] = m.At(c, s)
		}
		rows[s] = row
	}
	return rows
}

// DecodeBlock decodes nchan channels of nsamp samples starting at bit offset
// start and returns the block together with the byte-aligned offset that
// follows it. On error no matrix is returned.
func DecodeBlock(buf []byte, start uint64, nsamp, nchan int) (*Matrix, uint64, error) {
	if err := checkDimensions(nsamp, nchan); err != nil {
		return nil, 0, err
	}
	m := &Matrix{
		NSamp:   nsamp,
		NChan:   nchan,
		Data:    make([]int32, nsamp*nchan),
		Methods: make([]uint32, nchan),
	}
	end, err := decodeBlock(m.Data, m.Methods, buf, start, nsamp, nchan)
	if err != nil {
		return nil, 0, err
	}
	return m, end, nil
}

// DecodeBlockInto decodes into dst, which must hold at least nsamp*nchan
// values laid out channel-major. The contents of dst are unspecified on error.
func DecodeBlockInto(dst []int32, buf []byte, start uint64, nsamp, nchan int) (uint64, error) {
	if err := checkDimensions(nsamp, nchan); err != nil {
		return 0, err
	}
	if len(dst) < nsamp*nchan {
		return 0, fmt.Errorf("%w: output holds %d samples, need %d", ErrInvalidDimensions, len(dst), nsamp*nchan)
	}
	return decodeBlock(dst, nil, buf, start, nsamp, nchan)
}

// checkDimensions rejects empty channels and blocks whose sample count
// overflows int.
func checkDimensions(nsamp, nchan int) error {
	if nsamp <= 0 || nchan < 0 {
		return fmt.Errorf("%w: nsamp=%d nchan=%d", ErrInvalidDimensions, nsamp, nchan)
	}
	if nchan > 0 && nsamp > math.MaxInt/nchan {
		return fmt.Errorf("%w: %d x %d samples overflows", ErrInvalidDimensions, nsamp, nchan)
	}
	return nil
}

func decodeBlock(dst []int32, methods []uint32, buf []byte, off uint64, nsamp, nchan int) (uint64, error) {
	var prev []int32
	for c := 0; c < nchan; c++ {
		method, err := bitfield.Uint(buf, off, methodBits)
		if err != nil {
			return 0, &DecodeError{Channel: c, Offset: off, Err: err}
		}

		scheme := residual.SchemeOf(method)
		if !scheme.Valid() {
			return 0, &DecodeError{Channel: c, Offset: off, Method: method, Err: ErrInvalidCompressionMethod}
		}
		if c == 0 && scheme == residual.Channels {
			return 0, &DecodeError{Channel: c, Offset: off, Method: method, Err: ErrFirstChannelCannotReferencePrevious}
		}

		data := dst[c*nsamp : (c+1)*nsamp]
		next, err := DecodeChannel(buf, off+methodBits, data, prev, method)
		if err != nil {
			return 0, &DecodeError{Channel: c, Offset: off, Method: method, Err: err}
		}

		if methods != nil {
			methods[c] = method
		}
		prev = data
		off = next
	}
	return off, nil
}
