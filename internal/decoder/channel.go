package decoder

import (
	"fmt"

	"github.com/rjboer/goeep/internal/bitfield"
	"github.com/rjboer/goeep/internal/residual"
)

// rawHeaderSkip is the unused nibble that follows the method in channels
// stored without residuals.
const rawHeaderSkip = 4

// wideFlag selects 32-bit samples and 6-bit width fields.
const wideFlag = 8

// FieldWidths returns the bit widths of a channel's residual width fields
// (mbit) and of its first sample (dbit) for the given method.
// Wide methods (bit 3 set) use 6-bit width fields and 32-bit first samples.
func FieldWidths(method uint32) (mbit, dbit uint) {
	wide := uint(method & wideFlag)
	return 4 + wide>>2, 16 + wide<<1
}

// escapeSentinel is the most negative nbit-wide value, -2^(nbit-1).
func escapeSentinel(nbit uint) int64 {
	return -(int64(1) << (nbit - 1))
}

// DecodeChannel decodes len(dst) samples of one channel that starts at bit
// offset off, just past the channel's method nibble. Residuals are expanded in
// place; prev must hold the previous channel's samples when method uses
// inter-channel residuals. It returns the offset rounded up to the next byte.
func DecodeChannel(buf []byte, off uint64, dst, prev []int32, method uint32) (uint64, error) {
	if len(dst) == 0 {
		return 0, fmt.Errorf("%w: channel has no samples", ErrInvalidDimensions)
	}
	scheme := residual.SchemeOf(method)
	if !scheme.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCompressionMethod, method)
	}
	if scheme == residual.Channels && len(prev) < len(dst) {
		return 0, fmt.Errorf("%w: previous channel holds %d samples, need %d", ErrInvalidDimensions, len(prev), len(dst))
	}

	mbit, dbit := FieldWidths(method)
	var nbit, xbit uint

	if scheme == residual.None {
		nbit = dbit
		off += rawHeaderSkip
	} else {
		n, err := bitfield.Uint(buf, off, mbit)
		if err != nil {
			return 0, fmt.Errorf("read residual width: %w", err)
		}
		off += uint64(mbit)
		x, err := bitfield.Uint(buf, off, mbit)
		if err != nil {
			return 0, fmt.Errorf("read extended residual width: %w", err)
		}
		off += uint64(mbit)

		nbit, xbit = uint(n), uint(x)
		if xbit == nbit {
			xbit = 0
		}
		if nbit > bitfield.MaxWidth || xbit > bitfield.MaxWidth {
			return 0, fmt.Errorf("%w: residual %d bits, extended %d bits", ErrFieldWidth, nbit, xbit)
		}
	}

	first, err := bitfield.Int(buf, off, dbit)
	if err != nil {
		return 0, fmt.Errorf("read sample 0: %w", err)
	}
	off += uint64(dbit)
	dst[0] = first

	escape := xbit != 0 && nbit != 0
	var sentinel int64
	if escape {
		sentinel = escapeSentinel(nbit)
	}

	for i := 1; i < len(dst); i++ {
		v, err := bitfield.Int(buf, off, nbit)
		if err != nil {
			return 0, fmt.Errorf("read sample %d: %w", i, err)
		}
		off += uint64(nbit)

		if escape && int64(v) == sentinel {
			v, err = bitfield.Int(buf, off, xbit)
			if err != nil {
				return 0, fmt.Errorf("read extended sample %d: %w", i, err)
			}
			off += uint64(xbit)
		}
		dst[i] = v
	}

	residual.Expand(dst, prev, method)

	return alignByte(off), nil
}

// alignByte rounds a bit offset up to the next multiple of 8.
func alignByte(off uint64) uint64 {
	return (off + 7) &^ 7
}
