package decoder

import (
	"github.com/rjboer/goeep/internal/logging"
)

// BlockReader walks consecutive blocks of a recording, carrying the bit
// offset returned by each block into the next.
type BlockReader struct {
	buf    []byte
	offset uint64
	blocks int
	logger logging.Logger
}

// NewBlockReader returns a reader positioned at bit offset start of buf.
func NewBlockReader(buf []byte, start uint64, logger logging.Logger) *BlockReader {
	if logger == nil {
		logger = logging.Default()
	}
	return &BlockReader{
		buf:    buf,
		offset: start,
		logger: logger.With(logging.F("subsystem", "decoder")),
	}
}

// Next decodes the block at the current offset. The offset only advances when
// the block decodes successfully.
func (r *BlockReader) Next(nsamp, nchan int) (*Matrix, error) {
	start := r.offset
	m, end, err := DecodeBlock(r.buf, start, nsamp, nchan)
	if err != nil {
		r.logger.Error("decode block failed",
			logging.F("block", r.blocks),
			logging.F("offset_bits", start),
			logging.F("error", err),
		)
		return nil, err
	}
	r.logger.Debug("decoded block",
		logging.F("block", r.blocks),
		logging.F("offset_bits", start),
		logging.F("end_bits", end),
		logging.F("nsamp", nsamp),
		logging.F("nchan", nchan),
	)
	r.offset = end
	r.blocks++
	return m, nil
}

// Offset returns the bit offset of the next block.
func (r *BlockReader) Offset() uint64 { return r.offset }

// Blocks returns how many blocks have been decoded.
func (r *BlockReader) Blocks() int { return r.blocks }

// Remaining returns the number of unread bits.
func (r *BlockReader) Remaining() uint64 {
	total := uint64(len(r.buf)) * 8
	if r.offset >= total {
		return 0
	}
	return total - r.offset
}
