package decoder

import (
	"errors"
	"fmt"

	"github.com/rjboer/goeep/internal/bitfield"
)

var (
	// ErrInvalidCompressionMethod reports a method whose residual scheme is not 0-3.
	ErrInvalidCompressionMethod = errors.New("invalid compression method")
	// ErrFirstChannelCannotReferencePrevious reports inter-channel residuals on channel 0.
	ErrFirstChannelCannotReferencePrevious = errors.New("first channel cannot use inter-channel residuals (method 3/11)")
	// ErrInvalidDimensions reports an unusable sample/channel count or output size.
	ErrInvalidDimensions = errors.New("invalid block dimensions")
	// ErrOutOfBounds reports a field read past the end of the buffer.
	ErrOutOfBounds = bitfield.ErrOutOfBounds
	// ErrFieldWidth reports a residual width wider than 32 bits.
	ErrFieldWidth = bitfield.ErrFieldWidth
)

// DecodeError describes where a block decode failed. It unwraps to one of the
// sentinel errors above.
type DecodeError struct {
	Channel int    // channel being decoded
	Offset  uint64 // bit offset of the channel's method field
	Method  uint32 // method nibble, when it was read
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("channel %d (method %d, bit %d): %v", e.Channel, e.Method, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
