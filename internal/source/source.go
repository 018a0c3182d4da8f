// Package source fetches recording bytes for the decoder, either from the
// local filesystem or from an acquisition host over SSH, and unwraps zstd
// compressed recordings.
package source

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/rjboer/goeep/internal/logging"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Loader returns the raw bytes of a recording.
type Loader interface {
	Load(ctx context.Context) ([]byte, error)
	String() string
}

// File loads a recording from the local filesystem.
type File struct {
	Path string
}

// Load reads the whole file.
func (f File) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	return data, nil
}

func (f File) String() string { return f.Path }

// Open loads the recording and decompresses it when it is a zstd stream.
func Open(ctx context.Context, l Loader, logger logging.Logger) ([]byte, error) {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With(logging.F("subsystem", "source"), logging.F("source", l.String()))

	data, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !IsZstd(data) {
		logger.Debug("loaded recording", logging.F("bytes", len(data)))
		return data, nil
	}

	raw, err := Decompress(data)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded compressed recording",
		logging.F("compressed_bytes", len(data)),
		logging.F("bytes", len(raw)),
	)
	return raw, nil
}

// IsZstd reports whether data starts with a zstd frame.
func IsZstd(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Decompress inflates a zstd stream.
func Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress recording: %w", err)
	}
	return raw, nil
}
