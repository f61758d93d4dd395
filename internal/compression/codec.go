// Package compression implements the per-block decompression codecs of
// the archive format. The algorithm is fixed at mount time from the
// superblock's compression id; ids without an implementation fail the
// mount with ErrUnsupportedCodec.
package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/deploymenttheory/go-squashfs/internal/interfaces"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// ForID returns the codec implementing the given compression id.
func ForID(id types.CompressionID) (interfaces.Codec, error) {
	switch id {
	case types.CompressionGzip:
		return &zlibCodec{}, nil
	case types.CompressionZstd:
		return newZstdCodec()
	default:
		return nil, fmt.Errorf("%w: %s (id %d)", types.ErrUnsupportedCodec, id, uint16(id))
	}
}

// zlibCodec implements the format's "gzip" compression id. Despite the
// name, the on-disk streams are zlib streams.
type zlibCodec struct{}

func (z *zlibCodec) Name() string {
	return "gzip"
}

func (z *zlibCodec) Decompress(raw []byte, stored bool, expected int) ([]byte, error) {
	if stored {
		return copyStored(raw, expected)
	}

	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib stream header: %v", types.ErrCorruptBlock, err)
	}
	defer r.Close()

	return readExpected(r, expected)
}

// copyStored handles blocks written verbatim because compression would
// have expanded them.
func copyStored(raw []byte, expected int) ([]byte, error) {
	if len(raw) > expected {
		return nil, fmt.Errorf("%w: stored block is %d bytes, expected at most %d",
			types.ErrCorruptBlock, len(raw), expected)
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// readExpected drains r, failing if the stream decodes to more than
// expected bytes. No partial result is returned on failure.
func readExpected(r io.Reader, expected int) ([]byte, error) {
	out := make([]byte, 0, expected)
	buf := make([]byte, 4096)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			if len(out)+n > expected {
				return nil, fmt.Errorf("%w: decompressed size exceeds expected %d bytes",
					types.ErrCorruptBlock, expected)
			}
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: decompression stream: %v", types.ErrCorruptBlock, err)
		}
	}
}
