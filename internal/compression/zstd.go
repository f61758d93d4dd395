package compression

import (
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// zstdCodec implements compression id 6. A single stateless decoder is
// shared across blocks; DecodeAll is safe for reuse and avoids
// per-block allocation of decoder state.
type zstdCodec struct {
	dec *zstd.Decoder
}

func newZstdCodec() (*zstdCodec, error) {
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize zstd decoder: %w", err)
	}
	return &zstdCodec{dec: dec}, nil
}

func (z *zstdCodec) Name() string {
	return "zstd"
}

func (z *zstdCodec) Decompress(raw []byte, stored bool, expected int) ([]byte, error) {
	if stored {
		return copyStored(raw, expected)
	}

	out, err := z.dec.DecodeAll(raw, make([]byte, 0, expected))
	if err != nil {
		return nil, fmt.Errorf("%w: zstd: %v", types.ErrCorruptBlock, err)
	}
	if len(out) > expected {
		return nil, fmt.Errorf("%w: decompressed size %d exceeds expected %d bytes",
			types.ErrCorruptBlock, len(out), expected)
	}
	return out, nil
}
