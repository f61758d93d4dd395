// File: internal/interfaces/metadata.go
package interfaces

import "github.com/deploymenttheory/go-squashfs/internal/types"

// MetadataCursor is a stateful forward reader over the logically
// contiguous, physically block-chained metadata region. Records do not
// align to metadata block boundaries; every higher-level decode is a
// sequence of reads through a cursor. A cursor never seeks backward;
// callers construct a fresh cursor from a reference to re-read.
type MetadataCursor interface {
	// Read produces exactly len(p) bytes, decompressing and chaining
	// across metadata blocks as needed. Running past the archive fails
	// with ErrUnexpectedEOF.
	Read(p []byte) error

	// ReadUint16 reads a little-endian uint16.
	ReadUint16() (uint16, error)

	// ReadUint32 reads a little-endian uint32.
	ReadUint32() (uint32, error)

	// ReadUint64 reads a little-endian uint64.
	ReadUint64() (uint64, error)
}

// MetadataReader issues cursors into a block-chained metadata table and
// owns the bounded cache of decompressed metadata blocks.
type MetadataReader interface {
	// Cursor returns a fresh cursor seeded at ref, relative to the
	// table rooted at tableStart.
	Cursor(tableStart uint64, ref types.MetadataRef) MetadataCursor

	// BlockAt returns the decompressed metadata block whose 2-byte
	// header sits at the given absolute archive offset, along with the
	// absolute offset of the next chained block.
	BlockAt(offset uint64) (data []byte, next uint64, err error)
}

// MetadataCache is the bounded LRU of decompressed metadata blocks,
// keyed by the absolute archive offset of each block's header.
type MetadataCache interface {
	// Get returns a cached block and marks it most recently used.
	Get(offset uint64) ([]byte, uint64, bool)

	// Put stores a decompressed block and its next-block offset,
	// evicting the least recently used block when full.
	Put(offset uint64, data []byte, next uint64)

	// Len returns the number of resident blocks.
	Len() int

	// Capacity returns the maximum number of resident blocks.
	Capacity() int
}
