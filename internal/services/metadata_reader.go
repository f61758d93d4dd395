package services

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-squashfs/internal/interfaces"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// MetadataReaderImpl reads the block-chained metadata region: each
// metadata block is a 2-byte little-endian header (15-bit on-disk
// length, bit 15 set when the payload is stored verbatim) followed by
// that many payload bytes, decompressing to at most 8 KiB. The next
// block header sits immediately after the payload. Decompressed blocks
// are retained in the bounded LRU cache.
type MetadataReaderImpl struct {
	source       interfaces.BlockSource
	codec        interfaces.Codec
	cache        interfaces.MetadataCache
	endian       binary.ByteOrder
	uncompressed bool
}

// NewMetadataReader creates a metadata reader over the archive span.
// uncompressed treats every payload as verbatim regardless of the
// per-block stored bit, for archives whose superblock declares the
// metadata tables uncompressed.
func NewMetadataReader(source interfaces.BlockSource, codec interfaces.Codec, cache interfaces.MetadataCache, endian binary.ByteOrder, uncompressed bool) *MetadataReaderImpl {
	return &MetadataReaderImpl{
		source:       source,
		codec:        codec,
		cache:        cache,
		endian:       endian,
		uncompressed: uncompressed,
	}
}

// BlockAt returns the decompressed metadata block whose header sits at
// the given absolute archive offset, and the offset of the next chained
// block.
func (mr *MetadataReaderImpl) BlockAt(offset uint64) ([]byte, uint64, error) {
	if data, next, ok := mr.cache.Get(offset); ok {
		return data, next, nil
	}

	header, err := mr.source.ReadAt(offset, types.MetadataHeaderSize)
	if err != nil {
		return nil, 0, fmt.Errorf("metadata block header at %d: %w", offset, err)
	}

	word := mr.endian.Uint16(header)
	length := uint64(word & types.MetadataSizeMask)
	stored := word&types.MetadataStoredFlag != 0 || mr.uncompressed

	if length == 0 || length > types.MetadataBlockSize {
		return nil, 0, fmt.Errorf("%w: metadata block at %d declares %d payload bytes",
			types.ErrCorruptBlock, offset, length)
	}

	payload, err := mr.source.ReadAt(offset+types.MetadataHeaderSize, length)
	if err != nil {
		return nil, 0, fmt.Errorf("metadata block payload at %d: %w", offset, err)
	}

	data, err := mr.codec.Decompress(payload, stored, types.MetadataBlockSize)
	if err != nil {
		return nil, 0, fmt.Errorf("metadata block at %d: %w", offset, err)
	}

	next := offset + types.MetadataHeaderSize + length
	mr.cache.Put(offset, data, next)

	return data, next, nil
}

// Cursor returns a fresh cursor seeded at ref relative to tableStart.
func (mr *MetadataReaderImpl) Cursor(tableStart uint64, ref types.MetadataRef) interfaces.MetadataCursor {
	return &metadataCursor{
		reader: mr,
		block:  tableStart + ref.Block,
		offset: uint64(ref.Offset),
	}
}

// metadataCursor is a stateful, forward-only reader through the chain.
// Cursors share nothing but the block cache, so reads from a fresh
// cursor at the same reference always reproduce the same bytes.
type metadataCursor struct {
	reader *MetadataReaderImpl
	block  uint64 // absolute offset of the current block header
	offset uint64 // position within the decompressed block
}

// Read fills p completely, decompressing and advancing across chained
// blocks as needed.
func (c *metadataCursor) Read(p []byte) error {
	filled := 0
	for filled < len(p) {
		data, next, err := c.reader.BlockAt(c.block)
		if err != nil {
			return err
		}

		if c.offset > uint64(len(data)) {
			// Offset can only land past the payload on a truncated or
			// corrupted chain.
			return fmt.Errorf("%w: cursor offset %d beyond %d-byte metadata block at %d",
				types.ErrUnexpectedEOF, c.offset, len(data), c.block)
		}

		if c.offset == uint64(len(data)) {
			c.block = next
			c.offset = 0
			continue
		}

		n := copy(p[filled:], data[c.offset:])
		filled += n
		c.offset += uint64(n)
	}
	return nil
}

// ReadUint16 reads a little-endian uint16.
func (c *metadataCursor) ReadUint16() (uint16, error) {
	var buf [2]byte
	if err := c.Read(buf[:]); err != nil {
		return 0, err
	}
	return c.reader.endian.Uint16(buf[:]), nil
}

// ReadUint32 reads a little-endian uint32.
func (c *metadataCursor) ReadUint32() (uint32, error) {
	var buf [4]byte
	if err := c.Read(buf[:]); err != nil {
		return 0, err
	}
	return c.reader.endian.Uint32(buf[:]), nil
}

// ReadUint64 reads a little-endian uint64.
func (c *metadataCursor) ReadUint64() (uint64, error) {
	var buf [8]byte
	if err := c.Read(buf[:]); err != nil {
		return 0, err
	}
	return c.reader.endian.Uint64(buf[:]), nil
}

var _ interfaces.MetadataReader = (*MetadataReaderImpl)(nil)
