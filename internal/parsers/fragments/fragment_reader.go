// Package fragments resolves fragment table entries. The superblock's
// fragment table offset points at a lookup table of absolute metadata
// block offsets; each such block packs 512 entries of 16 bytes, and is
// decompressed through the shared metadata block cache, so fragment
// lookups for many small files tend to hit a resident block.
package fragments

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-squashfs/internal/interfaces"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// fragmentReader implements fragment table entry resolution
type fragmentReader struct {
	source     interfaces.BlockSource
	metadata   interfaces.MetadataReader
	superblock interfaces.SuperblockReader
	endian     binary.ByteOrder
}

// NewFragmentReader creates a reader over the archive's fragment table.
func NewFragmentReader(source interfaces.BlockSource, metadata interfaces.MetadataReader, superblock interfaces.SuperblockReader, endian binary.ByteOrder) (interfaces.FragmentResolver, error) {
	if source == nil {
		return nil, fmt.Errorf("block source cannot be nil")
	}
	if metadata == nil {
		return nil, fmt.Errorf("metadata reader cannot be nil")
	}
	if superblock == nil {
		return nil, fmt.Errorf("superblock reader cannot be nil")
	}

	return &fragmentReader{
		source:     source,
		metadata:   metadata,
		superblock: superblock,
		endian:     endian,
	}, nil
}

// Entry resolves the fragment table entry at index.
func (fr *fragmentReader) Entry(index uint32) (*types.FragmentEntryT, error) {
	if fr.superblock.FragmentTableStart() == types.InvalidTable {
		return nil, fmt.Errorf("%w: archive has no fragment table", types.ErrCorruptBlock)
	}
	if index >= fr.superblock.FragmentCount() {
		return nil, fmt.Errorf("%w: fragment index %d, table holds %d entries",
			types.ErrCorruptBlock, index, fr.superblock.FragmentCount())
	}

	// Lookup table of absolute metadata block offsets, 512 entries per
	// block.
	lookupOffset := fr.superblock.FragmentTableStart() + 8*uint64(index/types.FragmentsPerBlock)
	pointer, err := fr.source.ReadAt(lookupOffset, 8)
	if err != nil {
		return nil, fmt.Errorf("fragment lookup table at %d: %w", lookupOffset, err)
	}
	blockOffset := fr.endian.Uint64(pointer)

	data, _, err := fr.metadata.BlockAt(blockOffset)
	if err != nil {
		return nil, fmt.Errorf("fragment metadata block at %d: %w", blockOffset, err)
	}

	entryOffset := (uint64(index) % types.FragmentsPerBlock) * types.FragmentEntrySize
	if entryOffset+types.FragmentEntrySize > uint64(len(data)) {
		return nil, fmt.Errorf("%w: fragment entry %d beyond %d-byte metadata block",
			types.ErrCorruptBlock, index, len(data))
	}

	return &types.FragmentEntryT{
		Start:    fr.endian.Uint64(data[entryOffset : entryOffset+8]),
		SizeWord: fr.endian.Uint32(data[entryOffset+8 : entryOffset+12]),
	}, nil
}
