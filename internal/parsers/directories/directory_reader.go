// Package directories decodes directory listings: one or more header
// groups, each carrying a base inode metadata block and a base inode
// number, followed by entries whose names and signed inode-number
// deltas are read sequentially through a metadata cursor.
package directories

import (
	"bytes"
	"fmt"

	"github.com/deploymenttheory/go-squashfs/internal/interfaces"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// directoryReader implements the DirectoryReader interface
type directoryReader struct {
	metadata   interfaces.MetadataReader
	superblock interfaces.SuperblockReader
}

// NewDirectoryReader creates a directory reader over the directory table.
func NewDirectoryReader(metadata interfaces.MetadataReader, superblock interfaces.SuperblockReader) (interfaces.DirectoryReader, error) {
	if metadata == nil {
		return nil, fmt.Errorf("metadata reader cannot be nil")
	}
	if superblock == nil {
		return nil, fmt.Errorf("superblock reader cannot be nil")
	}

	return &directoryReader{
		metadata:   metadata,
		superblock: superblock,
	}, nil
}

// Entries returns all entries of dir in on-disk order.
func (dr *directoryReader) Entries(dir *types.InodeRecord) ([]interfaces.DirectoryEntry, error) {
	var entries []interfaces.DirectoryEntry
	err := dr.scan(dir, func(e interfaces.DirectoryEntry) bool {
		entries = append(entries, e)
		return false
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Lookup scans dir for an exact byte-wise name match.
func (dr *directoryReader) Lookup(dir *types.InodeRecord, name []byte) (*interfaces.DirectoryEntry, error) {
	var match *interfaces.DirectoryEntry
	err := dr.scan(dir, func(e interfaces.DirectoryEntry) bool {
		if bytes.Equal(e.Name, name) {
			match = &e
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %q", types.ErrNotFound, name)
	}
	return match, nil
}

// scan walks the listing, invoking fn per entry until fn returns true
// or the listing is exhausted.
func (dr *directoryReader) scan(dir *types.InodeRecord, fn func(interfaces.DirectoryEntry) bool) error {
	if !dir.Kind.IsDir() {
		return fmt.Errorf("%w: inode %d is a %s", types.ErrNotADirectory, dir.InodeNumber, dir.Kind)
	}

	// The stored listing size counts the unwritten "." and ".." entries
	// as 3 bytes; anything smaller is an empty directory.
	if dir.Dir.Size <= 3 {
		return nil
	}
	listing := uint64(dir.Dir.Size - 3)

	cursor := dr.metadata.Cursor(dr.superblock.DirectoryTableStart(), dir.Dir.Ref)

	var consumed uint64
	for consumed < listing {
		header, err := dr.readHeader(cursor)
		if err != nil {
			return fmt.Errorf("directory header of inode %d: %w", dir.InodeNumber, err)
		}
		consumed += types.DirectoryHeaderSize

		for i := uint32(0); i < header.Count; i++ {
			entry, size, err := dr.readEntry(cursor, header)
			if err != nil {
				return fmt.Errorf("directory entry %d of inode %d: %w", i, dir.InodeNumber, err)
			}
			consumed += size

			if fn(entry) {
				return nil
			}
		}
	}

	return nil
}

// readHeader decodes one header group. The on-disk count field stores
// one less than the number of entries that follow.
func (dr *directoryReader) readHeader(cursor interfaces.MetadataCursor) (*types.DirectoryHeaderT, error) {
	countField, err := cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	start, err := cursor.ReadUint32()
	if err != nil {
		return nil, err
	}
	inodeNumber, err := cursor.ReadUint32()
	if err != nil {
		return nil, err
	}

	count := countField + 1
	if count > types.MetadataBlockSize/types.DirectoryEntrySize {
		return nil, fmt.Errorf("%w: directory header declares %d entries", types.ErrCorruptBlock, count)
	}

	return &types.DirectoryHeaderT{
		Count:       count,
		Start:       start,
		InodeNumber: inodeNumber,
	}, nil
}

// readEntry decodes one entry and resolves it against its header base.
// Returns the entry and its on-disk byte length.
func (dr *directoryReader) readEntry(cursor interfaces.MetadataCursor, header *types.DirectoryHeaderT) (interfaces.DirectoryEntry, uint64, error) {
	offset, err := cursor.ReadUint16()
	if err != nil {
		return interfaces.DirectoryEntry{}, 0, err
	}
	deltaRaw, err := cursor.ReadUint16()
	if err != nil {
		return interfaces.DirectoryEntry{}, 0, err
	}
	entryType, err := cursor.ReadUint16()
	if err != nil {
		return interfaces.DirectoryEntry{}, 0, err
	}
	nameField, err := cursor.ReadUint16()
	if err != nil {
		return interfaces.DirectoryEntry{}, 0, err
	}

	// Names are stored with length-1.
	nameLen := int(nameField) + 1
	if nameLen > types.MaxNameLength {
		return interfaces.DirectoryEntry{}, 0, fmt.Errorf("%w: entry name of %d bytes",
			types.ErrCorruptBlock, nameLen)
	}

	name := make([]byte, nameLen)
	if err := cursor.Read(name); err != nil {
		return interfaces.DirectoryEntry{}, 0, err
	}

	// The delta is signed; later headers may reference earlier-numbered
	// inodes.
	delta := int16(deltaRaw)

	entry := interfaces.DirectoryEntry{
		Name: name,
		Type: types.InodeType(entryType),
		InodeRef: types.MetadataRef{
			Block:  uint64(header.Start),
			Offset: offset,
		},
		InodeNumber: uint32(int64(header.InodeNumber) + int64(delta)),
	}

	return entry, types.DirectoryEntrySize + uint64(nameLen), nil
}
