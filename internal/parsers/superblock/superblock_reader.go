// Package superblock parses and validates the fixed-layout archive
// header read once at mount time.
package superblock

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-squashfs/internal/interfaces"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// superblockReader implements the SuperblockReader interface
type superblockReader struct {
	superblock *types.SuperblockT
	endian     binary.ByteOrder
}

// NewSuperblockReader parses and validates the superblock at the start
// of the archive span. Any magic, version, or geometry violation fails
// with ErrInvalidSuperblock before anything past the header is read.
func NewSuperblockReader(source interfaces.BlockSource, endian binary.ByteOrder) (interfaces.SuperblockReader, error) {
	data, err := source.ReadAt(0, types.SuperblockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: archive smaller than superblock: %v", types.ErrInvalidSuperblock, err)
	}

	sb := parseSuperblock(data, endian)

	if err := validateSuperblock(sb, source.Size()); err != nil {
		return nil, err
	}

	return &superblockReader{
		superblock: sb,
		endian:     endian,
	}, nil
}

// parseSuperblock decodes the 96 fixed superblock bytes.
func parseSuperblock(data []byte, endian binary.ByteOrder) *types.SuperblockT {
	return &types.SuperblockT{
		Magic:            endian.Uint32(data[0:4]),
		InodeCount:       endian.Uint32(data[4:8]),
		ModTime:          endian.Uint32(data[8:12]),
		BlockSize:        endian.Uint32(data[12:16]),
		FragmentCount:    endian.Uint32(data[16:20]),
		Compression:      types.CompressionID(endian.Uint16(data[20:22])),
		BlockLog:         endian.Uint16(data[22:24]),
		Flags:            endian.Uint16(data[24:26]),
		IDCount:          endian.Uint16(data[26:28]),
		VersionMajor:     endian.Uint16(data[28:30]),
		VersionMinor:     endian.Uint16(data[30:32]),
		RootInode:        endian.Uint64(data[32:40]),
		BytesUsed:        endian.Uint64(data[40:48]),
		IDTableStart:     endian.Uint64(data[48:56]),
		XattrTableStart:  endian.Uint64(data[56:64]),
		InodeTableStart:  endian.Uint64(data[64:72]),
		DirTableStart:    endian.Uint64(data[72:80]),
		FragTableStart:   endian.Uint64(data[80:88]),
		ExportTableStart: endian.Uint64(data[88:96]),
	}
}

func validateSuperblock(sb *types.SuperblockT, archiveSize uint64) error {
	if sb.Magic != types.SquashfsMagic {
		return fmt.Errorf("%w: bad magic 0x%08X, want 0x%08X",
			types.ErrInvalidSuperblock, sb.Magic, types.SquashfsMagic)
	}

	if sb.VersionMajor != types.SquashfsVersionMajor || sb.VersionMinor != types.SquashfsVersionMinor {
		return fmt.Errorf("%w: unsupported version %d.%d, want %d.%d",
			types.ErrInvalidSuperblock, sb.VersionMajor, sb.VersionMinor,
			types.SquashfsVersionMajor, types.SquashfsVersionMinor)
	}

	if sb.BlockSize < types.MinBlockSize || sb.BlockSize > types.MaxBlockSize {
		return fmt.Errorf("%w: block size %d outside [%d, %d]",
			types.ErrInvalidSuperblock, sb.BlockSize, types.MinBlockSize, types.MaxBlockSize)
	}

	if sb.BlockSize&(sb.BlockSize-1) != 0 {
		return fmt.Errorf("%w: block size %d is not a power of two",
			types.ErrInvalidSuperblock, sb.BlockSize)
	}

	if uint32(1)<<sb.BlockLog != sb.BlockSize {
		return fmt.Errorf("%w: block log %d disagrees with block size %d",
			types.ErrInvalidSuperblock, sb.BlockLog, sb.BlockSize)
	}

	if sb.BytesUsed > archiveSize {
		return fmt.Errorf("%w: declares %d bytes used but span holds %d",
			types.ErrInvalidSuperblock, sb.BytesUsed, archiveSize)
	}

	// Table offsets must land inside the archive. Optional tables may
	// be absent entirely.
	tables := []struct {
		name     string
		offset   uint64
		optional bool
	}{
		{"inode table", sb.InodeTableStart, false},
		{"directory table", sb.DirTableStart, false},
		{"fragment table", sb.FragTableStart, true},
		{"export table", sb.ExportTableStart, true},
		{"id table", sb.IDTableStart, false},
		{"xattr table", sb.XattrTableStart, true},
	}
	for _, t := range tables {
		if t.optional && t.offset == types.InvalidTable {
			continue
		}
		if t.offset >= archiveSize {
			return fmt.Errorf("%w: %s offset %d beyond archive size %d",
				types.ErrInvalidSuperblock, t.name, t.offset, archiveSize)
		}
	}

	if sb.InodeTableStart >= sb.DirTableStart {
		return fmt.Errorf("%w: inode table offset %d not before directory table offset %d",
			types.ErrInvalidSuperblock, sb.InodeTableStart, sb.DirTableStart)
	}

	root := types.UnpackMetadataRef(sb.RootInode)
	if root.Offset >= types.MetadataBlockSize {
		return fmt.Errorf("%w: root inode offset %d exceeds metadata block size",
			types.ErrInvalidSuperblock, root.Offset)
	}

	return nil
}

// Superblock returns the parsed superblock.
func (sr *superblockReader) Superblock() *types.SuperblockT {
	return sr.superblock
}

// BlockSize returns the data block size in bytes.
func (sr *superblockReader) BlockSize() uint32 {
	return sr.superblock.BlockSize
}

// Compression returns the archive's compression algorithm id.
func (sr *superblockReader) Compression() types.CompressionID {
	return sr.superblock.Compression
}

// InodeCount returns the total number of inodes in the archive.
func (sr *superblockReader) InodeCount() uint32 {
	return sr.superblock.InodeCount
}

// FragmentCount returns the number of fragment table entries.
func (sr *superblockReader) FragmentCount() uint32 {
	return sr.superblock.FragmentCount
}

// RootInodeRef returns the metadata reference of the root directory inode.
func (sr *superblockReader) RootInodeRef() types.MetadataRef {
	return types.UnpackMetadataRef(sr.superblock.RootInode)
}

// InodeTableStart returns the absolute offset of the inode table.
func (sr *superblockReader) InodeTableStart() uint64 {
	return sr.superblock.InodeTableStart
}

// DirectoryTableStart returns the absolute offset of the directory table.
func (sr *superblockReader) DirectoryTableStart() uint64 {
	return sr.superblock.DirTableStart
}

// FragmentTableStart returns the absolute offset of the fragment lookup table.
func (sr *superblockReader) FragmentTableStart() uint64 {
	return sr.superblock.FragTableStart
}

// ExportTableStart returns the absolute offset of the NFS export table.
func (sr *superblockReader) ExportTableStart() uint64 {
	return sr.superblock.ExportTableStart
}

// HasFlag reports whether a superblock feature flag is set.
func (sr *superblockReader) HasFlag(flag uint16) bool {
	return sr.superblock.HasFlag(flag)
}
