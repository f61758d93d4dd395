// Package inodes decodes on-disk inode variants into normalized
// records. Inodes live in the block-chained inode table and are read
// through a metadata cursor; basic and extended variants of the same
// kind differ in field widths and are normalized into one record.
package inodes

import (
	"fmt"

	"github.com/deploymenttheory/go-squashfs/internal/interfaces"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// inodeReader implements the InodeDecoder interface
type inodeReader struct {
	metadata   interfaces.MetadataReader
	superblock interfaces.SuperblockReader
}

// NewInodeReader creates an inode decoder reading through the given
// metadata reader.
func NewInodeReader(metadata interfaces.MetadataReader, superblock interfaces.SuperblockReader) (interfaces.InodeDecoder, error) {
	if metadata == nil {
		return nil, fmt.Errorf("metadata reader cannot be nil")
	}
	if superblock == nil {
		return nil, fmt.Errorf("superblock reader cannot be nil")
	}

	return &inodeReader{
		metadata:   metadata,
		superblock: superblock,
	}, nil
}

// Decode reads the inode at ref and normalizes it.
func (ir *inodeReader) Decode(ref types.MetadataRef) (*types.InodeRecord, error) {
	if ref.Offset >= types.MetadataBlockSize {
		return nil, fmt.Errorf("%w: inode reference offset %d exceeds metadata block size",
			types.ErrCorruptBlock, ref.Offset)
	}

	cursor := ir.metadata.Cursor(ir.superblock.InodeTableStart(), ref)

	record, err := ir.decodeHeader(cursor)
	if err != nil {
		return nil, err
	}

	switch record.Type {
	case types.InodeBasicDirectory:
		err = ir.decodeBasicDirectory(cursor, record)
	case types.InodeExtDirectory:
		err = ir.decodeExtendedDirectory(cursor, record)
	case types.InodeBasicFile:
		err = ir.decodeBasicFile(cursor, record)
	case types.InodeExtFile:
		err = ir.decodeExtendedFile(cursor, record)
	case types.InodeBasicSymlink, types.InodeExtSymlink:
		err = ir.decodeSymlink(cursor, record)
	case types.InodeBasicBlockDev, types.InodeBasicCharDev,
		types.InodeExtBlockDev, types.InodeExtCharDev:
		err = ir.decodeDevice(cursor, record)
	case types.InodeBasicFifo, types.InodeBasicSocket,
		types.InodeExtFifo, types.InodeExtSocket:
		err = ir.decodeIPC(cursor, record)
	default:
		return nil, fmt.Errorf("%w: tag %d at inode reference (%d, %d)",
			types.ErrUnsupportedInodeType, uint16(record.Type), ref.Block, ref.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode inode at (%d, %d): %w", ref.Block, ref.Offset, err)
	}

	return record, nil
}

// decodeHeader reads the 16-byte common header shared by all variants.
func (ir *inodeReader) decodeHeader(cursor interfaces.MetadataCursor) (*types.InodeRecord, error) {
	record := &types.InodeRecord{}

	fields := []*uint16{&record.Mode, &record.UIDIndex, &record.GIDIndex}

	tag, err := cursor.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("inode header: %w", err)
	}
	record.Type = types.InodeType(tag)

	for _, f := range fields {
		v, err := cursor.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("inode header: %w", err)
		}
		*f = v
	}

	if record.ModTime, err = cursor.ReadUint32(); err != nil {
		return nil, fmt.Errorf("inode header: %w", err)
	}
	if record.InodeNumber, err = cursor.ReadUint32(); err != nil {
		return nil, fmt.Errorf("inode header: %w", err)
	}

	record.Kind = kindForType(record.Type)
	return record, nil
}

func kindForType(t types.InodeType) types.InodeKind {
	switch t {
	case types.InodeBasicDirectory, types.InodeExtDirectory:
		return types.KindDirectory
	case types.InodeBasicFile, types.InodeExtFile:
		return types.KindRegular
	case types.InodeBasicSymlink, types.InodeExtSymlink:
		return types.KindSymlink
	default:
		return types.KindOther
	}
}

func (ir *inodeReader) decodeBasicDirectory(cursor interfaces.MetadataCursor, record *types.InodeRecord) error {
	startBlock, err := cursor.ReadUint32()
	if err != nil {
		return err
	}
	if _, err := cursor.ReadUint32(); err != nil { // link count
		return err
	}
	fileSize, err := cursor.ReadUint16()
	if err != nil {
		return err
	}
	blockOffset, err := cursor.ReadUint16()
	if err != nil {
		return err
	}
	if _, err := cursor.ReadUint32(); err != nil { // parent inode
		return err
	}

	record.Size = uint64(fileSize)
	record.Dir = types.DirectoryStart{
		Ref:  types.MetadataRef{Block: uint64(startBlock), Offset: blockOffset},
		Size: uint32(fileSize),
	}
	return nil
}

func (ir *inodeReader) decodeExtendedDirectory(cursor interfaces.MetadataCursor, record *types.InodeRecord) error {
	if _, err := cursor.ReadUint32(); err != nil { // link count
		return err
	}
	fileSize, err := cursor.ReadUint32()
	if err != nil {
		return err
	}
	startBlock, err := cursor.ReadUint32()
	if err != nil {
		return err
	}
	if _, err := cursor.ReadUint32(); err != nil { // parent inode
		return err
	}
	if _, err := cursor.ReadUint16(); err != nil { // index count
		return err
	}
	blockOffset, err := cursor.ReadUint16()
	if err != nil {
		return err
	}
	if _, err := cursor.ReadUint32(); err != nil { // xattr index
		return err
	}

	record.Size = uint64(fileSize)
	record.Dir = types.DirectoryStart{
		Ref:  types.MetadataRef{Block: uint64(startBlock), Offset: blockOffset},
		Size: fileSize,
	}
	return nil
}

func (ir *inodeReader) decodeBasicFile(cursor interfaces.MetadataCursor, record *types.InodeRecord) error {
	blocksStart, err := cursor.ReadUint32()
	if err != nil {
		return err
	}
	fragIndex, err := cursor.ReadUint32()
	if err != nil {
		return err
	}
	fragOffset, err := cursor.ReadUint32()
	if err != nil {
		return err
	}
	fileSize, err := cursor.ReadUint32()
	if err != nil {
		return err
	}

	record.Size = uint64(fileSize)
	record.Blocks.Start = uint64(blocksStart)
	if fragIndex != types.InvalidFragment {
		record.Fragment = &types.FragmentRef{Index: fragIndex, Offset: fragOffset}
	}

	return ir.decodeBlockSizes(cursor, record)
}

func (ir *inodeReader) decodeExtendedFile(cursor interfaces.MetadataCursor, record *types.InodeRecord) error {
	blocksStart, err := cursor.ReadUint64()
	if err != nil {
		return err
	}
	fileSize, err := cursor.ReadUint64()
	if err != nil {
		return err
	}
	if _, err := cursor.ReadUint64(); err != nil { // sparse byte count
		return err
	}
	if _, err := cursor.ReadUint32(); err != nil { // link count
		return err
	}
	fragIndex, err := cursor.ReadUint32()
	if err != nil {
		return err
	}
	fragOffset, err := cursor.ReadUint32()
	if err != nil {
		return err
	}
	if _, err := cursor.ReadUint32(); err != nil { // xattr index
		return err
	}

	record.Size = fileSize
	record.Blocks.Start = blocksStart
	if fragIndex != types.InvalidFragment {
		record.Fragment = &types.FragmentRef{Index: fragIndex, Offset: fragOffset}
	}

	return ir.decodeBlockSizes(cursor, record)
}

// decodeBlockSizes reads the per-block size/flag word array following a
// file inode: one word per full data block, the tail block omitted when
// it lives in a fragment.
func (ir *inodeReader) decodeBlockSizes(cursor interfaces.MetadataCursor, record *types.InodeRecord) error {
	blockSize := uint64(ir.superblock.BlockSize())

	var count uint64
	if record.Fragment != nil {
		count = record.Size / blockSize
	} else {
		count = (record.Size + blockSize - 1) / blockSize
	}

	record.Blocks.Sizes = make([]uint32, count)
	for i := range record.Blocks.Sizes {
		word, err := cursor.ReadUint32()
		if err != nil {
			return fmt.Errorf("block size list entry %d: %w", i, err)
		}
		record.Blocks.Sizes[i] = word
	}
	return nil
}

func (ir *inodeReader) decodeSymlink(cursor interfaces.MetadataCursor, record *types.InodeRecord) error {
	if _, err := cursor.ReadUint32(); err != nil { // link count
		return err
	}
	targetSize, err := cursor.ReadUint32()
	if err != nil {
		return err
	}
	if targetSize > types.MetadataBlockSize {
		return fmt.Errorf("%w: symlink target of %d bytes", types.ErrCorruptBlock, targetSize)
	}

	target := make([]byte, targetSize)
	if err := cursor.Read(target); err != nil {
		return err
	}

	record.Size = uint64(targetSize)
	record.SymlinkTarget = target
	return nil
}

func (ir *inodeReader) decodeDevice(cursor interfaces.MetadataCursor, record *types.InodeRecord) error {
	if _, err := cursor.ReadUint32(); err != nil { // link count
		return err
	}
	if _, err := cursor.ReadUint32(); err != nil { // device number
		return err
	}
	if record.Type == types.InodeExtBlockDev || record.Type == types.InodeExtCharDev {
		if _, err := cursor.ReadUint32(); err != nil { // xattr index
			return err
		}
	}
	return nil
}

func (ir *inodeReader) decodeIPC(cursor interfaces.MetadataCursor, record *types.InodeRecord) error {
	if _, err := cursor.ReadUint32(); err != nil { // link count
		return err
	}
	if record.Type == types.InodeExtFifo || record.Type == types.InodeExtSocket {
		if _, err := cursor.ReadUint32(); err != nil { // xattr index
			return err
		}
	}
	return nil
}
