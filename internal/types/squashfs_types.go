// Package types defines the on-disk structures and normalized in-memory
// records of the squashfs archive format.
package types

// MetadataRef addresses a record inside the block-chained metadata
// region: the byte offset of the metadata block holding the record,
// relative to the start of its table, plus the byte offset of the
// record within the decompressed block.
//
// On disk the reference is packed into a uint64 as (block << 16) | offset.
type MetadataRef struct {
	// Block is the byte offset of the compressed metadata block header
	// relative to the table start.
	Block uint64
	// Offset is the byte offset within the decompressed block.
	Offset uint16
}

// UnpackMetadataRef splits a packed on-disk inode reference.
func UnpackMetadataRef(packed uint64) MetadataRef {
	return MetadataRef{
		Block:  (packed >> 16) & 0x0000FFFFFFFFFFFF,
		Offset: uint16(packed & 0xFFFF),
	}
}

// Packed returns the on-disk uint64 encoding of the reference.
func (r MetadataRef) Packed() uint64 {
	return r.Block<<16 | uint64(r.Offset)
}

// SuperblockT is the fixed-layout archive header, parsed once at mount.
type SuperblockT struct {
	Magic            uint32
	InodeCount       uint32
	ModTime          uint32
	BlockSize        uint32
	FragmentCount    uint32
	Compression      CompressionID
	BlockLog         uint16
	Flags            uint16
	IDCount          uint16
	VersionMajor     uint16
	VersionMinor     uint16
	RootInode        uint64
	BytesUsed        uint64
	IDTableStart     uint64
	XattrTableStart  uint64
	InodeTableStart  uint64
	DirTableStart    uint64
	FragTableStart   uint64
	ExportTableStart uint64
}

// HasFlag reports whether a superblock feature flag is set.
func (sb *SuperblockT) HasFlag(flag uint16) bool {
	return sb.Flags&flag != 0
}

// InodeKind is the normalized inode classification exposed to callers.
type InodeKind uint8

const (
	KindRegular InodeKind = iota
	KindDirectory
	KindSymlink
	KindOther
)

// String returns a short human-readable kind name.
func (k InodeKind) String() string {
	switch k {
	case KindRegular:
		return "file"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// IsDir reports whether the kind is a directory.
func (k InodeKind) IsDir() bool {
	return k == KindDirectory
}

// FragmentRef locates a file's tail inside a shared fragment block.
type FragmentRef struct {
	// Index into the fragment table.
	Index uint32
	// Offset of the tail within the decompressed fragment block.
	Offset uint32
}

// BlockList describes where a regular file's full data blocks live.
type BlockList struct {
	// Start is the absolute archive offset of the first data block.
	Start uint64
	// Sizes holds one size word per data block: bit 24 set means the
	// block is stored verbatim, the low bits give the on-disk length.
	// A zero word denotes a sparse block of zeros.
	Sizes []uint32
}

// DirectoryStart describes where a directory inode's entries live in
// the directory table.
type DirectoryStart struct {
	Ref MetadataRef
	// Size is the byte length of the directory listing plus 3, as
	// stored on disk ("." and ".." are counted but not stored).
	Size uint32
}

// InodeRecord is the normalized in-memory inode, decoded from any of
// the on-disk variants. It is created per lookup and not retained by
// the decoder.
type InodeRecord struct {
	Kind        InodeKind
	Type        InodeType
	Mode        uint16
	UIDIndex    uint16
	GIDIndex    uint16
	ModTime     uint32
	InodeNumber uint32

	// Size is the file size in bytes for regular files, the listing
	// size for directories, and the target length for symlinks.
	Size uint64

	// Regular files.
	Blocks   BlockList
	Fragment *FragmentRef

	// Directories.
	Dir DirectoryStart

	// Symlinks.
	SymlinkTarget []byte
}

// DirectoryHeaderT groups a run of directory entries sharing a base
// inode metadata block and a base inode number.
type DirectoryHeaderT struct {
	// Count is the number of entries following the header. On disk the
	// field stores count-1.
	Count uint32
	// Start is the byte offset of the metadata block in the inode table
	// holding the entries' inodes.
	Start uint32
	// InodeNumber is the base each entry's signed delta applies to.
	InodeNumber uint32
}

// DirectoryEntryT is a single name within a directory header group.
type DirectoryEntryT struct {
	// Offset of the inode record within the header's metadata block.
	Offset uint16
	// InodeDelta is the signed distance from the header's base inode
	// number. Negative deltas reference earlier-numbered inodes.
	InodeDelta int16
	Type       InodeType
	Name       []byte
}

// FragmentEntryT is one record of the fragment table.
type FragmentEntryT struct {
	// Start is the absolute archive offset of the fragment block.
	Start uint64
	// SizeWord carries the stored flag (bit 24) and on-disk length.
	SizeWord uint32
}

// Stored reports whether the fragment block is stored verbatim.
func (f FragmentEntryT) Stored() bool {
	return f.SizeWord&DataBlockStoredFlag != 0
}

// Size returns the fragment block's on-disk byte length.
func (f FragmentEntryT) Size() uint32 {
	return f.SizeWord & DataBlockSizeMask
}
