package types

// SquashFS Format Constants
// Reference: the squashfs binary format as produced by squashfs-tools 4.x
// (fs/squashfs/squashfs_fs.h in the Linux kernel tree).

const (
	// SquashfsMagic identifies a squashfs archive ("hsqs" little-endian).
	SquashfsMagic uint32 = 0x73717368

	// SquashfsVersionMajor and SquashfsVersionMinor are the only
	// supported on-disk format revision.
	SquashfsVersionMajor uint16 = 4
	SquashfsVersionMinor uint16 = 0

	// SuperblockSize is the fixed byte length of the superblock.
	SuperblockSize = 96

	// MetadataBlockSize is the decompressed size cap of a metadata block.
	MetadataBlockSize = 8192

	// MetadataHeaderSize is the byte length of the per-metadata-block
	// header: 15-bit payload length plus a "stored" bit.
	MetadataHeaderSize = 2

	// MetadataSizeMask extracts the payload length from a metadata
	// block header.
	MetadataSizeMask uint16 = 0x7FFF

	// MetadataStoredFlag marks a metadata block payload that is stored
	// verbatim rather than compressed.
	MetadataStoredFlag uint16 = 0x8000

	// DataBlockStoredFlag marks a data block or fragment size word whose
	// payload is stored verbatim. The remaining bits hold the on-disk
	// byte length.
	DataBlockStoredFlag uint32 = 1 << 24

	// DataBlockSizeMask extracts the on-disk byte length from a data
	// block or fragment size word.
	DataBlockSizeMask uint32 = ^DataBlockStoredFlag

	// MinBlockSize and MaxBlockSize bound the data block size declared
	// by the superblock. The block size must also be a power of two and
	// agree with the superblock's block_log field.
	MinBlockSize uint32 = 4096
	MaxBlockSize uint32 = 1048576

	// InvalidFragment marks a file inode with no fragment tail.
	InvalidFragment uint32 = 0xFFFFFFFF

	// InvalidTable marks an absent optional table offset in the
	// superblock (fragment, export, xattr).
	InvalidTable uint64 = 0xFFFFFFFFFFFFFFFF

	// FragmentEntrySize is the byte length of one fragment table entry.
	FragmentEntrySize = 16

	// FragmentsPerBlock is the number of fragment entries packed into
	// one metadata block of the fragment table.
	FragmentsPerBlock = MetadataBlockSize / FragmentEntrySize

	// DirectoryHeaderSize is the byte length of a directory header
	// (count, start, inode number).
	DirectoryHeaderSize = 12

	// DirectoryEntrySize is the byte length of a directory entry before
	// its name bytes.
	DirectoryEntrySize = 8

	// MaxNameLength bounds a directory entry name.
	MaxNameLength = 256

	// InodeHeaderSize is the byte length of the common inode header
	// shared by every inode variant.
	InodeHeaderSize = 16
)

// InodeType is the on-disk inode variant tag from the common header.
type InodeType uint16

const (
	InodeBasicDirectory InodeType = 1
	InodeBasicFile      InodeType = 2
	InodeBasicSymlink   InodeType = 3
	InodeBasicBlockDev  InodeType = 4
	InodeBasicCharDev   InodeType = 5
	InodeBasicFifo      InodeType = 6
	InodeBasicSocket    InodeType = 7
	InodeExtDirectory   InodeType = 8
	InodeExtFile        InodeType = 9
	InodeExtSymlink     InodeType = 10
	InodeExtBlockDev    InodeType = 11
	InodeExtCharDev     InodeType = 12
	InodeExtFifo        InodeType = 13
	InodeExtSocket      InodeType = 14
)

// CompressionID is the superblock compression algorithm identifier.
type CompressionID uint16

const (
	CompressionGzip CompressionID = 1
	CompressionLzma CompressionID = 2
	CompressionLzo  CompressionID = 3
	CompressionXz   CompressionID = 4
	CompressionLz4  CompressionID = 5
	CompressionZstd CompressionID = 6
)

// String returns the conventional name of the compression algorithm.
func (c CompressionID) String() string {
	switch c {
	case CompressionGzip:
		return "gzip"
	case CompressionLzma:
		return "lzma"
	case CompressionLzo:
		return "lzo"
	case CompressionXz:
		return "xz"
	case CompressionLz4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Superblock feature flags.
const (
	FlagUncompressedInodes    uint16 = 0x0001
	FlagUncompressedData      uint16 = 0x0002
	FlagUncompressedFragments uint16 = 0x0008
	FlagNoFragments           uint16 = 0x0010
	FlagAlwaysFragments       uint16 = 0x0020
	FlagDuplicates            uint16 = 0x0040
	FlagExportable            uint16 = 0x0080
	FlagUncompressedXattrs    uint16 = 0x0100
	FlagNoXattrs              uint16 = 0x0200
	FlagCompressorOptions     uint16 = 0x0400
	FlagUncompressedIDs       uint16 = 0x0800
)
