package types

import "errors"

// Error taxonomy of the archive driver. Callers match with errors.Is;
// every failure path wraps one of these sentinels with context.
var (
	// ErrInvalidSuperblock means the archive header failed magic,
	// version, or geometry validation. Mount aborts.
	ErrInvalidSuperblock = errors.New("invalid superblock")

	// ErrCorruptBlock means a block failed to decompress or produced a
	// size mismatch against its expected decompressed length.
	ErrCorruptBlock = errors.New("corrupt block")

	// ErrUnexpectedEOF means a chained metadata read or a data block
	// read ran past the end of the archive.
	ErrUnexpectedEOF = errors.New("unexpected end of archive")

	// ErrUnsupportedCodec means the superblock declares a compression
	// algorithm this driver does not implement.
	ErrUnsupportedCodec = errors.New("unsupported compression algorithm")

	// ErrUnsupportedInodeType means an inode carries a type tag outside
	// the known variant set.
	ErrUnsupportedInodeType = errors.New("unsupported inode type")

	// ErrNotFound means a path component did not match any directory
	// entry.
	ErrNotFound = errors.New("path not found")

	// ErrNotADirectory means path resolution hit a non-directory inode
	// before the path was fully consumed.
	ErrNotADirectory = errors.New("not a directory")

	// ErrIsADirectory means a directory inode was opened for reading.
	ErrIsADirectory = errors.New("is a directory")

	// ErrNotRegularFile means a symlink, device, pipe, or socket inode
	// was opened for reading.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrOutOfRange means a read extends past the file's declared size.
	ErrOutOfRange = errors.New("read out of range")
)
