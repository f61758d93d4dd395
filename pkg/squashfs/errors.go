package squashfs

import "github.com/deploymenttheory/go-squashfs/internal/types"

// Public aliases of the driver's error taxonomy, for callers matching
// with errors.Is.
var (
	ErrInvalidSuperblock    = types.ErrInvalidSuperblock
	ErrCorruptBlock         = types.ErrCorruptBlock
	ErrUnexpectedEOF        = types.ErrUnexpectedEOF
	ErrUnsupportedCodec     = types.ErrUnsupportedCodec
	ErrUnsupportedInodeType = types.ErrUnsupportedInodeType
	ErrNotFound             = types.ErrNotFound
	ErrNotADirectory        = types.ErrNotADirectory
	ErrIsADirectory         = types.ErrIsADirectory
	ErrNotRegularFile       = types.ErrNotRegularFile
	ErrOutOfRange           = types.ErrOutOfRange
)
