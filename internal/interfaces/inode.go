// File: internal/interfaces/inode.go
package interfaces

import "github.com/deploymenttheory/go-squashfs/internal/types"

// InodeDecoder turns raw metadata bytes into normalized inode records.
type InodeDecoder interface {
	// Decode reads the inode at ref from the inode table and normalizes
	// whichever on-disk variant it finds into a single record. Unknown
	// type tags fail with ErrUnsupportedInodeType.
	Decode(ref types.MetadataRef) (*types.InodeRecord, error)
}
