// File: internal/interfaces/filesystem.go
package interfaces

import "github.com/deploymenttheory/go-squashfs/internal/types"

// PathResolver walks slash-separated paths to inode records.
type PathResolver interface {
	// Resolve walks path from the root directory. Empty components are
	// ignored; matching is exact byte comparison. A file hit before the
	// path is consumed fails with ErrNotADirectory, a missing component
	// with ErrNotFound.
	Resolve(path string) (*types.InodeRecord, error)
}

// DataReader resolves file content byte ranges to data blocks and the
// optional fragment tail, and returns decompressed bytes.
type DataReader interface {
	// ReadRange returns exactly length bytes of inode's content
	// starting at offset. Ranges past the declared file size fail with
	// ErrOutOfRange; reads are never partial on success.
	ReadRange(inode *types.InodeRecord, offset, length uint64) ([]byte, error)
}

// WalkFunc is called for each entry during a recursive walk. Returning
// an error stops the walk.
type WalkFunc func(path string, inode *types.InodeRecord) error
