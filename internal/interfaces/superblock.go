// File: internal/interfaces/superblock.go
package interfaces

import "github.com/deploymenttheory/go-squashfs/internal/types"

// SuperblockReader exposes the validated archive geometry.
type SuperblockReader interface {
	// Superblock returns the parsed superblock.
	Superblock() *types.SuperblockT

	// BlockSize returns the data block size in bytes.
	BlockSize() uint32

	// Compression returns the archive's compression algorithm id.
	Compression() types.CompressionID

	// InodeCount returns the total number of inodes in the archive.
	InodeCount() uint32

	// FragmentCount returns the number of fragment table entries.
	FragmentCount() uint32

	// RootInodeRef returns the metadata reference of the root directory
	// inode.
	RootInodeRef() types.MetadataRef

	// InodeTableStart returns the absolute offset of the inode table.
	InodeTableStart() uint64

	// DirectoryTableStart returns the absolute offset of the directory
	// table.
	DirectoryTableStart() uint64

	// FragmentTableStart returns the absolute offset of the fragment
	// lookup table, or types.InvalidTable when absent.
	FragmentTableStart() uint64

	// ExportTableStart returns the absolute offset of the NFS export
	// table, or types.InvalidTable when absent.
	ExportTableStart() uint64

	// HasFlag reports whether a superblock feature flag is set.
	HasFlag(flag uint16) bool
}
