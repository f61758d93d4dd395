// File: internal/interfaces/directory.go
package interfaces

import "github.com/deploymenttheory/go-squashfs/internal/types"

// DirectoryEntry pairs a decoded entry with the metadata reference of
// its inode, resolved from the entry's header group.
type DirectoryEntry struct {
	Name     []byte
	Type     types.InodeType
	InodeRef types.MetadataRef
	// InodeNumber is the header base plus the entry's signed delta.
	InodeNumber uint32
}

// DirectoryReader enumerates the entries of a directory inode.
type DirectoryReader interface {
	// Entries returns all entries of dir in on-disk order.
	Entries(dir *types.InodeRecord) ([]DirectoryEntry, error)

	// Lookup scans dir for an exact byte-wise name match.
	// A miss fails with ErrNotFound.
	Lookup(dir *types.InodeRecord, name []byte) (*DirectoryEntry, error)
}
