// File: internal/interfaces/fragments.go
package interfaces

import "github.com/deploymenttheory/go-squashfs/internal/types"

// FragmentResolver resolves fragment table entries by index. Entries
// are resolved lazily, only when an inode carries a fragment reference.
type FragmentResolver interface {
	// Entry returns the fragment table entry at index.
	Entry(index uint32) (*types.FragmentEntryT, error)
}
