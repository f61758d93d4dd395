// Package device provides BlockSource implementations backing the
// archive driver: a memory-resident byte region, as handed off by a
// boot loader, and a convenience loader for archive files.
package device

import (
	"fmt"
	"os"

	"github.com/deploymenttheory/go-squashfs/internal/interfaces"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// MemorySource is a BlockSource over a read-only, memory-resident byte
// span. It never copies the underlying data; callers must not mutate
// the slice after construction.
type MemorySource struct {
	data []byte
}

// NewMemorySource wraps an in-memory archive image.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

// NewFileSource reads an archive file fully into memory. Archives this
// driver targets are boot images, small enough to be memory-resident.
func NewFileSource(path string) (*MemorySource, error) {
	if path == "" {
		return nil, fmt.Errorf("archive path cannot be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", path, err)
	}

	return NewMemorySource(data), nil
}

// ReadAt returns length bytes starting at offset.
func (m *MemorySource) ReadAt(offset uint64, length uint64) ([]byte, error) {
	end := offset + length
	if end < offset || end > uint64(len(m.data)) {
		return nil, fmt.Errorf("%w: read [%d, %d) beyond archive size %d",
			types.ErrUnexpectedEOF, offset, end, len(m.data))
	}
	return m.data[offset:end], nil
}

// Size returns the byte length of the span.
func (m *MemorySource) Size() uint64 {
	return uint64(len(m.data))
}

var _ interfaces.BlockSource = (*MemorySource)(nil)
