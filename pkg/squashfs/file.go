package squashfs

import (
	"fmt"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// File is a read handle over a regular file inode. Handles hold the
// decoded inode, so repeated reads skip path resolution.
type File struct {
	archive *Archive
	inode   *types.InodeRecord
	path    string
	closed  bool
}

// Path returns the path the handle was opened with.
func (f *File) Path() string {
	return f.path
}

// Size returns the file's declared size in bytes.
func (f *File) Size() uint64 {
	return f.inode.Size
}

// Stat returns the file's metadata.
func (f *File) Stat() *FileInfo {
	return fileInfoFor(f.path, f.inode)
}

// ReadRange returns exactly length bytes starting at offset. Ranges
// past the declared size fail with ErrOutOfRange; on success the full
// range is returned, never a short read.
func (f *File) ReadRange(offset, length uint64) ([]byte, error) {
	if f.closed {
		return nil, fmt.Errorf("read %q: handle is closed", f.path)
	}
	if err := f.archive.ensureOpen(); err != nil {
		return nil, err
	}

	data, err := f.archive.data.ReadRange(f.inode, offset, length)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", f.path, err)
	}
	return data, nil
}

// ReadAll returns the file's entire content.
func (f *File) ReadAll() ([]byte, error) {
	return f.ReadRange(0, f.inode.Size)
}

// Close invalidates the handle. The archive is read-only and
// memory-resident; there is nothing else to release.
func (f *File) Close() error {
	f.closed = true
	return nil
}
