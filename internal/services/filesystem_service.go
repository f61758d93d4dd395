package services

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/deploymenttheory/go-squashfs/internal/interfaces"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// FilesystemService resolves slash-separated paths against the archive
// by walking directory entries, and exposes listing and recursive
// traversal on top of the same walk.
type FilesystemService struct {
	inodes      interfaces.InodeDecoder
	directories interfaces.DirectoryReader
	superblock  interfaces.SuperblockReader

	// diag receives non-fatal warnings, such as entries with
	// unsupported inode variants inside directories that are otherwise
	// traversable.
	diag io.Writer
}

// NewFilesystemService creates a path resolution service.
func NewFilesystemService(inodes interfaces.InodeDecoder, directories interfaces.DirectoryReader, superblock interfaces.SuperblockReader, diag io.Writer) (*FilesystemService, error) {
	if inodes == nil {
		return nil, fmt.Errorf("inode decoder cannot be nil")
	}
	if directories == nil {
		return nil, fmt.Errorf("directory reader cannot be nil")
	}
	if superblock == nil {
		return nil, fmt.Errorf("superblock reader cannot be nil")
	}
	if diag == nil {
		diag = io.Discard
	}

	return &FilesystemService{
		inodes:      inodes,
		directories: directories,
		superblock:  superblock,
		diag:        diag,
	}, nil
}

// Root decodes the root directory inode.
func (fs *FilesystemService) Root() (*types.InodeRecord, error) {
	root, err := fs.inodes.Decode(fs.superblock.RootInodeRef())
	if err != nil {
		return nil, fmt.Errorf("failed to decode root inode: %w", err)
	}
	if !root.Kind.IsDir() {
		return nil, fmt.Errorf("%w: root inode is a %s", types.ErrNotADirectory, root.Kind)
	}
	return root, nil
}

// Resolve walks path from the root. Empty components are ignored, so
// "/a//b/" and "a/b" name the same inode. Matching is exact byte
// comparison: no case folding, no normalization.
func (fs *FilesystemService) Resolve(path string) (*types.InodeRecord, error) {
	root, err := fs.Root()
	if err != nil {
		return nil, err
	}
	return fs.ResolveFrom(root, path)
}

// ResolveFrom walks the remaining path components from an already
// resolved directory, so stepwise resolution composes with Resolve.
func (fs *FilesystemService) ResolveFrom(dir *types.InodeRecord, path string) (*types.InodeRecord, error) {
	current := dir

	for _, component := range strings.Split(path, "/") {
		if component == "" {
			continue
		}

		if !current.Kind.IsDir() {
			return nil, fmt.Errorf("component %q of %q: %w", component, path, types.ErrNotADirectory)
		}

		entry, err := fs.directories.Lookup(current, []byte(component))
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", path, err)
		}

		current, err = fs.inodes.Decode(entry.InodeRef)
		if err != nil {
			return nil, fmt.Errorf("inode of %q in %q: %w", component, path, err)
		}
	}

	return current, nil
}

// List returns the entries of the directory at path.
func (fs *FilesystemService) List(path string) ([]interfaces.DirectoryEntry, error) {
	dir, err := fs.Resolve(path)
	if err != nil {
		return nil, err
	}
	if !dir.Kind.IsDir() {
		return nil, fmt.Errorf("%q is a %s: %w", path, dir.Kind, types.ErrNotADirectory)
	}

	entries, err := fs.directories.Entries(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", path, err)
	}
	return entries, nil
}

// Walk traverses the tree rooted at path depth-first, invoking fn for
// every entry. Entries with unsupported inode variants are reported to
// the diagnostic sink and skipped rather than aborting the walk.
func (fs *FilesystemService) Walk(path string, fn interfaces.WalkFunc) error {
	dir, err := fs.Resolve(path)
	if err != nil {
		return err
	}
	if !dir.Kind.IsDir() {
		return fmt.Errorf("%q is a %s: %w", path, dir.Kind, types.ErrNotADirectory)
	}
	return fs.walk(strings.TrimRight(path, "/"), dir, fn)
}

func (fs *FilesystemService) walk(prefix string, dir *types.InodeRecord, fn interfaces.WalkFunc) error {
	entries, err := fs.directories.Entries(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		entryPath := prefix + "/" + string(entry.Name)

		inode, err := fs.inodes.Decode(entry.InodeRef)
		if err != nil {
			if errors.Is(err, types.ErrUnsupportedInodeType) {
				fmt.Fprintf(fs.diag, "skipping %s: %v\n", entryPath, err)
				continue
			}
			return fmt.Errorf("inode of %s: %w", entryPath, err)
		}

		if err := fn(entryPath, inode); err != nil {
			return err
		}

		if inode.Kind.IsDir() {
			if err := fs.walk(entryPath, inode, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

var _ interfaces.PathResolver = (*FilesystemService)(nil)
