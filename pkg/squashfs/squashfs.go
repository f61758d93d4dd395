// Package squashfs mounts read-only squashfs archives and exposes
// path-based, random-access reads over their contents. It is the
// facade over the block source, codec, metadata reader, and path
// resolution services, in the same layering an early-boot initramfs
// driver uses: mount once, then open and read boot-critical files.
package squashfs

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-squashfs/internal/compression"
	"github.com/deploymenttheory/go-squashfs/internal/device"
	"github.com/deploymenttheory/go-squashfs/internal/interfaces"
	"github.com/deploymenttheory/go-squashfs/internal/parsers/directories"
	"github.com/deploymenttheory/go-squashfs/internal/parsers/fragments"
	"github.com/deploymenttheory/go-squashfs/internal/parsers/inodes"
	"github.com/deploymenttheory/go-squashfs/internal/parsers/superblock"
	"github.com/deploymenttheory/go-squashfs/internal/services"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

// Archive is a mounted squashfs image. All mutable state lives in the
// metadata block cache, which serializes behind its own lock, so a
// mounted archive is safe for concurrent readers.
type Archive struct {
	id         uuid.UUID
	source     interfaces.BlockSource
	superblock interfaces.SuperblockReader
	codec      interfaces.Codec
	cache      *services.MetadataBlockCache
	data       *services.DataReaderImpl
	fs         *services.FilesystemService
	closed     bool
}

// Mount parses and validates the superblock of an in-memory archive
// image and wires up the read path. The compression algorithm is
// resolved here; unsupported ids fail before any table is touched.
func Mount(image []byte, opts ...Option) (*Archive, error) {
	return mount(device.NewMemorySource(image), opts...)
}

// MountFile reads an archive file into memory and mounts it.
func MountFile(path string, opts ...Option) (*Archive, error) {
	source, err := device.NewFileSource(path)
	if err != nil {
		return nil, err
	}
	return mount(source, opts...)
}

func mount(source interfaces.BlockSource, opts ...Option) (*Archive, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	sb, err := superblock.NewSuperblockReader(source, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}

	codec, err := compression.ForID(sb.Compression())
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}

	cache := services.NewMetadataBlockCache(options.cacheCapacity)
	metadata := services.NewMetadataReader(source, codec, cache, binary.LittleEndian,
		sb.HasFlag(types.FlagUncompressedInodes))

	inodeDecoder, err := inodes.NewInodeReader(metadata, sb)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}

	directoryReader, err := directories.NewDirectoryReader(metadata, sb)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}

	var fragmentResolver interfaces.FragmentResolver
	if sb.FragmentTableStart() != types.InvalidTable {
		fragmentResolver, err = fragments.NewFragmentReader(source, metadata, sb, binary.LittleEndian)
		if err != nil {
			return nil, fmt.Errorf("mount: %w", err)
		}
	}

	dataReader, err := services.NewDataReader(source, codec, sb, fragmentResolver)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}

	fsService, err := services.NewFilesystemService(inodeDecoder, directoryReader, sb, options.diag)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}

	// The root inode must decode to a directory before the mount is
	// considered usable.
	if _, err := fsService.Root(); err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}

	return &Archive{
		id:         uuid.New(),
		source:     source,
		superblock: sb,
		codec:      codec,
		cache:      cache,
		data:       dataReader,
		fs:         fsService,
	}, nil
}

// Stat resolves path and returns its metadata without opening it.
func (a *Archive) Stat(path string) (*FileInfo, error) {
	if err := a.ensureOpen(); err != nil {
		return nil, err
	}

	inode, err := a.fs.Resolve(path)
	if err != nil {
		return nil, err
	}
	return fileInfoFor(path, inode), nil
}

// Open resolves path to a regular file and returns a read handle.
// Directories fail with ErrIsADirectory, other non-regular inodes with
// ErrNotRegularFile.
func (a *Archive) Open(path string) (*File, error) {
	if err := a.ensureOpen(); err != nil {
		return nil, err
	}

	inode, err := a.fs.Resolve(path)
	if err != nil {
		return nil, err
	}

	switch inode.Kind {
	case types.KindRegular:
	case types.KindDirectory:
		return nil, fmt.Errorf("open %q: %w", path, types.ErrIsADirectory)
	default:
		return nil, fmt.Errorf("open %q: %w", path, types.ErrNotRegularFile)
	}

	return &File{
		archive: a,
		inode:   inode,
		path:    path,
	}, nil
}

// ReadFile resolves path and returns its entire content.
func (a *Archive) ReadFile(path string) ([]byte, error) {
	f, err := a.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.ReadRange(0, f.Size())
}

// ReadLink resolves path to a symlink and returns its target.
func (a *Archive) ReadLink(path string) (string, error) {
	if err := a.ensureOpen(); err != nil {
		return "", err
	}

	inode, err := a.fs.Resolve(path)
	if err != nil {
		return "", err
	}
	if inode.Kind != types.KindSymlink {
		return "", fmt.Errorf("readlink %q: %w", path, types.ErrNotRegularFile)
	}
	return string(inode.SymlinkTarget), nil
}

// List returns the entries of the directory at path.
func (a *Archive) List(path string) ([]*FileInfo, error) {
	if err := a.ensureOpen(); err != nil {
		return nil, err
	}

	dir, err := a.fs.Resolve(path)
	if err != nil {
		return nil, err
	}
	if !dir.Kind.IsDir() {
		return nil, fmt.Errorf("list %q: %w", path, types.ErrNotADirectory)
	}

	entries, err := a.fs.List(path)
	if err != nil {
		return nil, err
	}

	infos := make([]*FileInfo, 0, len(entries))
	for _, entry := range entries {
		inode, err := a.fs.ResolveFrom(dir, string(entry.Name))
		if err != nil {
			return nil, err
		}
		infos = append(infos, fileInfoFor(string(entry.Name), inode))
	}
	return infos, nil
}

// Walk traverses the tree rooted at path depth-first.
func (a *Archive) Walk(path string, fn func(*FileInfo) error) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}

	return a.fs.Walk(path, func(entryPath string, inode *types.InodeRecord) error {
		return fn(fileInfoFor(entryPath, inode))
	})
}

// Info returns mount-level metadata and cache statistics.
func (a *Archive) Info() MountInfo {
	sb := a.superblock.Superblock()
	return MountInfo{
		ID:            a.id,
		BlockSize:     sb.BlockSize,
		Compression:   sb.Compression.String(),
		InodeCount:    sb.InodeCount,
		FragmentCount: sb.FragmentCount,
		BytesUsed:     sb.BytesUsed,
		ModTime:       time.Unix(int64(sb.ModTime), 0).UTC(),
		Cache:         a.cache.Stats(),
	}
}

// Close releases the archive. The backing store is memory-resident, so
// close has no side effects beyond invalidating handles.
func (a *Archive) Close() error {
	a.closed = true
	return nil
}

func (a *Archive) ensureOpen() error {
	if a.closed {
		return fmt.Errorf("archive %s is closed", a.id)
	}
	return nil
}

// MountInfo is mount-level metadata reported by Info.
type MountInfo struct {
	ID            uuid.UUID
	BlockSize     uint32
	Compression   string
	InodeCount    uint32
	FragmentCount uint32
	BytesUsed     uint64
	ModTime       time.Time
	Cache         services.CacheStats
}

// FileInfo is the normalized metadata of a resolved path.
type FileInfo struct {
	Path          string
	Kind          types.InodeKind
	Size          uint64
	Mode          uint16
	ModTime       time.Time
	InodeNumber   uint32
	SymlinkTarget string
}

// IsDir reports whether the entry is a directory.
func (fi *FileInfo) IsDir() bool {
	return fi.Kind.IsDir()
}

// Name returns the last path component.
func (fi *FileInfo) Name() string {
	for i := len(fi.Path) - 1; i >= 0; i-- {
		if fi.Path[i] == '/' {
			return fi.Path[i+1:]
		}
	}
	return fi.Path
}

func fileInfoFor(path string, inode *types.InodeRecord) *FileInfo {
	return &FileInfo{
		Path:          path,
		Kind:          inode.Kind,
		Size:          inode.Size,
		Mode:          inode.Mode,
		ModTime:       time.Unix(int64(inode.ModTime), 0).UTC(),
		InodeNumber:   inode.InodeNumber,
		SymlinkTarget: string(inode.SymlinkTarget),
	}
}
