package squashfs

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-squashfs/internal/types"
)

const (
	testBlockSize = 4096
	testModTime   = 1700000000
)

// enc appends little-endian fields to a byte image.
type enc struct {
	b []byte
}

func (e *enc) u16(v uint16) *enc {
	e.b = binary.LittleEndian.AppendUint16(e.b, v)
	return e
}

func (e *enc) u32(v uint32) *enc {
	e.b = binary.LittleEndian.AppendUint32(e.b, v)
	return e
}

func (e *enc) u64(v uint64) *enc {
	e.b = binary.LittleEndian.AppendUint64(e.b, v)
	return e
}

func (e *enc) raw(p []byte) *enc {
	e.b = append(e.b, p...)
	return e
}

// inodeHeader appends the 16-byte common inode header.
func (e *enc) inodeHeader(tag types.InodeType, mode uint16, inodeNumber uint32) *enc {
	return e.u16(uint16(tag)).u16(mode).u16(0).u16(0).u32(testModTime).u32(inodeNumber)
}

// dirEntry appends one directory listing entry.
func (e *enc) dirEntry(offset uint16, delta int16, tag types.InodeType, name string) *enc {
	return e.u16(offset).u16(uint16(delta)).u16(uint16(tag)).
		u16(uint16(len(name) - 1)).raw([]byte(name))
}

// storedMetadataBlock wraps payload in a verbatim metadata block.
func storedMetadataBlock(payload []byte) []byte {
	out := binary.LittleEndian.AppendUint16(nil, types.MetadataStoredFlag|uint16(len(payload)))
	return append(out, payload...)
}

// rawMetadataBlock writes payload verbatim with the stored bit clear,
// as archives declaring uncompressed metadata do.
func rawMetadataBlock(payload []byte) []byte {
	out := binary.LittleEndian.AppendUint16(nil, uint16(len(payload)))
	return append(out, payload...)
}

// testTree holds the file contents baked into the test image.
type testTree struct {
	hello  []byte // /hello.txt, fragment only
	data   []byte // /data.bin, two full blocks plus fragment tail
	passwd []byte // /etc/passwd, fragment only
}

// buildTestImage assembles a complete image:
//
//	/
//	├── data.bin
//	├── etc/
//	│   └── passwd
//	├── hello.txt
//	└── lib -> usr/lib
//
// The three small payloads share one fragment block; data.bin has one
// compressed and one verbatim data block in front of its tail.
func buildTestImage(t *testing.T) ([]byte, testTree) {
	return buildTestImageVariant(t, 0, storedMetadataBlock)
}

// buildTestImageVariant builds the same tree with the given superblock
// flags and metadata block encoding.
func buildTestImageVariant(t *testing.T, flags uint16, metadataBlock func([]byte) []byte) ([]byte, testTree) {
	t.Helper()

	tree := testTree{
		hello:  []byte("Hello, squashfs!"),
		data:   make([]byte, 2*testBlockSize+200),
		passwd: []byte("root:x:0:0:root:/root:/bin/sh\n"),
	}
	for i := range tree.data {
		tree.data[i] = byte(i*11 + i/512)
	}

	image := make([]byte, types.SuperblockSize)

	// Data blocks of data.bin.
	blocksStart := uint64(len(image))
	var z bytes.Buffer
	zw := zlib.NewWriter(&z)
	_, err := zw.Write(tree.data[:testBlockSize])
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	dataWords := []uint32{
		uint32(z.Len()),
		types.DataBlockStoredFlag | testBlockSize,
	}
	image = append(image, z.Bytes()...)
	image = append(image, tree.data[testBlockSize:2*testBlockSize]...)

	// Shared fragment block, written verbatim.
	fragBlock := append([]byte{}, tree.hello...)
	fragBlock = append(fragBlock, tree.data[2*testBlockSize:]...)
	fragBlock = append(fragBlock, tree.passwd...)
	helloFragOffset := uint32(0)
	dataFragOffset := uint32(len(tree.hello))
	passwdFragOffset := dataFragOffset + 200
	fragStart := uint64(len(image))
	image = append(image, fragBlock...)

	// Inode table payload. File and symlink inodes first so the
	// directory listings can reference their offsets.
	it := &enc{}
	helloOff := uint16(len(it.b))
	it.inodeHeader(types.InodeBasicFile, 0o644, 3).
		u32(0).u32(0).u32(helloFragOffset).u32(uint32(len(tree.hello)))
	dataOff := uint16(len(it.b))
	it.inodeHeader(types.InodeBasicFile, 0o644, 4).
		u32(uint32(blocksStart)).u32(0).u32(dataFragOffset).u32(uint32(len(tree.data))).
		u32(dataWords[0]).u32(dataWords[1])
	passwdOff := uint16(len(it.b))
	it.inodeHeader(types.InodeBasicFile, 0o600, 6).
		u32(0).u32(0).u32(passwdFragOffset).u32(uint32(len(tree.passwd)))
	libOff := uint16(len(it.b))
	it.inodeHeader(types.InodeBasicSymlink, 0o777, 5).
		u32(1).u32(7).raw([]byte("usr/lib"))

	// Directory table payload: /etc's listing, then /etc's inode, then
	// the root listing, then the root inode.
	dt := &enc{}
	etcListOff := uint16(len(dt.b))
	dt.u32(0).u32(0).u32(6).
		dirEntry(passwdOff, 0, types.InodeBasicFile, "passwd")
	etcListLen := uint32(len(dt.b)) - uint32(etcListOff)

	etcOff := uint16(len(it.b))
	it.inodeHeader(types.InodeBasicDirectory, 0o755, 2).
		u32(0).u32(2).u16(uint16(etcListLen + 3)).u16(etcListOff).u32(1)

	rootListOff := uint16(len(dt.b))
	dt.u32(3).u32(0).u32(2).
		dirEntry(dataOff, 2, types.InodeBasicFile, "data.bin").
		dirEntry(etcOff, 0, types.InodeBasicDirectory, "etc").
		dirEntry(helloOff, 1, types.InodeBasicFile, "hello.txt").
		dirEntry(libOff, 3, types.InodeBasicSymlink, "lib")
	rootListLen := uint32(len(dt.b)) - uint32(rootListOff)

	rootOff := uint16(len(it.b))
	it.inodeHeader(types.InodeBasicDirectory, 0o755, 1).
		u32(0).u32(3).u16(uint16(rootListLen + 3)).u16(rootListOff).u32(0)

	inodeTableStart := uint64(len(image))
	image = append(image, metadataBlock(it.b)...)
	dirTableStart := uint64(len(image))
	image = append(image, metadataBlock(dt.b)...)

	// Fragment entry block and its lookup table.
	fe := &enc{}
	fe.u64(fragStart).u32(types.DataBlockStoredFlag | uint32(len(fragBlock))).u32(0)
	fragBlockStart := uint64(len(image))
	image = append(image, metadataBlock(fe.b)...)
	fragTableStart := uint64(len(image))
	image = binary.LittleEndian.AppendUint64(image, fragBlockStart)

	idTableStart := uint64(len(image))
	image = binary.LittleEndian.AppendUint64(image, 0)

	sb := &enc{}
	sb.u32(types.SquashfsMagic).
		u32(6).           // inode count
		u32(testModTime). // modification time
		u32(testBlockSize).
		u32(1). // fragment count
		u16(uint16(types.CompressionGzip)).
		u16(12).    // block log
		u16(flags). // flags
		u16(1).     // id count
		u16(types.SquashfsVersionMajor).
		u16(types.SquashfsVersionMinor).
		u64(types.MetadataRef{Block: 0, Offset: rootOff}.Packed()).
		u64(uint64(len(image))). // bytes used
		u64(idTableStart).
		u64(types.InvalidTable). // xattr table
		u64(inodeTableStart).
		u64(dirTableStart).
		u64(fragTableStart).
		u64(types.InvalidTable) // export table
	copy(image, sb.b)

	return image, tree
}

func mountTestImage(t *testing.T, opts ...Option) (*Archive, testTree) {
	t.Helper()

	image, tree := buildTestImage(t)
	archive, err := Mount(image, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { archive.Close() })
	return archive, tree
}

func TestMount(t *testing.T) {
	archive, _ := mountTestImage(t)

	info := archive.Info()
	assert.Equal(t, uint32(testBlockSize), info.BlockSize)
	assert.Equal(t, "gzip", info.Compression)
	assert.Equal(t, uint32(6), info.InodeCount)
	assert.Equal(t, uint32(1), info.FragmentCount)
	assert.Equal(t, time.Unix(testModTime, 0).UTC(), info.ModTime)
	assert.NotEqual(t, info.ID.String(), (&Archive{}).id.String())

	root, err := archive.Stat("/")
	require.NoError(t, err)
	assert.True(t, root.IsDir())
	assert.Equal(t, uint32(1), root.InodeNumber)
}

func TestMountRejectsBadImages(t *testing.T) {
	t.Run("corrupt magic", func(t *testing.T) {
		image, _ := buildTestImage(t)
		binary.LittleEndian.PutUint32(image[0:4], 0x0BADF00D)

		_, err := Mount(image)
		assert.ErrorIs(t, err, ErrInvalidSuperblock)
	})

	t.Run("truncated image", func(t *testing.T) {
		image, _ := buildTestImage(t)

		_, err := Mount(image[:50])
		assert.ErrorIs(t, err, ErrInvalidSuperblock)
	})

	t.Run("unsupported compression id", func(t *testing.T) {
		image, _ := buildTestImage(t)
		binary.LittleEndian.PutUint16(image[20:22], uint16(types.CompressionLzo))

		_, err := Mount(image)
		assert.ErrorIs(t, err, ErrUnsupportedCodec)
	})
}

func TestMountUncompressedInodesFlag(t *testing.T) {
	image, tree := buildTestImageVariant(t, types.FlagUncompressedInodes, rawMetadataBlock)

	archive, err := Mount(image)
	require.NoError(t, err)
	defer archive.Close()

	content, err := archive.ReadFile("/etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, tree.passwd, content)

	entries, err := archive.List("/")
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestMountFile(t *testing.T) {
	image, tree := buildTestImage(t)
	path := filepath.Join(t.TempDir(), "test.squashfs")
	require.NoError(t, os.WriteFile(path, image, 0o644))

	archive, err := MountFile(path)
	require.NoError(t, err)
	defer archive.Close()

	content, err := archive.ReadFile("/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, tree.hello, content)
}

func TestStat(t *testing.T) {
	archive, tree := mountTestImage(t)

	t.Run("regular file", func(t *testing.T) {
		info, err := archive.Stat("/hello.txt")
		require.NoError(t, err)
		assert.Equal(t, KindRegular, info.Kind)
		assert.Equal(t, uint64(len(tree.hello)), info.Size)
		assert.Equal(t, uint16(0o644), info.Mode)
		assert.Equal(t, uint32(3), info.InodeNumber)
		assert.Equal(t, "hello.txt", info.Name())
		assert.False(t, info.IsDir())
	})

	t.Run("nested file", func(t *testing.T) {
		info, err := archive.Stat("/etc/passwd")
		require.NoError(t, err)
		assert.Equal(t, uint64(len(tree.passwd)), info.Size)
		assert.Equal(t, uint32(6), info.InodeNumber)
	})

	t.Run("directory", func(t *testing.T) {
		info, err := archive.Stat("/etc")
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("symlink", func(t *testing.T) {
		info, err := archive.Stat("/lib")
		require.NoError(t, err)
		assert.Equal(t, KindSymlink, info.Kind)
		assert.Equal(t, "usr/lib", info.SymlinkTarget)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := archive.Stat("/no/such/file")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestReadFile(t *testing.T) {
	archive, tree := mountTestImage(t)

	t.Run("fragment only file", func(t *testing.T) {
		content, err := archive.ReadFile("/hello.txt")
		require.NoError(t, err)
		assert.Equal(t, tree.hello, content)
	})

	t.Run("blocks plus fragment tail", func(t *testing.T) {
		content, err := archive.ReadFile("/data.bin")
		require.NoError(t, err)
		assert.Equal(t, tree.data, content)
	})

	t.Run("nested path", func(t *testing.T) {
		content, err := archive.ReadFile("/etc/passwd")
		require.NoError(t, err)
		assert.Equal(t, tree.passwd, content)
	})
}

func TestOpenAndReadRange(t *testing.T) {
	archive, tree := mountTestImage(t)

	t.Run("interior range", func(t *testing.T) {
		f, err := archive.Open("/hello.txt")
		require.NoError(t, err)
		defer f.Close()

		assert.Equal(t, uint64(len(tree.hello)), f.Size())
		assert.Equal(t, "/hello.txt", f.Path())

		data, err := f.ReadRange(7, 8)
		require.NoError(t, err)
		assert.Equal(t, tree.hello[7:15], data)
	})

	t.Run("range past end", func(t *testing.T) {
		f, err := archive.Open("/hello.txt")
		require.NoError(t, err)
		defer f.Close()

		_, err = f.ReadRange(10, 10)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("range spans blocks and tail", func(t *testing.T) {
		f, err := archive.Open("/data.bin")
		require.NoError(t, err)
		defer f.Close()

		spanning, err := f.ReadRange(testBlockSize-100, testBlockSize+250)
		require.NoError(t, err)
		assert.Equal(t, tree.data[testBlockSize-100:2*testBlockSize+150], spanning)

		tail, err := f.ReadRange(2*testBlockSize+50, 100)
		require.NoError(t, err)
		assert.Equal(t, tree.data[2*testBlockSize+50:2*testBlockSize+150], tail)
	})

	t.Run("ranges compose to whole file", func(t *testing.T) {
		f, err := archive.Open("/data.bin")
		require.NoError(t, err)
		defer f.Close()

		whole, err := f.ReadAll()
		require.NoError(t, err)

		var assembled []byte
		for off := uint64(0); off < f.Size(); off += 999 {
			n := uint64(999)
			if off+n > f.Size() {
				n = f.Size() - off
			}
			part, err := f.ReadRange(off, n)
			require.NoError(t, err)
			assembled = append(assembled, part...)
		}
		assert.Equal(t, whole, assembled)
	})

	t.Run("open directory", func(t *testing.T) {
		_, err := archive.Open("/etc")
		assert.ErrorIs(t, err, ErrIsADirectory)
	})

	t.Run("open symlink", func(t *testing.T) {
		_, err := archive.Open("/lib")
		assert.ErrorIs(t, err, ErrNotRegularFile)
	})

	t.Run("closed handle", func(t *testing.T) {
		f, err := archive.Open("/hello.txt")
		require.NoError(t, err)
		require.NoError(t, f.Close())

		_, err = f.ReadRange(0, 1)
		assert.Error(t, err)
	})
}

func TestReadLink(t *testing.T) {
	archive, _ := mountTestImage(t)

	target, err := archive.ReadLink("/lib")
	require.NoError(t, err)
	assert.Equal(t, "usr/lib", target)

	_, err = archive.ReadLink("/hello.txt")
	assert.ErrorIs(t, err, ErrNotRegularFile)
}

func TestList(t *testing.T) {
	archive, _ := mountTestImage(t)

	t.Run("root", func(t *testing.T) {
		infos, err := archive.List("/")
		require.NoError(t, err)
		require.Len(t, infos, 4)

		var names []string
		for _, info := range infos {
			names = append(names, info.Name())
		}
		sort.Strings(names)
		assert.Equal(t, []string{"data.bin", "etc", "hello.txt", "lib"}, names)
	})

	t.Run("subdirectory", func(t *testing.T) {
		infos, err := archive.List("/etc")
		require.NoError(t, err)
		require.Len(t, infos, 1)
		assert.Equal(t, "passwd", infos[0].Name())
	})

	t.Run("on a file", func(t *testing.T) {
		_, err := archive.List("/hello.txt")
		assert.ErrorIs(t, err, ErrNotADirectory)
	})
}

func TestWalk(t *testing.T) {
	archive, _ := mountTestImage(t)

	var paths []string
	err := archive.Walk("/", func(info *FileInfo) error {
		paths = append(paths, info.Path)
		return nil
	})
	require.NoError(t, err)

	sort.Strings(paths)
	assert.Equal(t, []string{"/data.bin", "/etc", "/etc/passwd", "/hello.txt", "/lib"}, paths)
}

func TestCacheStaysBounded(t *testing.T) {
	archive, tree := mountTestImage(t, WithCacheCapacity(2))

	for i := 0; i < 5; i++ {
		content, err := archive.ReadFile("/data.bin")
		require.NoError(t, err)
		require.Equal(t, tree.data, content)

		_, err = archive.Stat("/etc/passwd")
		require.NoError(t, err)
	}

	stats := archive.Info().Cache
	assert.Equal(t, 2, stats.Capacity)
	assert.LessOrEqual(t, stats.Resident, 2)
	assert.Greater(t, stats.Hits, int64(0))
}

func TestClose(t *testing.T) {
	archive, _ := mountTestImage(t)
	require.NoError(t, archive.Close())

	_, err := archive.Stat("/")
	assert.Error(t, err)

	_, err = archive.ReadFile("/hello.txt")
	assert.Error(t, err)
}
