package services

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-squashfs/internal/compression"
	"github.com/deploymenttheory/go-squashfs/internal/device"
	"github.com/deploymenttheory/go-squashfs/internal/interfaces"
	"github.com/deploymenttheory/go-squashfs/internal/types"
)

const testBlockSize = 4096

type dataStubSuperblock struct {
	flags uint16
}

func (s *dataStubSuperblock) Superblock() *types.SuperblockT   { return &types.SuperblockT{} }
func (s *dataStubSuperblock) BlockSize() uint32                { return testBlockSize }
func (s *dataStubSuperblock) Compression() types.CompressionID { return types.CompressionGzip }
func (s *dataStubSuperblock) InodeCount() uint32               { return 0 }
func (s *dataStubSuperblock) FragmentCount() uint32            { return 1 }
func (s *dataStubSuperblock) RootInodeRef() types.MetadataRef  { return types.MetadataRef{} }
func (s *dataStubSuperblock) InodeTableStart() uint64          { return 0 }
func (s *dataStubSuperblock) DirectoryTableStart() uint64      { return 0 }
func (s *dataStubSuperblock) FragmentTableStart() uint64       { return 0 }
func (s *dataStubSuperblock) ExportTableStart() uint64         { return types.InvalidTable }
func (s *dataStubSuperblock) HasFlag(flag uint16) bool         { return s.flags&flag != 0 }

// stubFragments serves a single fragment entry.
type stubFragments struct {
	entry types.FragmentEntryT
}

func (s *stubFragments) Entry(index uint32) (*types.FragmentEntryT, error) {
	e := s.entry
	return &e, nil
}

// dataImage accumulates data blocks in an archive span and records
// their inode size words.
type dataImage struct {
	buf   []byte
	start uint64
	words []uint32
	flags uint16
}

func (d *dataImage) appendCompressed(t *testing.T, content []byte) {
	t.Helper()

	var z bytes.Buffer
	w := zlib.NewWriter(&z)
	_, err := w.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	d.words = append(d.words, uint32(z.Len()))
	d.buf = append(d.buf, z.Bytes()...)
}

func (d *dataImage) appendStored(content []byte) {
	d.words = append(d.words, types.DataBlockStoredFlag|uint32(len(content)))
	d.buf = append(d.buf, content...)
}

func (d *dataImage) appendSparse() {
	d.words = append(d.words, 0)
}

// appendRaw writes a block verbatim with the stored bit clear, as an
// archive declaring uncompressed data writes it.
func (d *dataImage) appendRaw(content []byte) {
	d.words = append(d.words, uint32(len(content)))
	d.buf = append(d.buf, content...)
}

// appendFragmentBlock stores a fragment block verbatim and returns its
// table entry.
func (d *dataImage) appendFragmentBlock(content []byte) types.FragmentEntryT {
	entry := types.FragmentEntryT{
		Start:    uint64(len(d.buf)),
		SizeWord: types.DataBlockStoredFlag | uint32(len(content)),
	}
	d.buf = append(d.buf, content...)
	return entry
}

func (d *dataImage) fileInode(size uint64, fragment *types.FragmentRef) *types.InodeRecord {
	return &types.InodeRecord{
		Kind:        types.KindRegular,
		InodeNumber: 2,
		Size:        size,
		Blocks:      types.BlockList{Start: d.start, Sizes: d.words},
		Fragment:    fragment,
	}
}

func (d *dataImage) reader(t *testing.T, fragments *stubFragments) *DataReaderImpl {
	t.Helper()

	codec, err := compression.ForID(types.CompressionGzip)
	require.NoError(t, err)

	var resolver interfaces.FragmentResolver
	if fragments != nil {
		resolver = fragments
	}
	reader, err := NewDataReader(device.NewMemorySource(d.buf), codec, &dataStubSuperblock{flags: d.flags}, resolver)
	require.NoError(t, err)
	return reader
}

// testContent yields a deterministic non-repeating byte pattern.
func testContent(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i*7 + i/256)
	}
	return out
}

func TestReadRangeFullBlocks(t *testing.T) {
	content := testContent(2*testBlockSize + 1500)

	img := &dataImage{}
	img.appendCompressed(t, content[:testBlockSize])
	img.appendStored(content[testBlockSize : 2*testBlockSize])
	img.appendCompressed(t, content[2*testBlockSize:])
	reader := img.reader(t, nil)
	inode := img.fileInode(uint64(len(content)), nil)

	t.Run("whole file", func(t *testing.T) {
		data, err := reader.ReadRange(inode, 0, uint64(len(content)))
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("inside one block", func(t *testing.T) {
		data, err := reader.ReadRange(inode, 100, 300)
		require.NoError(t, err)
		assert.Equal(t, content[100:400], data)
	})

	t.Run("spanning block boundaries", func(t *testing.T) {
		data, err := reader.ReadRange(inode, testBlockSize-64, testBlockSize+128)
		require.NoError(t, err)
		assert.Equal(t, content[testBlockSize-64:2*testBlockSize+64], data)
	})

	t.Run("range reads compose to the whole", func(t *testing.T) {
		var assembled []byte
		step := uint64(1000)
		for off := uint64(0); off < uint64(len(content)); off += step {
			n := step
			if off+n > uint64(len(content)) {
				n = uint64(len(content)) - off
			}
			part, err := reader.ReadRange(inode, off, n)
			require.NoError(t, err)
			assembled = append(assembled, part...)
		}
		assert.Equal(t, content, assembled)
	})

	t.Run("zero length", func(t *testing.T) {
		data, err := reader.ReadRange(inode, 500, 0)
		require.NoError(t, err)
		assert.Empty(t, data)
	})
}

func TestReadRangeFragmentTail(t *testing.T) {
	content := testContent(testBlockSize + 100)

	img := &dataImage{}
	img.appendCompressed(t, content[:testBlockSize])
	// Tail shares a fragment block with 40 bytes of another file's data
	// in front of it.
	fragBlock := append(testContent(40), content[testBlockSize:]...)
	entry := img.appendFragmentBlock(fragBlock)
	fragments := &stubFragments{entry: entry}

	reader := img.reader(t, fragments)
	inode := img.fileInode(uint64(len(content)), &types.FragmentRef{Index: 0, Offset: 40})

	t.Run("whole file crosses into tail", func(t *testing.T) {
		data, err := reader.ReadRange(inode, 0, uint64(len(content)))
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("tail only", func(t *testing.T) {
		data, err := reader.ReadRange(inode, testBlockSize+10, 50)
		require.NoError(t, err)
		assert.Equal(t, content[testBlockSize+10:testBlockSize+60], data)
	})
}

func TestReadRangeFragmentOnlyFile(t *testing.T) {
	content := []byte("Hello, World!") // 13 bytes, no full blocks

	img := &dataImage{}
	entry := img.appendFragmentBlock(content)
	fragments := &stubFragments{entry: entry}

	reader := img.reader(t, fragments)
	inode := img.fileInode(13, &types.FragmentRef{Index: 0, Offset: 0})

	t.Run("full read", func(t *testing.T) {
		data, err := reader.ReadRange(inode, 0, 13)
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("interior read", func(t *testing.T) {
		data, err := reader.ReadRange(inode, 7, 5)
		require.NoError(t, err)
		assert.Equal(t, []byte("World"), data)
	})

	t.Run("range past end", func(t *testing.T) {
		_, err := reader.ReadRange(inode, 10, 10)
		assert.ErrorIs(t, err, types.ErrOutOfRange)
	})
}

func TestReadRangeSparseBlock(t *testing.T) {
	content := testContent(testBlockSize)

	img := &dataImage{}
	img.appendCompressed(t, content)
	img.appendSparse()
	reader := img.reader(t, nil)
	inode := img.fileInode(2*testBlockSize, nil)

	data, err := reader.ReadRange(inode, 0, 2*testBlockSize)
	require.NoError(t, err)
	assert.Equal(t, content, data[:testBlockSize])
	assert.Equal(t, make([]byte, testBlockSize), data[testBlockSize:])
}

func TestReadRangeUncompressedFlags(t *testing.T) {
	t.Run("data blocks", func(t *testing.T) {
		content := testContent(testBlockSize)

		img := &dataImage{flags: types.FlagUncompressedData}
		img.appendRaw(content)
		reader := img.reader(t, nil)
		inode := img.fileInode(testBlockSize, nil)

		data, err := reader.ReadRange(inode, 0, testBlockSize)
		require.NoError(t, err)
		assert.Equal(t, content, data)

		// The same bytes without the superblock flag are a corrupt
		// zlib stream.
		img.flags = 0
		strict := img.reader(t, nil)
		_, err = strict.ReadRange(inode, 0, testBlockSize)
		assert.ErrorIs(t, err, types.ErrCorruptBlock)
	})

	t.Run("fragment blocks", func(t *testing.T) {
		content := testContent(50)

		img := &dataImage{flags: types.FlagUncompressedFragments}
		entry := types.FragmentEntryT{
			Start:    uint64(len(img.buf)),
			SizeWord: uint32(len(content)), // stored bit clear
		}
		img.buf = append(img.buf, content...)

		reader := img.reader(t, &stubFragments{entry: entry})
		inode := img.fileInode(50, &types.FragmentRef{Index: 0, Offset: 0})

		data, err := reader.ReadRange(inode, 0, 50)
		require.NoError(t, err)
		assert.Equal(t, content, data)

		img.flags = 0
		strict := img.reader(t, &stubFragments{entry: entry})
		_, err = strict.ReadRange(inode, 0, 50)
		assert.ErrorIs(t, err, types.ErrCorruptBlock)
	})
}

func TestReadRangeErrors(t *testing.T) {
	t.Run("not a regular file", func(t *testing.T) {
		img := &dataImage{}
		reader := img.reader(t, nil)

		_, err := reader.ReadRange(&types.InodeRecord{Kind: types.KindDirectory}, 0, 1)
		assert.ErrorIs(t, err, types.ErrNotRegularFile)

		_, err = reader.ReadRange(&types.InodeRecord{Kind: types.KindSymlink}, 0, 1)
		assert.ErrorIs(t, err, types.ErrNotRegularFile)
	})

	t.Run("range beyond file size", func(t *testing.T) {
		img := &dataImage{}
		img.appendStored(testContent(100))
		reader := img.reader(t, nil)
		inode := img.fileInode(100, nil)

		_, err := reader.ReadRange(inode, 0, 101)
		assert.ErrorIs(t, err, types.ErrOutOfRange)

		_, err = reader.ReadRange(inode, 100, 1)
		assert.ErrorIs(t, err, types.ErrOutOfRange)
	})

	t.Run("offset overflow", func(t *testing.T) {
		img := &dataImage{}
		img.appendStored(testContent(100))
		reader := img.reader(t, nil)
		inode := img.fileInode(100, nil)

		_, err := reader.ReadRange(inode, ^uint64(0), 2)
		assert.ErrorIs(t, err, types.ErrOutOfRange)
	})

	t.Run("tail without fragment reference", func(t *testing.T) {
		img := &dataImage{}
		img.appendStored(testContent(testBlockSize))
		reader := img.reader(t, nil)
		// Size claims a tail but no fragment is referenced.
		inode := img.fileInode(testBlockSize+50, nil)

		_, err := reader.ReadRange(inode, 0, testBlockSize+50)
		assert.ErrorIs(t, err, types.ErrCorruptBlock)
	})

	t.Run("block decompresses to wrong size", func(t *testing.T) {
		img := &dataImage{}
		img.appendCompressed(t, testContent(4000))
		reader := img.reader(t, nil)
		// Inode declares a full block, so 4000 decompressed bytes is a
		// size mismatch.
		inode := img.fileInode(testBlockSize, nil)

		_, err := reader.ReadRange(inode, 0, testBlockSize)
		assert.ErrorIs(t, err, types.ErrCorruptBlock)
	})
}
