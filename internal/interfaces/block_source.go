// File: internal/interfaces/block_source.go
package interfaces

// BlockSource abstracts the raw byte span the archive lives in, such as
// a boot-loader-provided memory region or a file read into memory.
// All reads are bounds-checked against the span length.
type BlockSource interface {
	// ReadAt reads exactly length bytes starting at offset.
	ReadAt(offset uint64, length uint64) ([]byte, error)

	// Size returns the total byte length of the span.
	Size() uint64
}
