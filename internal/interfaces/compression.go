// File: internal/interfaces/compression.go
package interfaces

// Codec decompresses a single block of archive data.
type Codec interface {
	// Decompress expands raw into at most expected bytes. When stored
	// is true the bytes are copied verbatim. A stream error or a
	// decompressed size exceeding expected fails with ErrCorruptBlock.
	Decompress(raw []byte, stored bool, expected int) ([]byte, error)

	// Name returns the algorithm name for diagnostics.
	Name() string
}
