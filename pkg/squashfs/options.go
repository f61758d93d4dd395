package squashfs

import "io"

// Option adjusts mount behavior.
type Option func(*mountOptions)

type mountOptions struct {
	cacheCapacity int
	diag          io.Writer
}

func defaultOptions() mountOptions {
	return mountOptions{
		cacheCapacity: 0, // resolved by the cache to its default
		diag:          io.Discard,
	}
}

// WithCacheCapacity bounds the metadata block cache to the given number
// of decompressed blocks. Zero or negative selects the default.
func WithCacheCapacity(blocks int) Option {
	return func(o *mountOptions) {
		o.cacheCapacity = blocks
	}
}

// WithDiagnostics directs non-fatal warnings, such as entries with
// unsupported inode variants encountered during walks, to w.
func WithDiagnostics(w io.Writer) Option {
	return func(o *mountOptions) {
		if w != nil {
			o.diag = w
		}
	}
}

// WithConfig applies a loaded Config as mount options.
func WithConfig(cfg Config) Option {
	return func(o *mountOptions) {
		if cfg.MetadataCacheBlocks > 0 {
			o.cacheCapacity = cfg.MetadataCacheBlocks
		}
	}
}
