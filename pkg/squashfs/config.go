package squashfs

// Config holds tunables loadable from a configuration file or
// environment, decoded via mapstructure tags.
type Config struct {
	// MetadataCacheBlocks bounds the metadata block cache. Each block
	// decompresses to at most 8 KiB.
	MetadataCacheBlocks int `mapstructure:"metadata_cache_blocks"`

	// Verbose enables diagnostic output for non-fatal warnings.
	Verbose bool `mapstructure:"verbose"`
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		MetadataCacheBlocks: 64,
		Verbose:             false,
	}
}
