package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-squashfs/pkg/squashfs"
)

// loadConfig resolves the tool configuration from (in order of
// precedence) the --config file, a go-squashfs.yaml in the working
// directory or $HOME/.config/go-squashfs, and SQUASHFS_* environment
// variables, falling back to defaults.
func loadConfig() (squashfs.Config, error) {
	v := viper.New()

	defaults := squashfs.DefaultConfig()
	v.SetDefault("metadata_cache_blocks", defaults.MetadataCacheBlocks)
	v.SetDefault("verbose", defaults.Verbose)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("go-squashfs")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/go-squashfs")
	}

	v.SetEnvPrefix("SQUASHFS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; a malformed one is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return squashfs.Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg squashfs.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return squashfs.Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
