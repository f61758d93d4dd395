package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-squashfs/pkg/squashfs"
)

var (
	// Global output flags only
	verbose bool
	quiet   bool
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "go-squashfs",
	Short: "Read-only squashfs archive explorer and extractor",
	Long: `go-squashfs is a read-only command-line tool for inspecting and
extracting squashfs archives, such as initramfs boot images, without
mounting them.

Commands:
  info        Show archive geometry and mount statistics
  list        List directory entries or the whole tree
  stat        Show metadata for a single path
  cat         Write a file's content to stdout
  extract     Extract files or directory trees`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., $HOME/.config/go-squashfs)")

	rootCmd.AddCommand(
		infoCmd,
		listCmd,
		statCmd,
		catCmd,
		extractCmd,
	)
}

// mountArchive loads configuration and mounts the archive at path with
// the flags and config applied.
func mountArchive(path string) (*squashfs.Archive, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	opts := []squashfs.Option{squashfs.WithConfig(cfg)}
	if verbose || cfg.Verbose {
		opts = append(opts, squashfs.WithDiagnostics(os.Stderr))
	}

	return squashfs.MountFile(path, opts...)
}

// stdout returns the output writer honoring --quiet.
func stdout() io.Writer {
	if quiet {
		return io.Discard
	}
	return os.Stdout
}
