package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/deploymenttheory/go-squashfs/pkg/squashfs"
)

var extractJobs int

var extractCmd = &cobra.Command{
	Use:   "extract <archive> <path> <dest>",
	Short: "Extract files or directory trees",
	Long: `Extract copies the file or directory tree at path out of the archive
into dest. Directory structure and symlinks are recreated; file reads
run in parallel, serialized inside the archive on its metadata cache.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := mountArchive(args[0])
		if err != nil {
			return err
		}
		defer archive.Close()

		return extract(archive, args[1], args[2])
	},
}

func init() {
	extractCmd.Flags().IntVarP(&extractJobs, "jobs", "j", 4, "parallel file extractions")
}

func extract(archive *squashfs.Archive, srcPath, dest string) error {
	info, err := archive.Stat(srcPath)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return extractEntry(archive, info, filepath.Join(dest, info.Name()))
	}

	// Directories first so parallel file writes always have a parent.
	var files []*squashfs.FileInfo
	err = archive.Walk(srcPath, func(entry *squashfs.FileInfo) error {
		target := destPath(dest, srcPath, entry.Path)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		files = append(files, entry)
		return nil
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}

	g := new(errgroup.Group)
	g.SetLimit(extractJobs)
	for _, entry := range files {
		entry := entry
		g.Go(func() error {
			return extractEntry(archive, entry, destPath(dest, srcPath, entry.Path))
		})
	}
	return g.Wait()
}

// destPath maps an archive path under srcPath to its location in dest.
func destPath(dest, srcPath, entryPath string) string {
	rel := strings.TrimPrefix(entryPath, strings.TrimRight(srcPath, "/"))
	return filepath.Join(dest, filepath.FromSlash(rel))
}

func extractEntry(archive *squashfs.Archive, info *squashfs.FileInfo, target string) error {
	switch info.Kind {
	case squashfs.KindRegular:
		data, err := archive.ReadFile(info.Path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, os.FileMode(info.Mode)&0o777)
	case squashfs.KindSymlink:
		if err := os.RemoveAll(target); err != nil {
			return err
		}
		return os.Symlink(info.SymlinkTarget, target)
	default:
		fmt.Fprintf(os.Stderr, "skipping %s: %s inodes are not extracted\n", info.Path, info.Kind)
		return nil
	}
}
