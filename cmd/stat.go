package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-squashfs/pkg/squashfs"
)

var statCmd = &cobra.Command{
	Use:   "stat <archive> <path>",
	Short: "Show metadata for a single path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := mountArchive(args[0])
		if err != nil {
			return err
		}
		defer archive.Close()

		info, err := archive.Stat(args[1])
		if err != nil {
			return err
		}

		out := stdout()
		fmt.Fprintf(out, "Path:     %s\n", info.Path)
		fmt.Fprintf(out, "Kind:     %s\n", info.Kind)
		fmt.Fprintf(out, "Size:     %d\n", info.Size)
		fmt.Fprintf(out, "Mode:     %04o\n", info.Mode)
		fmt.Fprintf(out, "Inode:    %d\n", info.InodeNumber)
		fmt.Fprintf(out, "Modified: %s\n", info.ModTime.Format("2006-01-02 15:04:05 MST"))
		if info.Kind == squashfs.KindSymlink {
			fmt.Fprintf(out, "Target:   %s\n", info.SymlinkTarget)
		}
		return nil
	},
}
