package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-squashfs/pkg/squashfs"
)

var listRecursive bool

var listCmd = &cobra.Command{
	Use:   "list <archive> [path]",
	Short: "List directory entries or the whole tree",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/"
		if len(args) == 2 {
			path = args[1]
		}

		archive, err := mountArchive(args[0])
		if err != nil {
			return err
		}
		defer archive.Close()

		out := stdout()

		if listRecursive {
			return archive.Walk(path, func(info *squashfs.FileInfo) error {
				fmt.Fprintf(out, "%-9s %10d  %s\n", info.Kind, info.Size, info.Path)
				return nil
			})
		}

		entries, err := archive.List(path)
		if err != nil {
			return err
		}
		for _, info := range entries {
			name := info.Name()
			if info.Kind == squashfs.KindSymlink {
				name += " -> " + info.SymlinkTarget
			}
			fmt.Fprintf(out, "%-9s %10d  %s\n", info.Kind, info.Size, name)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listRecursive, "recursive", "r", false, "walk the tree below path")
}
