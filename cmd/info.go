package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <archive>",
	Short: "Show archive geometry and mount statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := mountArchive(args[0])
		if err != nil {
			return err
		}
		defer archive.Close()

		info := archive.Info()
		out := stdout()

		fmt.Fprintf(out, "Mount ID:       %s\n", info.ID)
		fmt.Fprintf(out, "Compression:    %s\n", info.Compression)
		fmt.Fprintf(out, "Block size:     %d\n", info.BlockSize)
		fmt.Fprintf(out, "Inodes:         %d\n", info.InodeCount)
		fmt.Fprintf(out, "Fragments:      %d\n", info.FragmentCount)
		fmt.Fprintf(out, "Bytes used:     %d\n", info.BytesUsed)
		fmt.Fprintf(out, "Modified:       %s\n", info.ModTime.Format("2006-01-02 15:04:05 MST"))

		if verbose {
			fmt.Fprintf(out, "Cache:          %d/%d blocks resident, %d hits, %d misses, %d evictions\n",
				info.Cache.Resident, info.Cache.Capacity, info.Cache.Hits, info.Cache.Misses, info.Cache.Evictions)
		}
		return nil
	},
}
