package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat <archive> <path>",
	Short: "Write a file's content to stdout",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archive, err := mountArchive(args[0])
		if err != nil {
			return err
		}
		defer archive.Close()

		data, err := archive.ReadFile(args[1])
		if err != nil {
			return err
		}

		_, err = os.Stdout.Write(data)
		return err
	},
}
