package main

import "github.com/deploymenttheory/go-squashfs/cmd"

func main() {
	cmd.Execute()
}
