// Command treefsctl is a demonstration client for the Tree Engine: it
// opens a Closure Store and Blob Driver directly (no control-plane server
// in this module) and drives add/move/remove/share/ls/cat against them.
package main

import (
	"fmt"
	"os"

	"github.com/yamafs/treefs/cmd/treefsctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
