package commands

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yamafs/treefs/pkg/treefs"
)

var addType string

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Create a file or directory",
	Long: `Create a file or directory at path, under its already-existing parent.

Examples:
  # Create a directory
  treefsctl add /docs --type dir

  # Create an empty regular file
  treefsctl add /docs/notes.txt --type file

  # Create a regular file and populate it from stdin
  echo hello | treefsctl add /docs/notes.txt --type file`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addType, "type", "file", "file type to create (file|dir)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEngine(ctx)
	if err != nil {
		return err
	}

	target := args[0]
	parentPath := path.Dir(target)
	name := path.Base(target)

	var typ treefs.FileType
	switch strings.ToLower(addType) {
	case "file":
		typ = treefs.Regular
	case "dir", "directory":
		typ = treefs.Directory
	default:
		return fmt.Errorf("invalid --type %q (valid: file, dir)", addType)
	}

	parentID, err := e.Resolve(ctx, caller, rootID, parentPath)
	if err != nil {
		return fmt.Errorf("resolving parent %s: %w", parentPath, err)
	}

	id, err := e.Add(ctx, caller, parentID, name, typ)
	if err != nil {
		return fmt.Errorf("adding %s: %w", target, err)
	}

	if typ == treefs.Regular {
		if stat, statErr := os.Stdin.Stat(); statErr == nil && stat.Mode()&os.ModeCharDevice == 0 {
			if err := e.Write(ctx, caller, id, os.Stdin); err != nil {
				return fmt.Errorf("writing content for %s: %w", target, err)
			}
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", typ, target, id)
	return nil
}
