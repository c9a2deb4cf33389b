package commands

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"
)

var mvCmd = &cobra.Command{
	Use:   "mv <path> <new-path>",
	Short: "Move or rename a file or directory",
	Long: `Relocate the file or directory at path to new-path, which may name a
different parent, a different name, or both.

Examples:
  # Rename in place
  treefsctl mv /docs/draft.txt /docs/final.txt

  # Move into another directory
  treefsctl mv /docs/final.txt /archive/final.txt`,
	Args: cobra.ExactArgs(2),
	RunE: runMv,
}

func runMv(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEngine(ctx)
	if err != nil {
		return err
	}

	src, dst := args[0], args[1]
	newParentPath := path.Dir(dst)
	newName := path.Base(dst)

	id, err := e.Resolve(ctx, caller, rootID, src)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", src, err)
	}
	newParentID, err := e.Resolve(ctx, caller, rootID, newParentPath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", newParentPath, err)
	}

	if err := e.Move(ctx, caller, id, newParentID, newName); err != nil {
		return fmt.Errorf("moving %s to %s: %w", src, dst, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "moved %s -> %s\n", src, dst)
	return nil
}
