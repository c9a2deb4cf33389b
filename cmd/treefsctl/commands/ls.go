package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yamafs/treefs/internal/cli/output"
	"github.com/yamafs/treefs/pkg/treefs"
)

var (
	lsDepth  int
	lsFormat string
)

var lsCmd = &cobra.Command{
	Use:   "ls <path>",
	Short: "List a directory's children",
	Long: `List the children of the directory at path, up to --depth levels deep.

Examples:
  treefsctl ls /
  treefsctl ls /docs --depth 2
  treefsctl ls /docs -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

func init() {
	lsCmd.Flags().IntVar(&lsDepth, "depth", 1, "levels of children to descend into")
	lsCmd.Flags().StringVarP(&lsFormat, "output", "o", "table", "output format (table|json|yaml)")
}

// entryList renders a Tree's direct children as a table.
type entryList []treefs.Tree

func (el entryList) Headers() []string { return []string{"NAME", "TYPE", "PATH"} }

func (el entryList) Rows() [][]string {
	rows := make([][]string, 0, len(el))
	for _, child := range el {
		rows = append(rows, []string{child.File.OwnName, child.File.Type.String(), child.Path})
	}
	return rows
}

func runLs(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(lsFormat)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	e, err := buildEngine(ctx)
	if err != nil {
		return err
	}

	target := args[0]
	tree, err := e.Read(ctx, caller, rootID, target, lsDepth)
	if err != nil {
		return fmt.Errorf("reading %s: %w", target, err)
	}

	if tree.File.Type != treefs.Directory {
		fmt.Fprintln(cmd.OutOrStdout(), target)
		return nil
	}

	printer := output.NewPrinter(os.Stdout, format)
	return printer.Print(entryList(tree.Children))
}
