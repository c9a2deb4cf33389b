package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yamafs/treefs/internal/cli/prompt"
)

var rmForce bool

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Remove a file or directory",
	Long: `Remove the file or directory at path. A directory is removed together
with everything beneath it.

Examples:
  # Remove with confirmation
  treefsctl rm /docs/draft.txt

  # Remove without prompting
  treefsctl rm /docs/draft.txt --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

func init() {
	rmCmd.Flags().BoolVarP(&rmForce, "force", "f", false, "remove without confirmation")
}

func runRm(cmd *cobra.Command, args []string) error {
	target := args[0]

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("remove %s?", target), rmForce)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), "aborted")
		return nil
	}

	ctx := cmd.Context()
	e, err := buildEngine(ctx)
	if err != nil {
		return err
	}

	id, err := e.Resolve(ctx, caller, rootID, target)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", target, err)
	}
	if err := e.Remove(ctx, caller, id); err != nil {
		return fmt.Errorf("removing %s: %w", target, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", target)
	return nil
}
