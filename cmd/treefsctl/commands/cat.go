package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a regular file's content",
	Args:  cobra.ExactArgs(1),
	RunE:  runCat,
}

func runCat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEngine(ctx)
	if err != nil {
		return err
	}

	target := args[0]
	id, err := e.Resolve(ctx, caller, rootID, target)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", target, err)
	}

	rc, err := e.ReadContent(ctx, caller, id)
	if err != nil {
		return fmt.Errorf("reading %s: %w", target, err)
	}
	defer func() { _ = rc.Close() }()

	_, err = io.Copy(cmd.OutOrStdout(), rc)
	return err
}
