package commands

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yamafs/treefs/pkg/treefs"
)

var shareCmd = &cobra.Command{
	Use:   "share <path> <user-id> <read|write|share>",
	Short: "Grant share access on a file's subtree to a user",
	Long: `Grant kind access on path's subtree to user-id. The grant propagates to
every descendant of path and to every user reachable from user-id via the
external user hierarchy.

Examples:
  treefsctl share /archive 3fa85f64-5717-4562-b3fc-2c963f66afa6 read
  treefsctl share /archive 3fa85f64-5717-4562-b3fc-2c963f66afa6 read-write`,
	Args: cobra.ExactArgs(3),
	RunE: runShare,
}

func runShare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := buildEngine(ctx)
	if err != nil {
		return err
	}

	target, userArg, kindArg := args[0], args[1], args[2]

	granteeUUID, err := uuid.Parse(userArg)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userArg, err)
	}
	grantee := treefs.UserID(granteeUUID)

	kind, err := parseShareKind(kindArg)
	if err != nil {
		return err
	}

	id, err := e.Resolve(ctx, caller, rootID, target)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", target, err)
	}

	if err := e.Share(ctx, caller, id, grantee, kind); err != nil {
		return fmt.Errorf("sharing %s: %w", target, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "granted %s on %s to %s\n", kind, target, grantee)
	return nil
}

func parseShareKind(s string) (treefs.ShareKind, error) {
	switch strings.ToLower(strings.ReplaceAll(s, "_", "-")) {
	case "read":
		return treefs.ShareRead, nil
	case "write", "read-write":
		return treefs.ShareWrite, nil
	case "share", "admin":
		return treefs.ShareShare, nil
	default:
		return 0, fmt.Errorf("invalid share kind %q (valid: read, write, share)", s)
	}
}
