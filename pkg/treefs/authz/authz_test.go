package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yamafs/treefs/pkg/treefs"
	"github.com/yamafs/treefs/pkg/treefs/authz"
	"github.com/yamafs/treefs/pkg/treefs/store/memory"
)

type flatUsers struct{}

func (flatUsers) IsAncestor(_ context.Context, ancestor, u treefs.UserID) (bool, error) {
	return ancestor == u, nil
}

func TestOwnerAlwaysAuthorized(t *testing.T) {
	ctx := context.Background()
	root := treefs.NewFileID()
	owner := treefs.UserID(treefs.NewFileID())
	s := memory.New(root, owner)

	e := authz.New(s, flatUsers{})
	require.NoError(t, e.Check(ctx, owner, root, treefs.ShareShare))
}

func TestStrangerDenied(t *testing.T) {
	ctx := context.Background()
	root := treefs.NewFileID()
	owner := treefs.UserID(treefs.NewFileID())
	stranger := treefs.UserID(treefs.NewFileID())
	s := memory.New(root, owner)

	e := authz.New(s, flatUsers{})
	err := e.Check(ctx, stranger, root, treefs.ShareRead)
	require.Error(t, err)
	require.True(t, treefs.IsPermissionDenied(err))
}

func TestShareGrantsAccess(t *testing.T) {
	ctx := context.Background()
	root := treefs.NewFileID()
	owner := treefs.UserID(treefs.NewFileID())
	grantee := treefs.UserID(treefs.NewFileID())
	s := memory.New(root, owner)

	tx, err := s.BeginShare(ctx, treefs.FileShare{FileID: root, UserID: grantee, Kind: treefs.ShareRead, CreatedBy: owner})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	e := authz.New(s, flatUsers{})
	require.NoError(t, e.Check(ctx, grantee, root, treefs.ShareRead))

	err = e.Check(ctx, grantee, root, treefs.ShareWrite)
	require.Error(t, err)
}
