// Package treefstest is the Closure Store conformance suite: the same
// battery of behavioral assertions run against every store.Store backend
// (memory, badger, postgres), grounded on the teacher's store-matrix
// testing style (test/e2e/store_matrix_test.go), which runs one assertion
// set across every metadata store kind rather than duplicating it per
// backend.
package treefstest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamafs/treefs/pkg/treefs"
	"github.com/yamafs/treefs/pkg/treefs/store"
)

// Factory builds a fresh, empty Closure Store with a pre-seeded root
// directory owned by owner, for one subtest. Backends that need external
// setup (a temp dir, a live database) do it here and register cleanup via
// t.Cleanup.
type Factory func(t *testing.T, rootID treefs.FileID, owner treefs.UserID) store.Store

// Run exercises name against every documented property of store.Store:
// closure invariants across add/move/remove, cycle refusal, conflict
// detection, and share persistence. Call it once per backend from that
// backend's own _test.go file.
func Run(t *testing.T, name string, newStore Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("AddCreatesSelfAndAncestorEdges", func(t *testing.T) { testAddCreatesEdges(t, newStore) })
		t.Run("AddDuplicateNameConflicts", func(t *testing.T) { testAddDuplicateName(t, newStore) })
		t.Run("AddUnknownParentNotFound", func(t *testing.T) { testAddUnknownParent(t, newStore) })
		t.Run("MoveUpdatesDescendantPaths", func(t *testing.T) { testMoveUpdatesPaths(t, newStore) })
		t.Run("MoveIntoOwnSubtreeRefused", func(t *testing.T) { testMoveCycleRefused(t, newStore) })
		t.Run("MoveToExistingNameConflicts", func(t *testing.T) { testMoveConflict(t, newStore) })
		t.Run("RemoveCascadesIntoSubtree", func(t *testing.T) { testRemoveCascades(t, newStore) })
		t.Run("RemoveDropsClosureEdges", func(t *testing.T) { testRemoveDropsEdges(t, newStore) })
		t.Run("ShareRoundTrips", func(t *testing.T) { testShareRoundTrip(t, newStore) })
		t.Run("ShareAccumulatesRepeatGrants", func(t *testing.T) { testShareAccumulates(t, newStore) })
	})
}

func newRootOwner() (treefs.FileID, treefs.UserID) {
	return treefs.FileID(uuid.New()), treefs.UserID(uuid.New())
}

func testAddCreatesEdges(t *testing.T, newStore Factory) {
	rootID, owner := newRootOwner()
	s := newStore(t, rootID, owner)
	ctx := context.Background()

	id, tx, err := s.BeginAdd(ctx, rootID, "docs", treefs.Directory, owner)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	edge, err := s.Parent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, rootID, edge.AncestorID)
	assert.Equal(t, "docs", edge.DescendantPath)
	assert.Equal(t, 1, edge.DescendantDepth)

	ancestors, err := s.Ancestors(ctx, id)
	require.NoError(t, err)
	assert.Len(t, ancestors, 2) // self + root

	descendants, err := s.Descendants(ctx, rootID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(descendants), 2) // self + docs
}

func testAddDuplicateName(t *testing.T, newStore Factory) {
	rootID, owner := newRootOwner()
	s := newStore(t, rootID, owner)
	ctx := context.Background()

	_, tx, err := s.BeginAdd(ctx, rootID, "notes", treefs.Directory, owner)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	_, _, err = s.BeginAdd(ctx, rootID, "notes", treefs.Regular, owner)
	require.Error(t, err)
	assert.True(t, treefs.IsAlreadyExists(err))
}

func testAddUnknownParent(t *testing.T, newStore Factory) {
	rootID, owner := newRootOwner()
	s := newStore(t, rootID, owner)
	ctx := context.Background()

	_, _, err := s.BeginAdd(ctx, treefs.FileID(uuid.New()), "orphan", treefs.Regular, owner)
	require.Error(t, err)
	assert.True(t, treefs.IsNotFound(err))
}

func mkdir(t *testing.T, s store.Store, parent treefs.FileID, name string, owner treefs.UserID) treefs.FileID {
	t.Helper()
	ctx := context.Background()
	id, tx, err := s.BeginAdd(ctx, parent, name, treefs.Directory, owner)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	return id
}

func testMoveUpdatesPaths(t *testing.T, newStore Factory) {
	rootID, owner := newRootOwner()
	s := newStore(t, rootID, owner)
	ctx := context.Background()

	a := mkdir(t, s, rootID, "a", owner)
	b := mkdir(t, s, a, "b", owner)
	_ = mkdir(t, s, b, "c", owner)
	target := mkdir(t, s, rootID, "target", owner)

	tx, err := s.BeginMove(ctx, a, target, "moved-a")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	edge, err := s.Parent(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, target, edge.AncestorID)
	assert.Equal(t, "moved-a", edge.DescendantPath)

	descendants, err := s.Descendants(ctx, rootID)
	require.NoError(t, err)
	var sawC bool
	for _, d := range descendants {
		if d.DescendantPath == "target/moved-a/b/c" {
			sawC = true
		}
	}
	assert.True(t, sawC, "expected target/moved-a/b/c in root's descendant paths")
}

func testMoveCycleRefused(t *testing.T, newStore Factory) {
	rootID, owner := newRootOwner()
	s := newStore(t, rootID, owner)
	ctx := context.Background()

	a := mkdir(t, s, rootID, "a", owner)
	b := mkdir(t, s, a, "b", owner)

	_, err := s.BeginMove(ctx, a, b, "a-under-b")
	require.Error(t, err)
	var domainErr *treefs.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, treefs.ErrInvalidMove, domainErr.Code)
}

func testMoveConflict(t *testing.T, newStore Factory) {
	rootID, owner := newRootOwner()
	s := newStore(t, rootID, owner)
	ctx := context.Background()

	a := mkdir(t, s, rootID, "a", owner)
	_ = mkdir(t, s, rootID, "b", owner)

	_, err := s.BeginMove(ctx, a, rootID, "b")
	require.Error(t, err)
	assert.True(t, treefs.IsAlreadyExists(err))
}

func testRemoveCascades(t *testing.T, newStore Factory) {
	rootID, owner := newRootOwner()
	s := newStore(t, rootID, owner)
	ctx := context.Background()

	a := mkdir(t, s, rootID, "a", owner)
	b := mkdir(t, s, a, "b", owner)
	c := mkdir(t, s, b, "c", owner)

	removed, tx, err := s.BeginRemove(ctx, a)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	var removedIDs []treefs.FileID
	for _, f := range removed {
		removedIDs = append(removedIDs, f.ID)
	}
	assert.ElementsMatch(t, []treefs.FileID{a, b, c}, removedIDs)

	for _, id := range []treefs.FileID{a, b, c} {
		_, err := s.GetFile(ctx, id)
		require.Error(t, err)
		assert.True(t, treefs.IsNotFound(err))
	}

	_, err = s.Child(ctx, rootID, "a")
	require.Error(t, err)
	assert.True(t, treefs.IsNotFound(err))
}

func testRemoveDropsEdges(t *testing.T, newStore Factory) {
	rootID, owner := newRootOwner()
	s := newStore(t, rootID, owner)
	ctx := context.Background()

	a := mkdir(t, s, rootID, "a", owner)

	_, tx, err := s.BeginRemove(ctx, a)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	_, err = s.GetFile(ctx, a)
	require.Error(t, err)
	assert.True(t, treefs.IsNotFound(err))

	_, err = s.Child(ctx, rootID, "a")
	require.Error(t, err)
	assert.True(t, treefs.IsNotFound(err))
}

func testShareRoundTrip(t *testing.T, newStore Factory) {
	rootID, owner := newRootOwner()
	s := newStore(t, rootID, owner)
	ctx := context.Background()

	grantee := treefs.UserID(uuid.New())
	tx, err := s.BeginShare(ctx, treefs.FileShare{FileID: rootID, UserID: grantee, Kind: treefs.ShareRead, CreatedBy: owner})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	shares, err := s.SharesOn(ctx, rootID)
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, grantee, shares[0].UserID)
	assert.Equal(t, treefs.ShareRead, shares[0].Kind)
}

func testShareAccumulates(t *testing.T, newStore Factory) {
	rootID, owner := newRootOwner()
	s := newStore(t, rootID, owner)
	ctx := context.Background()

	grantee := treefs.UserID(uuid.New())
	tx, err := s.BeginShare(ctx, treefs.FileShare{FileID: rootID, UserID: grantee, Kind: treefs.ShareRead, CreatedBy: owner})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	tx, err = s.BeginShare(ctx, treefs.FileShare{FileID: rootID, UserID: grantee, Kind: treefs.ShareWrite, CreatedBy: owner})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	shares, err := s.SharesOn(ctx, rootID)
	require.NoError(t, err)
	require.Len(t, shares, 2, "a second share on the same grantee should add a row, not overwrite")

	var sawRead, sawWrite bool
	for _, sh := range shares {
		assert.Equal(t, grantee, sh.UserID)
		switch sh.Kind {
		case treefs.ShareRead:
			sawRead = true
		case treefs.ShareWrite:
			sawWrite = true
		}
	}
	assert.True(t, sawRead)
	assert.True(t, sawWrite)
}
