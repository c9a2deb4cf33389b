package engine_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yamafs/treefs/pkg/blob/fsblob"
	"github.com/yamafs/treefs/pkg/treefs"
	"github.com/yamafs/treefs/pkg/treefs/engine"
	"github.com/yamafs/treefs/pkg/treefs/store/memory"
)

type flatUsers struct{}

func (flatUsers) IsAncestor(_ context.Context, ancestor, u treefs.UserID) (bool, error) {
	return ancestor == u, nil
}

func newEngine(t *testing.T) (*engine.Engine, treefs.FileID, treefs.UserID) {
	t.Helper()
	root := treefs.NewFileID()
	owner := treefs.UserID(treefs.NewFileID())
	s := memory.New(root, owner)
	blobDriver, err := fsblob.New(fsblob.DefaultConfig(t.TempDir()))
	require.NoError(t, err)

	cfg := treefs.Config{RootFileID: root, ChunkSize: 4096, MaxFileSize: 1 << 20}
	e := engine.New(s, flatUsers{}, blobDriver, cfg)
	return e, root, owner
}

func TestAddResolveRead(t *testing.T) {
	ctx := context.Background()
	e, root, owner := newEngine(t)

	dirID, err := e.Add(ctx, owner, root, "docs", treefs.Directory)
	require.NoError(t, err)

	fileID, err := e.Add(ctx, owner, dirID, "report.txt", treefs.Regular)
	require.NoError(t, err)

	resolved, err := e.Resolve(ctx, owner, root, "/docs/report.txt")
	require.NoError(t, err)
	require.Equal(t, fileID, resolved)

	tree, err := e.Read(ctx, owner, root, "/docs", 1)
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	require.Equal(t, "report.txt", tree.Children[0].File.OwnName)
}

func TestResolveRelativePathAnchorsAtWorkingFile(t *testing.T) {
	ctx := context.Background()
	e, root, owner := newEngine(t)

	docs, err := e.Add(ctx, owner, root, "docs", treefs.Directory)
	require.NoError(t, err)
	reportID, err := e.Add(ctx, owner, docs, "report.txt", treefs.Regular)
	require.NoError(t, err)

	resolved, err := e.Resolve(ctx, owner, docs, "report.txt")
	require.NoError(t, err)
	require.Equal(t, reportID, resolved)

	resolved, err = e.Resolve(ctx, owner, docs, ".")
	require.NoError(t, err)
	require.Equal(t, docs, resolved)

	resolved, err = e.Resolve(ctx, owner, docs, "/docs/report.txt")
	require.NoError(t, err)
	require.Equal(t, reportID, resolved)
}

func TestAddDuplicateNameFails(t *testing.T) {
	ctx := context.Background()
	e, root, owner := newEngine(t)

	_, err := e.Add(ctx, owner, root, "docs", treefs.Directory)
	require.NoError(t, err)
	_, err = e.Add(ctx, owner, root, "docs", treefs.Directory)
	require.Error(t, err)
	require.True(t, treefs.IsAlreadyExists(err))
}

func TestMoveUpdatesDescendantPaths(t *testing.T) {
	ctx := context.Background()
	e, root, owner := newEngine(t)

	docs, err := e.Add(ctx, owner, root, "docs", treefs.Directory)
	require.NoError(t, err)
	report, err := e.Add(ctx, owner, docs, "report.txt", treefs.Regular)
	require.NoError(t, err)
	archive, err := e.Add(ctx, owner, root, "archive", treefs.Directory)
	require.NoError(t, err)

	require.NoError(t, e.Move(ctx, owner, docs, archive, "docs"))

	resolved, err := e.Resolve(ctx, owner, root, "/archive/docs/report.txt")
	require.NoError(t, err)
	require.Equal(t, report, resolved)

	_, err = e.Resolve(ctx, owner, root, "/docs")
	require.Error(t, err)
}

func TestMoveIntoOwnSubtreeRefused(t *testing.T) {
	ctx := context.Background()
	e, root, owner := newEngine(t)

	docs, err := e.Add(ctx, owner, root, "docs", treefs.Directory)
	require.NoError(t, err)
	sub, err := e.Add(ctx, owner, docs, "sub", treefs.Directory)
	require.NoError(t, err)

	err = e.Move(ctx, owner, docs, sub, "docs")
	require.Error(t, err)
}

func TestRemoveCascadesIntoSubtree(t *testing.T) {
	ctx := context.Background()
	e, root, owner := newEngine(t)

	docs, err := e.Add(ctx, owner, root, "docs", treefs.Directory)
	require.NoError(t, err)
	report, err := e.Add(ctx, owner, docs, "report.txt", treefs.Regular)
	require.NoError(t, err)
	require.NoError(t, e.Write(ctx, owner, report, bytes.NewReader([]byte("draft"))))

	require.NoError(t, e.Remove(ctx, owner, docs))

	_, err = e.Resolve(ctx, owner, root, "/docs")
	require.Error(t, err)
	require.True(t, treefs.IsNotFound(err))

	_, err = e.ReadContent(ctx, owner, report)
	require.Error(t, err)
}

func TestWriteReadContentRoundTrip(t *testing.T) {
	ctx := context.Background()
	e, root, owner := newEngine(t)

	fileID, err := e.Add(ctx, owner, root, "report.txt", treefs.Regular)
	require.NoError(t, err)

	payload := []byte("hello, tree engine")
	require.NoError(t, e.Write(ctx, owner, fileID, bytes.NewReader(payload)))

	r, err := e.ReadContent(ctx, owner, fileID)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestShareGrantsStrangerAccess(t *testing.T) {
	ctx := context.Background()
	e, root, owner := newEngine(t)
	stranger := treefs.UserID(treefs.NewFileID())

	docs, err := e.Add(ctx, owner, root, "docs", treefs.Directory)
	require.NoError(t, err)

	_, err = e.Resolve(ctx, stranger, root, "/docs")
	require.Error(t, err)

	require.NoError(t, e.Share(ctx, owner, docs, stranger, treefs.ShareRead))

	_, err = e.Resolve(ctx, stranger, root, "/docs")
	require.NoError(t, err)

	_, err = e.Add(ctx, stranger, docs, "notes.txt", treefs.Regular)
	require.Error(t, err)
	require.True(t, treefs.IsPermissionDenied(err))
}
