package fsblob_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yamafs/treefs/pkg/blob/fsblob"
	"github.com/yamafs/treefs/pkg/treefs"
)

func TestWriteThenRead(t *testing.T) {
	ctx := context.Background()
	d, err := fsblob.New(fsblob.DefaultConfig(t.TempDir()))
	require.NoError(t, err)

	id := treefs.NewFileID()
	payload := bytes.Repeat([]byte("a"), 10_000)

	require.NoError(t, d.WriteContent(ctx, id, bytes.NewReader(payload), 4096, 1<<20))

	r, err := d.ReadContent(ctx, id)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestWriteTooLargeLeavesNoPartialContent(t *testing.T) {
	ctx := context.Background()
	d, err := fsblob.New(fsblob.DefaultConfig(t.TempDir()))
	require.NoError(t, err)

	id := treefs.NewFileID()
	payload := bytes.Repeat([]byte("b"), 100)

	err = d.WriteContent(ctx, id, bytes.NewReader(payload), 16, 50)
	require.Error(t, err)

	_, err = d.ReadContent(ctx, id)
	require.Error(t, err)
	var blobErr *treefs.Error
	require.ErrorAs(t, err, &blobErr)
	require.Equal(t, treefs.ErrBlobNotFound, blobErr.Code)
}

func TestRemoveContentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d, err := fsblob.New(fsblob.DefaultConfig(t.TempDir()))
	require.NoError(t, err)

	id := treefs.NewFileID()
	require.NoError(t, d.RemoveContent(ctx, id))
	require.NoError(t, d.WriteContent(ctx, id, bytes.NewReader([]byte("x")), 1024, 1024))
	require.NoError(t, d.RemoveContent(ctx, id))
	require.NoError(t, d.RemoveContent(ctx, id))
}
