// Package blobtest is a conformance suite run identically against every
// blob.Driver backend, grounded on pkg/treefs/treefstest's
// Factory/Run shape (itself grounded on the teacher's
// test/e2e/store_matrix_test.go table-of-backends style).
package blobtest

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yamafs/treefs/pkg/blob"
	"github.com/yamafs/treefs/pkg/treefs"
)

// Factory constructs a fresh, empty blob.Driver for one subtest.
type Factory func(t *testing.T) blob.Driver

// Run exercises every blob.Driver behavior spec.md §4.5 / SPEC_FULL.md
// §6.5 requires against the driver newDriver builds, registered as
// subtests of t under name.
func Run(t *testing.T, name string, newDriver Factory) {
	t.Run(name+"/write_then_read_round_trips", func(t *testing.T) { testWriteThenRead(t, newDriver) })
	t.Run(name+"/read_missing_returns_blob_not_found", func(t *testing.T) { testReadMissing(t, newDriver) })
	t.Run(name+"/write_exceeding_max_file_size_fails", func(t *testing.T) { testWriteTooLarge(t, newDriver) })
	t.Run(name+"/rewrite_replaces_content_atomically", func(t *testing.T) { testRewrite(t, newDriver) })
	t.Run(name+"/remove_is_idempotent", func(t *testing.T) { testRemoveIdempotent(t, newDriver) })
}

func testWriteThenRead(t *testing.T, newDriver Factory) {
	ctx := context.Background()
	d := newDriver(t)
	id := treefs.NewFileID()
	payload := bytes.Repeat([]byte("x"), 50_000)

	require.NoError(t, d.WriteContent(ctx, id, bytes.NewReader(payload), 8192, 1<<20))

	rc, err := d.ReadContent(ctx, id)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func testReadMissing(t *testing.T, newDriver Factory) {
	ctx := context.Background()
	d := newDriver(t)

	_, err := d.ReadContent(ctx, treefs.NewFileID())
	require.Error(t, err)
	require.True(t, treefs.IsBlobNotFound(err))
}

func testWriteTooLarge(t *testing.T, newDriver Factory) {
	ctx := context.Background()
	d := newDriver(t)
	id := treefs.NewFileID()
	payload := bytes.Repeat([]byte("y"), 10_000)

	err := d.WriteContent(ctx, id, bytes.NewReader(payload), 1024, 4096)
	require.Error(t, err)
	require.True(t, treefs.IsBlobTooLarge(err))
}

func testRewrite(t *testing.T, newDriver Factory) {
	ctx := context.Background()
	d := newDriver(t)
	id := treefs.NewFileID()

	require.NoError(t, d.WriteContent(ctx, id, bytes.NewReader([]byte("first")), 4096, 1<<20))
	require.NoError(t, d.WriteContent(ctx, id, bytes.NewReader([]byte("second, longer")), 4096, 1<<20))

	rc, err := d.ReadContent(ctx, id)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "second, longer", string(got))
}

func testRemoveIdempotent(t *testing.T, newDriver Factory) {
	ctx := context.Background()
	d := newDriver(t)
	id := treefs.NewFileID()

	require.NoError(t, d.WriteContent(ctx, id, bytes.NewReader([]byte("content")), 4096, 1<<20))
	require.NoError(t, d.RemoveContent(ctx, id))
	require.NoError(t, d.RemoveContent(ctx, id))

	_, err := d.ReadContent(ctx, id)
	require.True(t, treefs.IsBlobNotFound(err))
}
