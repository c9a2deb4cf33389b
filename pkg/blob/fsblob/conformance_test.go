package fsblob_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yamafs/treefs/pkg/blob"
	"github.com/yamafs/treefs/pkg/blob/blobtest"
	"github.com/yamafs/treefs/pkg/blob/fsblob"
)

func TestFSBlobConformance(t *testing.T) {
	blobtest.Run(t, "fsblob", func(t *testing.T) blob.Driver {
		d, err := fsblob.New(fsblob.DefaultConfig(t.TempDir()))
		require.NoError(t, err)
		return d
	})
}
