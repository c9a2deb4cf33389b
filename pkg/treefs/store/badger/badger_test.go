package badger_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yamafs/treefs/pkg/treefs"
	"github.com/yamafs/treefs/pkg/treefs/store"
	"github.com/yamafs/treefs/pkg/treefs/store/badger"
	"github.com/yamafs/treefs/pkg/treefs/treefstest"
)

func TestBadgerStore(t *testing.T) {
	treefstest.Run(t, "badger", func(t *testing.T, rootID treefs.FileID, owner treefs.UserID) store.Store {
		dir := filepath.Join(t.TempDir(), "badger")
		s, err := badger.Open(dir)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close(context.Background()) })
		require.NoError(t, s.Bootstrap(rootID, owner))
		return s
	})
}
