package memory_test

import (
	"testing"

	"github.com/yamafs/treefs/pkg/treefs"
	"github.com/yamafs/treefs/pkg/treefs/store"
	"github.com/yamafs/treefs/pkg/treefs/store/memory"
	"github.com/yamafs/treefs/pkg/treefs/treefstest"
)

func TestMemoryStore(t *testing.T) {
	treefstest.Run(t, "memory", func(t *testing.T, rootID treefs.FileID, owner treefs.UserID) store.Store {
		return memory.New(rootID, owner)
	})
}
