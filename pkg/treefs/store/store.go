// Package store defines the Closure Store contract: the persistence layer
// beneath the Tree Engine, responsible for the files table, the
// ancestor/descendant closure table, and the file shares table. Concrete
// backends (postgres, badger, memory) live in subpackages and all satisfy
// this interface, exercised identically by pkg/treefs/treefstest.
package store

import (
	"context"

	"github.com/yamafs/treefs/pkg/treefs"
)

// Transaction is an open unit of work returned by Add/Move/Remove/Share.
// The caller owns its lifetime and must call exactly one of Commit or
// Rollback (the "transaction handoff" pattern — unlike
// a WithTransaction(ctx, fn) callback, the store never decides when the
// work is done).
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the Closure Store contract.
type Store interface {
	// GetFile loads a file's own row (not its closure edges).
	GetFile(ctx context.Context, id treefs.FileID) (*treefs.File, error)

	// Ancestors returns every closure edge with descendant == id, i.e.
	// id's full ancestor chain including the depth-0 self edge.
	Ancestors(ctx context.Context, id treefs.FileID) ([]treefs.ClosureEdge, error)

	// Descendants returns every closure edge with ancestor == id, i.e.
	// id's full subtree including the depth-0 self edge.
	Descendants(ctx context.Context, id treefs.FileID) ([]treefs.ClosureEdge, error)

	// Child looks up the closure edge for the immediate child of parent
	// named name (depth 1), returning treefs.ErrNotFound if absent.
	Child(ctx context.Context, parent treefs.FileID, name string) (treefs.ClosureEdge, error)

	// Parent returns the depth-1 ancestor edge of id (id's immediate
	// parent and its own name), or treefs.ErrNotFound if id is the root.
	Parent(ctx context.Context, id treefs.FileID) (treefs.ClosureEdge, error)

	// SharesOn returns the file shares recorded directly on id (not
	// inherited from ancestors — the Authorization Engine walks ancestors
	// itself via Ancestors).
	SharesOn(ctx context.Context, id treefs.FileID) ([]treefs.FileShare, error)

	// BeginAdd opens a transaction that will insert a new file named name
	// under parent as owner's file, of the given type, maintaining the
	// closure invariants, and returns the new file's id.
	BeginAdd(ctx context.Context, parent treefs.FileID, name string, typ treefs.FileType, owner treefs.UserID) (treefs.FileID, Transaction, error)

	// BeginMove opens a transaction that reparents id to newParent under
	// newName, rewriting every closure edge whose descendant is in id's
	// subtree.
	BeginMove(ctx context.Context, id, newParent treefs.FileID, newName string) (Transaction, error)

	// BeginRemove opens a transaction that cascade-deletes id and every
	// descendant transitively rooted at it, along with their closure
	// edges and shares, returning the full set of removed files (id
	// included) so the caller can reconcile blob content for each
	// removed Regular file.
	BeginRemove(ctx context.Context, id treefs.FileID) ([]treefs.File, Transaction, error)

	// BeginShare opens a transaction that records a FileShare grant.
	BeginShare(ctx context.Context, share treefs.FileShare) (Transaction, error)

	// Close releases resources held by the store (connection pool, db
	// handle).
	Close(ctx context.Context) error
}
