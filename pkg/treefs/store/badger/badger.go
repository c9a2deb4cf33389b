// Package badger is an embedded Closure Store backend over
// dgraph-io/badger/v4, for single-binary deployments that don't want a
// separate Postgres instance. It realizes the same closure-table
// semantics as the postgres backend, keyed by hand rather than joined by
// SQL, and uses badger.Txn for the same transaction-handoff pattern (open
// in Begin*, returned to the caller to Commit or Rollback/Discard).
package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/yamafs/treefs/internal/logger"
	"github.com/yamafs/treefs/pkg/treefs"
	"github.com/yamafs/treefs/pkg/treefs/pathname"
	"github.com/yamafs/treefs/pkg/treefs/store"
)

// Store is a Badger-backed Closure Store.
type Store struct {
	db *badger.DB
}

// Open opens (creating if absent) a Badger database at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

var _ store.Store = (*Store)(nil)

// Bootstrap seeds rootID as a directory owned by owner, if not already
// present — the Badger analogue of a pre-provisioned root row.
func (s *Store) Bootstrap(rootID treefs.FileID, owner treefs.UserID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(fileKey(rootID))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		f := treefs.File{ID: rootID, Type: treefs.Directory, OwnerID: owner}
		if err := putJSON(txn, fileKey(rootID), f); err != nil {
			return err
		}
		return putJSON(txn, edgeKey(rootID, rootID), treefs.ClosureEdge{
			AncestorID: rootID, DescendantID: rootID, DescendantPath: ".", DescendantDepth: 0,
		})
	})
}

func fileKey(id treefs.FileID) []byte { return []byte("f/" + id.String()) }
func edgeKey(ancestor, descendant treefs.FileID) []byte {
	return []byte(fmt.Sprintf("e/%s/%s", ancestor, descendant))
}
func edgeAncestorPrefix(ancestor treefs.FileID) []byte { return []byte("e/" + ancestor.String() + "/") }
func childIndexKey(parent treefs.FileID, name string) []byte {
	return []byte(fmt.Sprintf("pe/%s/%s", parent, name))
}
// shareKey namespaces one share grant under fileID; shareID discriminates
// between repeat grants to the same user, so it need not relate to the
// grant's UserID at all.
func shareKey(fileID, shareID treefs.FileID) []byte {
	return []byte(fmt.Sprintf("s/%s/%s", fileID, shareID))
}
func sharePrefix(fileID treefs.FileID) []byte { return []byte("s/" + fileID.String() + "/") }

func putJSON(txn *badger.Txn, key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, b)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error { return json.Unmarshal(val, v) })
}

func mapBadgerErr(err error, path string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return treefs.NewNotFoundError(path)
	}
	return treefs.NewIOError(err.Error())
}

func (s *Store) GetFile(_ context.Context, id treefs.FileID) (*treefs.File, error) {
	var f treefs.File
	err := s.db.View(func(txn *badger.Txn) error { return getJSON(txn, fileKey(id), &f) })
	if err != nil {
		return nil, mapBadgerErr(err, id.String())
	}
	return &f, nil
}

func (s *Store) edgesByPrefix(prefix []byte) ([]treefs.ClosureEdge, error) {
	var out []treefs.ClosureEdge
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e treefs.ClosureEdge
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}

func (s *Store) Ancestors(_ context.Context, id treefs.FileID) ([]treefs.ClosureEdge, error) {
	// Ancestor edges are keyed by ancestor first, so finding every edge
	// with a given descendant requires a scan; acceptable at this
	// package's scale (small per-file ancestor chains), unlike the
	// postgres backend's indexed query.
	var out []treefs.ClosureEdge
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte("e/")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e treefs.ClosureEdge
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &e) }); err != nil {
				return err
			}
			if e.DescendantID == id {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, mapBadgerErr(err, id.String())
}

func (s *Store) Descendants(_ context.Context, id treefs.FileID) ([]treefs.ClosureEdge, error) {
	edges, err := s.edgesByPrefix(edgeAncestorPrefix(id))
	return edges, mapBadgerErr(err, id.String())
}

func (s *Store) Child(_ context.Context, parent treefs.FileID, name string) (treefs.ClosureEdge, error) {
	var childID treefs.FileID
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(childIndexKey(parent, name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &childID)
		})
	})
	if err != nil {
		return treefs.ClosureEdge{}, mapBadgerErr(err, name)
	}
	var e treefs.ClosureEdge
	err = s.db.View(func(txn *badger.Txn) error { return getJSON(txn, edgeKey(parent, childID), &e) })
	return e, mapBadgerErr(err, name)
}

func (s *Store) Parent(ctx context.Context, id treefs.FileID) (treefs.ClosureEdge, error) {
	ancestors, err := s.Ancestors(ctx, id)
	if err != nil {
		return treefs.ClosureEdge{}, err
	}
	for _, e := range ancestors {
		if e.DescendantDepth == 1 {
			return e, nil
		}
	}
	return treefs.ClosureEdge{}, treefs.NewNotFoundError(id.String())
}

func (s *Store) SharesOn(_ context.Context, id treefs.FileID) ([]treefs.FileShare, error) {
	var out []treefs.FileShare
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := sharePrefix(id)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var sh treefs.FileShare
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &sh) }); err != nil {
				return err
			}
			out = append(out, sh)
		}
		return nil
	})
	return out, mapBadgerErr(err, id.String())
}

// txn adapts an open badger.Txn to store.Transaction: Commit flushes the
// Txn, Rollback discards it. A commit that loses a conflict with a
// concurrent transaction surfaces as AlreadyExists, without retry.
type txn struct {
	bt *badger.Txn
}

func (t *txn) Commit(context.Context) error {
	if err := t.bt.Commit(); err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return treefs.NewAlreadyExistsError("")
		}
		return treefs.NewIOError(err.Error())
	}
	return nil
}

func (t *txn) Rollback(context.Context) error {
	t.bt.Discard()
	return nil
}

func (s *Store) BeginAdd(_ context.Context, parent treefs.FileID, name string, typ treefs.FileType, owner treefs.UserID) (treefs.FileID, store.Transaction, error) {
	if err := pathname.ValidateName(name); err != nil {
		return treefs.Nil, nil, err
	}

	bt := s.db.NewTransaction(true)

	if _, err := bt.Get(fileKey(parent)); err != nil {
		bt.Discard()
		return treefs.Nil, nil, mapBadgerErr(err, parent.String())
	}
	if _, err := bt.Get(childIndexKey(parent, name)); err == nil {
		bt.Discard()
		return treefs.Nil, nil, treefs.NewAlreadyExistsError(name)
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		bt.Discard()
		return treefs.Nil, nil, mapBadgerErr(err, name)
	}

	id := treefs.NewFileID()
	f := treefs.File{ID: id, Type: typ, OwnerID: owner, OwnName: name}
	if err := putJSON(bt, fileKey(id), f); err != nil {
		bt.Discard()
		return treefs.Nil, nil, treefs.NewIOError(err.Error())
	}
	if err := putJSON(bt, edgeKey(id, id), treefs.ClosureEdge{AncestorID: id, DescendantID: id, DescendantPath: ".", DescendantDepth: 0}); err != nil {
		bt.Discard()
		return treefs.Nil, nil, treefs.NewIOError(err.Error())
	}

	parentAncestors, err := s.Ancestors(context.Background(), parent)
	if err != nil {
		bt.Discard()
		return treefs.Nil, nil, err
	}
	for _, pa := range parentAncestors {
		p := name
		if pa.DescendantPath != "." {
			p = pa.DescendantPath + "/" + name
		}
		e := treefs.ClosureEdge{AncestorID: pa.AncestorID, DescendantID: id, DescendantPath: p, DescendantDepth: pa.DescendantDepth + 1}
		if err := putJSON(bt, edgeKey(pa.AncestorID, id), e); err != nil {
			bt.Discard()
			return treefs.Nil, nil, treefs.NewIOError(err.Error())
		}
	}
	if err := bt.Set(childIndexKey(parent, name), mustJSON(id)); err != nil {
		bt.Discard()
		return treefs.Nil, nil, treefs.NewIOError(err.Error())
	}

	logger.Debug("badger add staged", "id", id.String(), "parent", parent.String(), "name", name)
	return id, &txn{bt: bt}, nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func (s *Store) BeginMove(ctx context.Context, id, newParent treefs.FileID, newName string) (store.Transaction, error) {
	if err := pathname.ValidateName(newName); err != nil {
		return nil, err
	}

	descendants, err := s.Descendants(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, d := range descendants {
		if d.DescendantID == newParent {
			return nil, treefs.NewInvalidMoveError("destination is inside the moved subtree", newName)
		}
	}

	oldParentEdge, err := s.Parent(ctx, id)
	if err != nil {
		return nil, err
	}
	newAncestors, err := s.Ancestors(ctx, newParent)
	if err != nil {
		return nil, err
	}

	bt := s.db.NewTransaction(true)

	if _, err := bt.Get(childIndexKey(newParent, newName)); err == nil {
		bt.Discard()
		return nil, treefs.NewAlreadyExistsError(newName)
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		bt.Discard()
		return nil, mapBadgerErr(err, newName)
	}

	oldAncestors, err := s.Ancestors(ctx, id)
	if err != nil {
		bt.Discard()
		return nil, err
	}
	for _, oa := range oldAncestors {
		if oa.AncestorID == id {
			continue
		}
		for _, d := range descendants {
			if err := bt.Delete(edgeKey(oa.AncestorID, d.DescendantID)); err != nil {
				bt.Discard()
				return nil, treefs.NewIOError(err.Error())
			}
		}
	}

	for _, na := range newAncestors {
		for _, d := range descendants {
			rel := d.DescendantPath
			if d.DescendantID == id {
				rel = ""
			}
			var path string
			switch {
			case na.DescendantPath == "." && rel == "":
				path = newName
			case na.DescendantPath == "." :
				path = newName + "/" + rel
			case rel == "":
				path = na.DescendantPath + "/" + newName
			default:
				path = na.DescendantPath + "/" + newName + "/" + rel
			}
			e := treefs.ClosureEdge{AncestorID: na.AncestorID, DescendantID: d.DescendantID, DescendantPath: path, DescendantDepth: na.DescendantDepth + 1 + d.DescendantDepth}
			if err := putJSON(bt, edgeKey(na.AncestorID, d.DescendantID), e); err != nil {
				bt.Discard()
				return nil, treefs.NewIOError(err.Error())
			}
		}
	}

	if err := bt.Delete(childIndexKey(oldParentEdge.AncestorID, lastComponent(oldParentEdge.DescendantPath))); err != nil {
		bt.Discard()
		return nil, treefs.NewIOError(err.Error())
	}
	if err := bt.Set(childIndexKey(newParent, newName), mustJSON(id)); err != nil {
		bt.Discard()
		return nil, treefs.NewIOError(err.Error())
	}

	f, err := s.GetFile(ctx, id)
	if err != nil {
		bt.Discard()
		return nil, err
	}
	f.OwnName = newName
	if err := putJSON(bt, fileKey(id), *f); err != nil {
		bt.Discard()
		return nil, treefs.NewIOError(err.Error())
	}

	return &txn{bt: bt}, nil
}

func lastComponent(p string) string {
	idx := bytes.LastIndexByte([]byte(p), '/')
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}

// BeginRemove cascade-deletes id and every descendant transitively rooted
// at it. Badger has no descendant-keyed index, only ancestor-prefix-keyed
// edges, so for each member of id's subtree we re-scan its own ancestor
// edges (the same full scan Ancestors already does) to find every edge
// ending at it; an edge found at depth 1 also names the child-index key
// to delete, which covers id's own outer-parent entry without needing a
// separate case for it.
func (s *Store) BeginRemove(ctx context.Context, id treefs.FileID) ([]treefs.File, store.Transaction, error) {
	if _, err := s.GetFile(ctx, id); err != nil {
		return nil, nil, err
	}

	subtree, err := s.Descendants(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	bt := s.db.NewTransaction(true)

	var removed []treefs.File
	for _, d := range subtree {
		rid := d.DescendantID

		rf, err := s.GetFile(ctx, rid)
		if err != nil {
			bt.Discard()
			return nil, nil, err
		}
		removed = append(removed, *rf)

		ancestors, err := s.Ancestors(ctx, rid)
		if err != nil {
			bt.Discard()
			return nil, nil, err
		}
		for _, a := range ancestors {
			if err := bt.Delete(edgeKey(a.AncestorID, rid)); err != nil {
				bt.Discard()
				return nil, nil, treefs.NewIOError(err.Error())
			}
			if a.DescendantDepth == 1 {
				if err := bt.Delete(childIndexKey(a.AncestorID, rf.OwnName)); err != nil {
					bt.Discard()
					return nil, nil, treefs.NewIOError(err.Error())
				}
			}
		}

		if err := s.deleteSharesLocked(bt, rid); err != nil {
			bt.Discard()
			return nil, nil, err
		}

		if err := bt.Delete(fileKey(rid)); err != nil {
			bt.Discard()
			return nil, nil, treefs.NewIOError(err.Error())
		}
	}

	return removed, &txn{bt: bt}, nil
}

// deleteSharesLocked deletes every share key recorded on id within the
// given open transaction.
func (s *Store) deleteSharesLocked(bt *badger.Txn, id treefs.FileID) error {
	it := bt.NewIterator(badger.DefaultIteratorOptions)
	prefix := sharePrefix(id)
	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, append([]byte(nil), it.Item().Key()...))
	}
	it.Close()
	for _, k := range keys {
		if err := bt.Delete(k); err != nil {
			return treefs.NewIOError(err.Error())
		}
	}
	return nil
}

func (s *Store) BeginShare(_ context.Context, share treefs.FileShare) (store.Transaction, error) {
	bt := s.db.NewTransaction(true)
	if _, err := bt.Get(fileKey(share.FileID)); err != nil {
		bt.Discard()
		return nil, mapBadgerErr(err, share.FileID.String())
	}
	// Each grant gets its own key so repeat shares to the same user
	// accumulate rather than overwrite (spec: duplicate insertion is
	// permitted, idempotence is not guaranteed across created_by values).
	if err := putJSON(bt, shareKey(share.FileID, treefs.NewFileID()), share); err != nil {
		bt.Discard()
		return nil, treefs.NewIOError(err.Error())
	}
	return &txn{bt: bt}, nil
}

func (s *Store) Close(context.Context) error { return s.db.Close() }
