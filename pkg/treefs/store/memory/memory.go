// Package memory is an in-process Closure Store backend used by tests and
// the conformance suite, and as the default backend for the treefsctl demo
// CLI when no database is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yamafs/treefs/pkg/treefs"
	"github.com/yamafs/treefs/pkg/treefs/pathname"
	"github.com/yamafs/treefs/pkg/treefs/store"
)

type edgeKey struct {
	ancestor, descendant treefs.FileID
}

// Store is an in-memory implementation of store.Store, guarded by a single
// mutex; every Begin* method mutates state eagerly and returns a
// Transaction that simply snapshots or discards the change, since there is
// no external resource to coordinate with.
type Store struct {
	mu sync.Mutex

	files   map[treefs.FileID]treefs.File
	edges   map[edgeKey]treefs.ClosureEdge
	byChild map[treefs.FileID]map[string]treefs.FileID // parent -> name -> child
	shares  map[treefs.FileID][]treefs.FileShare
}

// New creates an empty Store with rootID pre-seeded as a directory owned
// by owner.
func New(rootID treefs.FileID, owner treefs.UserID) *Store {
	s := &Store{
		files:   make(map[treefs.FileID]treefs.File),
		edges:   make(map[edgeKey]treefs.ClosureEdge),
		byChild: make(map[treefs.FileID]map[string]treefs.FileID),
		shares:  make(map[treefs.FileID][]treefs.FileShare),
	}
	s.files[rootID] = treefs.File{ID: rootID, Type: treefs.Directory, OwnerID: owner, CreatedAt: time.Now()}
	s.edges[edgeKey{rootID, rootID}] = treefs.ClosureEdge{AncestorID: rootID, DescendantID: rootID, DescendantPath: ".", DescendantDepth: 0}
	return s
}

var _ store.Store = (*Store)(nil)

func (s *Store) GetFile(_ context.Context, id treefs.FileID) (*treefs.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[id]
	if !ok {
		return nil, treefs.NewNotFoundError(id.String())
	}
	return &f, nil
}

func (s *Store) Ancestors(_ context.Context, id treefs.FileID) ([]treefs.ClosureEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return nil, treefs.NewNotFoundError(id.String())
	}
	var out []treefs.ClosureEdge
	for k, e := range s.edges {
		if k.descendant == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) Descendants(_ context.Context, id treefs.FileID) ([]treefs.ClosureEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return nil, treefs.NewNotFoundError(id.String())
	}
	var out []treefs.ClosureEdge
	for k, e := range s.edges {
		if k.ancestor == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) Child(_ context.Context, parent treefs.FileID, name string) (treefs.ClosureEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	children, ok := s.byChild[parent]
	if !ok {
		return treefs.ClosureEdge{}, treefs.NewNotFoundError(name)
	}
	childID, ok := children[name]
	if !ok {
		return treefs.ClosureEdge{}, treefs.NewNotFoundError(name)
	}
	return s.edges[edgeKey{parent, childID}], nil
}

func (s *Store) Parent(_ context.Context, id treefs.FileID) (treefs.ClosureEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.edges {
		if k.descendant == id && e.DescendantDepth == 1 {
			return e, nil
		}
	}
	return treefs.ClosureEdge{}, treefs.NewNotFoundError(id.String())
}

func (s *Store) SharesOn(_ context.Context, id treefs.FileID) ([]treefs.FileShare, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]treefs.FileShare(nil), s.shares[id]...), nil
}

type txn struct {
	commit   func()
	rollback func()
	done     bool
}

func (t *txn) Commit(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.commit()
	return nil
}

func (t *txn) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.rollback()
	return nil
}

// BeginAdd inserts child under parent eagerly (the in-memory store has no
// external resource to stage against) and returns a Transaction whose
// Commit is a no-op and whose Rollback undoes the insert — matching the
// open-transaction-handed-to-caller shape of the real backends.
func (s *Store) BeginAdd(_ context.Context, parent treefs.FileID, name string, typ treefs.FileType, owner treefs.UserID) (treefs.FileID, store.Transaction, error) {
	if err := pathname.ValidateName(name); err != nil {
		return treefs.Nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[parent]; !ok {
		return treefs.Nil, nil, treefs.NewNotFoundError(parent.String())
	}
	if children, ok := s.byChild[parent]; ok {
		if _, exists := children[name]; exists {
			return treefs.Nil, nil, treefs.NewAlreadyExistsError(name)
		}
	}

	id := treefs.NewFileID()
	parentAncestors := s.ancestorsLocked(parent)

	added := []edgeKey{}
	f := treefs.File{ID: id, Type: typ, OwnerID: owner, CreatedAt: time.Now(), OwnName: name}
	s.files[id] = f

	self := edgeKey{id, id}
	s.edges[self] = treefs.ClosureEdge{AncestorID: id, DescendantID: id, DescendantPath: ".", DescendantDepth: 0}
	added = append(added, self)

	for _, pa := range parentAncestors {
		k := edgeKey{pa.AncestorID, id}
		var p string
		if pa.DescendantPath == "." {
			p = name
		} else {
			p = pa.DescendantPath + "/" + name
		}
		s.edges[k] = treefs.ClosureEdge{AncestorID: pa.AncestorID, DescendantID: id, DescendantPath: p, DescendantDepth: pa.DescendantDepth + 1}
		added = append(added, k)
	}

	if s.byChild[parent] == nil {
		s.byChild[parent] = make(map[string]treefs.FileID)
	}
	s.byChild[parent][name] = id

	commit := func() {}
	rollback := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.files, id)
		for _, k := range added {
			delete(s.edges, k)
		}
		delete(s.byChild[parent], name)
	}
	return id, &txn{commit: commit, rollback: rollback}, nil
}

func (s *Store) ancestorsLocked(id treefs.FileID) []treefs.ClosureEdge {
	var out []treefs.ClosureEdge
	for k, e := range s.edges {
		if k.descendant == id {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) descendantsLocked(id treefs.FileID) []treefs.ClosureEdge {
	var out []treefs.ClosureEdge
	for k, e := range s.edges {
		if k.ancestor == id {
			out = append(out, e)
		}
	}
	return out
}

// BeginMove reparents id under newParent as newName, rewriting every
// closure edge whose descendant lies in id's subtree, joining paths with
// "."-elision.
func (s *Store) BeginMove(_ context.Context, id, newParent treefs.FileID, newName string) (store.Transaction, error) {
	if err := pathname.ValidateName(newName); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return nil, treefs.NewNotFoundError(id.String())
	}
	if _, ok := s.files[newParent]; !ok {
		return nil, treefs.NewNotFoundError(newParent.String())
	}
	if children, ok := s.byChild[newParent]; ok {
		if _, exists := children[newName]; exists {
			return nil, treefs.NewAlreadyExistsError(newName)
		}
	}

	// Cycle refusal: newParent must not be id or a descendant of id.
	for _, d := range s.descendantsLocked(id) {
		if d.DescendantID == newParent {
			return nil, treefs.NewInvalidMoveError("destination is inside the moved subtree", newName)
		}
	}

	var oldParent treefs.FileID
	foundParent := false
	for k, e := range s.edges {
		if k.descendant == id && e.DescendantDepth == 1 {
			oldParent = e.AncestorID
			foundParent = true
			break
		}
	}
	if !foundParent {
		return nil, treefs.NewInvalidMoveError("cannot move the root", id.String())
	}
	oldName := s.files[id].OwnName

	before := make(map[edgeKey]treefs.ClosureEdge, len(s.edges))
	for k, v := range s.edges {
		before[k] = v
	}
	beforeByChild := map[treefs.FileID]string{oldParent: oldName, newParent: newName}

	descendants := s.descendantsLocked(id)
	newAncestors := s.ancestorsLocked(newParent)

	// Remove every edge pairing a non-subtree ancestor of id with a
	// subtree descendant of id (the edges the move invalidates).
	oldAncestorsOfID := s.ancestorsLocked(id)
	for _, oa := range oldAncestorsOfID {
		if oa.AncestorID == id {
			continue
		}
		for _, d := range descendants {
			delete(s.edges, edgeKey{oa.AncestorID, d.DescendantID})
		}
	}

	// Recompute paths/depths for id's own subtree under every ancestor of
	// newParent (including newParent itself), and re-home id itself.
	idSelfPath := "."
	for _, na := range newAncestors {
		for _, d := range descendants {
			var relUnderID string
			if d.DescendantPath == idSelfPath {
				relUnderID = ""
			} else {
				relUnderID = d.DescendantPath
			}
			var path string
			switch {
			case na.DescendantPath == "." && relUnderID == "":
				path = newName
			case na.DescendantPath == "." && relUnderID != "":
				path = newName + "/" + relUnderID
			case relUnderID == "":
				path = na.DescendantPath + "/" + newName
			default:
				path = na.DescendantPath + "/" + newName + "/" + relUnderID
			}
			depth := na.DescendantDepth + 1 + d.DescendantDepth
			s.edges[edgeKey{na.AncestorID, d.DescendantID}] = treefs.ClosureEdge{
				AncestorID: na.AncestorID, DescendantID: d.DescendantID,
				DescendantPath: path, DescendantDepth: depth,
			}
		}
	}

	delete(s.byChild[oldParent], oldName)
	if s.byChild[newParent] == nil {
		s.byChild[newParent] = make(map[string]treefs.FileID)
	}
	s.byChild[newParent][newName] = id

	f := s.files[id]
	f.OwnName = newName
	s.files[id] = f

	commit := func() {}
	rollback := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.edges = before
		delete(s.byChild[newParent], newName)
		if s.byChild[oldParent] == nil {
			s.byChild[oldParent] = make(map[string]treefs.FileID)
		}
		s.byChild[oldParent][beforeByChild[oldParent]] = id
		f := s.files[id]
		f.OwnName = oldName
		s.files[id] = f
	}
	return &txn{commit: commit, rollback: rollback}, nil
}

// BeginRemove cascade-deletes id and every descendant transitively rooted
// at it (the full subtree, including id's own self edge), along with
// every closure edge and share referencing a removed id.
func (s *Store) BeginRemove(_ context.Context, id treefs.FileID) ([]treefs.File, store.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		return nil, nil, treefs.NewNotFoundError(id.String())
	}

	descendants := s.descendantsLocked(id)
	idSet := make(map[treefs.FileID]struct{}, len(descendants))
	for _, d := range descendants {
		idSet[d.DescendantID] = struct{}{}
	}

	parentEdge, hasParent := func() (treefs.ClosureEdge, bool) {
		for k, e := range s.edges {
			if k.descendant == id && e.DescendantDepth == 1 {
				return e, true
			}
		}
		return treefs.ClosureEdge{}, false
	}()

	removedFiles := make(map[treefs.FileID]treefs.File, len(idSet))
	removedShares := make(map[treefs.FileID][]treefs.FileShare, len(idSet))
	removedByChild := make(map[treefs.FileID]map[string]treefs.FileID, len(idSet))
	for rid := range idSet {
		removedFiles[rid] = s.files[rid]
		if shares, ok := s.shares[rid]; ok {
			removedShares[rid] = shares
		}
		if children, ok := s.byChild[rid]; ok {
			removedByChild[rid] = children
		}
	}

	removedEdges := make(map[edgeKey]treefs.ClosureEdge)
	for k, e := range s.edges {
		if _, ok := idSet[k.descendant]; ok {
			removedEdges[k] = e
			delete(s.edges, k)
		}
	}
	for rid := range idSet {
		delete(s.files, rid)
		delete(s.byChild, rid)
		delete(s.shares, rid)
	}
	if hasParent {
		delete(s.byChild[parentEdge.AncestorID], f.OwnName)
	}

	removed := make([]treefs.File, 0, len(removedFiles))
	for _, rf := range removedFiles {
		removed = append(removed, rf)
	}

	commit := func() {}
	rollback := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for rid, rf := range removedFiles {
			s.files[rid] = rf
		}
		for rid, shares := range removedShares {
			s.shares[rid] = shares
		}
		for rid, children := range removedByChild {
			s.byChild[rid] = children
		}
		for k, e := range removedEdges {
			s.edges[k] = e
		}
		if hasParent {
			if s.byChild[parentEdge.AncestorID] == nil {
				s.byChild[parentEdge.AncestorID] = make(map[string]treefs.FileID)
			}
			s.byChild[parentEdge.AncestorID][f.OwnName] = id
		}
	}
	return removed, &txn{commit: commit, rollback: rollback}, nil
}

// BeginShare records a FileShare grant on share.FileID.
func (s *Store) BeginShare(_ context.Context, share treefs.FileShare) (store.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[share.FileID]; !ok {
		return nil, treefs.NewNotFoundError(share.FileID.String())
	}

	s.shares[share.FileID] = append(s.shares[share.FileID], share)
	idx := len(s.shares[share.FileID]) - 1

	commit := func() {}
	rollback := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.shares[share.FileID]
		s.shares[share.FileID] = append(list[:idx], list[idx+1:]...)
	}
	return &txn{commit: commit, rollback: rollback}, nil
}

func (s *Store) Close(context.Context) error { return nil }
