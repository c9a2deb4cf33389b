// Package treefs implements the hierarchical file graph engine: a
// closure-table backed tree of files and directories, share-based
// authorization that propagates over both the file hierarchy and an
// externally owned user hierarchy, and the mutating tree operations
// (add, move, remove, share) that keep the closure invariants intact.
package treefs

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FileID uniquely and stably identifies a file or directory.
type FileID uuid.UUID

// Nil is the zero FileID; no real file ever has this id.
var Nil FileID

func (id FileID) String() string { return uuid.UUID(id).String() }

// NewFileID generates a fresh random FileID.
func NewFileID() FileID { return FileID(uuid.New()) }

// UserID identifies a principal external to this package: the user
// subsystem (account management, authentication) is out of scope here and
// is represented only through UserAncestryStore.
type UserID uuid.UUID

func (id UserID) String() string { return uuid.UUID(id).String() }

// FileType distinguishes a leaf (content-bearing) file from a directory.
type FileType int

const (
	Regular FileType = iota
	Directory
)

func (t FileType) String() string {
	if t == Directory {
		return "directory"
	}
	return "regular"
}

// File is a node in the hierarchy. Regular files carry content addressed
// through the Blob Driver by their FileID; directories never have content.
type File struct {
	ID        FileID
	Type      FileType
	OwnerID   UserID
	CreatedAt time.Time
	// OwnName is a read-side convenience denormalization of the file's own
	// name, populated alongside the closure edges by add/move. It is never
	// authoritative: the closure edge from the parent remains the source
	// of truth for the name actually in effect (see SPEC_FULL.md §5).
	OwnName string
}

// ClosureEdge is one row of the ancestor/descendant closure: every
// (ancestor, descendant) pair reachable in the hierarchy, including the
// self edge (depth 0, path ".").
type ClosureEdge struct {
	AncestorID   FileID
	DescendantID FileID
	// DescendantPath is the descendant's name relative to the ancestor,
	// POSIX-joined across intermediate names ("a/b/c").
	DescendantPath string
	DescendantDepth int
}

// ShareKind is the permission level granted by a File Share. The three
// kinds form a total order: Read < Write < Share.
type ShareKind int

const (
	ShareRead ShareKind = iota
	ShareWrite
	ShareShare
)

func (k ShareKind) String() string {
	switch k {
	case ShareRead:
		return "read"
	case ShareWrite:
		return "write"
	case ShareShare:
		return "share"
	default:
		return "unknown"
	}
}

// Includes reports whether a grant of kind k authorizes an operation that
// requires at least `want` (the total order read < write < share).
func (k ShareKind) Includes(want ShareKind) bool { return k >= want }

// FileShare grants UserID access of Kind to FileID's whole subtree (via
// the file closure) and to every user reachable from UserID (via the
// external user closure).
type FileShare struct {
	FileID    FileID
	UserID    UserID
	Kind      ShareKind
	CreatedBy UserID
	CreatedAt time.Time
}

// DirEntry pairs one child's name with its file row: just enough to name
// and type the child without resolving its own subtree. Read returns
// children as Tree values, not as DirEntry.
type DirEntry struct {
	Name string
	File File
}

// Tree is the resolved result of a Read: the file itself, and for
// directories, its children up to max_depth (0 means the file alone; 1
// lists direct children without recursing into their own children).
type Tree struct {
	Path     string
	File     File
	Children []Tree
}

// UserAncestryStore is the narrow, read-only external collaborator the
// Authorization Engine queries for the user closure. It is never
// implemented by this package — user account management is out of scope
// (SPEC_FULL.md §1) — only depended upon.
type UserAncestryStore interface {
	// IsAncestor reports whether ancestor is u or an ancestor of u in the
	// external user hierarchy (e.g. a group containing u).
	IsAncestor(ctx context.Context, ancestor, u UserID) (bool, error)
}

// Reader is the read side of the tree engine: resolve, read, walk_parent.
type Reader interface {
	// Resolve walks path and returns the FileID it names. An absolute path
	// (leading "/") resolves from the root file; any other path resolves
	// from working, the caller's current anchor ("." names working
	// itself).
	Resolve(ctx context.Context, caller UserID, working FileID, path string) (FileID, error)
	// Read returns the resolved Tree for path, descending at most maxDepth
	// levels into directory children. See Resolve for how path and
	// working combine to name the target.
	Read(ctx context.Context, caller UserID, working FileID, path string, maxDepth int) (*Tree, error)
	// WalkParent returns the immediate parent's FileID and the child's own
	// name, as recorded by the closure edge of depth 1.
	WalkParent(ctx context.Context, caller UserID, id FileID) (parent FileID, name string, err error)
}

// Writer is the content side of the tree engine.
type Writer interface {
	// Write streams content into the regular file id, through the
	// configured Blob Driver, honoring chunk_size/max_file_size.
	Write(ctx context.Context, caller UserID, id FileID, content io.Reader) error
	// ReadContent opens a stream to read a regular file's content.
	ReadContent(ctx context.Context, caller UserID, id FileID) (io.ReadCloser, error)
}

// Engine is the full Tree Engine surface: resolve/read/walk_parent plus
// the mutating operations add/move/remove/share and the write path.
type Engine interface {
	Reader
	Writer

	// Add creates a new file or directory named name under parent.
	Add(ctx context.Context, caller UserID, parent FileID, name string, typ FileType) (FileID, error)
	// Move relocates id to be named newName under newParent.
	Move(ctx context.Context, caller UserID, id FileID, newParent FileID, newName string) error
	// Remove deletes id and, for a directory, every file beneath it.
	Remove(ctx context.Context, caller UserID, id FileID) error
	// Share grants kind on id's subtree to grantee.
	Share(ctx context.Context, caller UserID, id FileID, grantee UserID, kind ShareKind) error
}
