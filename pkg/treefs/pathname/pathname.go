// Package pathname validates and normalizes the names and paths the tree
// engine accepts, grounded on the same bounds-checking style as the
// teacher's metadata validation helpers, adapted to this package's exact
// name/path grammar.
package pathname

import (
	"strings"
	"unicode"

	"github.com/yamafs/treefs/pkg/treefs"
)

const (
	// MaxNameBytes is the maximum length of a single path component.
	MaxNameBytes = 255
	// MaxPathBytes is the maximum length of a full path.
	MaxPathBytes = 4095
)

// ValidateName checks a single path component: non-empty, at most
// MaxNameBytes bytes, only printable characters, no NUL byte, no "/", and
// not "..".
func ValidateName(name string) error {
	if name == "" {
		return treefs.NewInvalidNameError(name)
	}
	if len(name) > MaxNameBytes {
		return treefs.NewInvalidNameError(name)
	}
	if name == ".." {
		return treefs.NewInvalidNameError(name)
	}
	if strings.ContainsRune(name, '/') {
		return treefs.NewInvalidNameError(name)
	}
	for _, r := range name {
		if r == 0 || !unicode.IsPrint(r) {
			return treefs.NewInvalidNameError(name)
		}
	}
	return nil
}

// Normalize validates and normalizes a path: at most MaxPathBytes bytes,
// POSIX-style. A path beginning with "/" is absolute and resolves from
// the root file; any other path is relative and resolves from the
// caller's working file (a leading "//", or any run of leading slashes,
// still collapses to the single absolute root "/"). No "." or ".." token
// is permitted anywhere except the path consisting of exactly "." (the
// working file itself). Returns the normalized path, its split
// components (empty for "." or the root), and whether it is absolute.
func Normalize(path string) (normalized string, components []string, absolute bool, err error) {
	if len(path) > MaxPathBytes {
		return "", nil, false, treefs.NewInvalidPathError(path)
	}
	if path == "" {
		return "", nil, false, treefs.NewInvalidPathError(path)
	}
	if path == "." {
		return ".", nil, false, nil
	}

	absolute = strings.HasPrefix(path, "/")

	raw := strings.Split(path, "/")
	for _, c := range raw {
		if c == "" {
			continue // collapses leading "//" and any doubled separators
		}
		if c == "." || c == ".." {
			return "", nil, false, treefs.NewInvalidPathError(path)
		}
		if err := ValidateName(c); err != nil {
			return "", nil, false, treefs.NewInvalidPathError(path)
		}
		components = append(components, c)
	}

	if len(components) == 0 {
		if absolute {
			return "/", nil, true, nil
		}
		return "", nil, false, treefs.NewInvalidPathError(path)
	}
	if absolute {
		return "/" + strings.Join(components, "/"), components, true, nil
	}
	return strings.Join(components, "/"), components, false, nil
}

// Join concatenates a parent path and a child name the way closure edge
// paths are built: "." + name => name; "a/b" + name => "a/b/name".
func Join(parentRelPath, name string) string {
	if parentRelPath == "." || parentRelPath == "" {
		return name
	}
	return parentRelPath + "/" + name
}

// Combine rewrites a descendant's path relative to some ancestor after a
// move. movedOldRel is the moved node's path under that ancestor before
// the move and movedNewRel its path after; oldAncestorRel is the
// descendant's path under the same ancestor before the move. If the
// descendant is the moved node or lies beneath it, Combine returns its
// new path and true; otherwise it returns "" and false.
func Combine(movedOldRel, movedNewRel, oldAncestorRel string) (string, bool) {
	if oldAncestorRel == movedOldRel {
		return movedNewRel, true
	}
	prefix := movedOldRel + "/"
	if !strings.HasPrefix(oldAncestorRel, prefix) {
		return "", false
	}
	suffix := strings.TrimPrefix(oldAncestorRel, prefix)
	return movedNewRel + "/" + suffix, true
}
