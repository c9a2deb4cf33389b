// Package engine implements the Tree Engine: the component that exposes
// resolve/read/walk_parent and the mutating add/move/remove/share/write
// operations, composing a Closure Store, the Authorization Engine, and a
// Blob Driver.
package engine

import (
	"context"
	"io"
	"time"

	"github.com/yamafs/treefs/internal/logger"
	"github.com/yamafs/treefs/internal/telemetry"
	"github.com/yamafs/treefs/pkg/treefs"
	"github.com/yamafs/treefs/pkg/treefs/authz"
	"github.com/yamafs/treefs/pkg/treefs/metrics"
	"github.com/yamafs/treefs/pkg/treefs/pathname"
	"github.com/yamafs/treefs/pkg/treefs/store"

	"go.opentelemetry.io/otel/trace"
)

// BlobDriver restates pkg/blob.Driver's method set locally so this
// package never imports pkg/blob: any pkg/blob.Driver value satisfies
// this interface structurally, and callers wire the concrete backend in
// at construction time (see cmd/treefsctl).
type BlobDriver interface {
	ReadContent(ctx context.Context, id treefs.FileID) (io.ReadCloser, error)
	WriteContent(ctx context.Context, id treefs.FileID, r io.Reader, chunkSize, maxFileSize int64) error
	RemoveContent(ctx context.Context, id treefs.FileID) error
}

// Engine is the Tree Engine, satisfying treefs.Engine.
type Engine struct {
	store   store.Store
	authz   *authz.Engine
	blob    BlobDriver
	cfg     treefs.Config
	metrics *metrics.Metrics
}

// New composes a Tree Engine over a Closure Store, a user ancestry
// collaborator, a Blob Driver, and the engine's Config.
func New(s store.Store, users treefs.UserAncestryStore, blobDriver BlobDriver, cfg treefs.Config) *Engine {
	return &Engine{
		store: s,
		authz: authz.New(s, users),
		blob:  blobDriver,
		cfg:   cfg,
	}
}

// WithMetrics attaches Prometheus instrumentation to the Tree Engine and
// its Authorization Engine, returning the same Engine for chaining at
// construction time.
func (e *Engine) WithMetrics(m *metrics.Metrics) *Engine {
	e.metrics = m
	e.authz.WithMetrics(m)
	return e
}

var _ treefs.Engine = (*Engine)(nil)

// Resolve walks path by name and checks ShareRead once on the resolved
// target. An absolute path (leading "/") resolves from the configured
// root file; any other path resolves from working, the caller's current
// anchor. Unlike POSIX traversal permissions, an ancestor directory's own
// visibility is independent of whether a caller may resolve a path
// through it by name — access is governed entirely by the share closure
// on the target itself (and transitively by shares on the target's
// ancestors, which the Authorization Engine already walks).
func (e *Engine) Resolve(ctx context.Context, caller treefs.UserID, working treefs.FileID, path string) (treefs.FileID, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanEngineResolve, trace.WithAttributes(telemetry.Caller(caller.String()), telemetry.Path(path)))
	defer span.End()

	id, err := e.resolve(ctx, caller, working, path)
	telemetry.RecordError(ctx, err)
	return id, err
}

func (e *Engine) resolve(ctx context.Context, caller treefs.UserID, working treefs.FileID, path string) (treefs.FileID, error) {
	norm, components, absolute, err := pathname.Normalize(path)
	if err != nil {
		return treefs.Nil, err
	}

	anchor := working
	if absolute {
		anchor = e.cfg.RootFileID
	}

	cur := anchor
	if norm != "." {
		for _, name := range components {
			edge, err := e.store.Child(ctx, cur, name)
			if err != nil {
				return treefs.Nil, err
			}
			cur = edge.DescendantID
		}
	}
	if err := e.authz.Check(ctx, caller, cur, treefs.ShareRead); err != nil {
		return treefs.Nil, err
	}
	return cur, nil
}

// WalkParent returns id's immediate parent and own name.
func (e *Engine) WalkParent(ctx context.Context, caller treefs.UserID, id treefs.FileID) (treefs.FileID, string, error) {
	if err := e.authz.Check(ctx, caller, id, treefs.ShareRead); err != nil {
		return treefs.Nil, "", err
	}
	edge, err := e.store.Parent(ctx, id)
	if err != nil {
		return treefs.Nil, "", err
	}
	name := lastComponent(edge.DescendantPath)
	return edge.AncestorID, name, nil
}

func lastComponent(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

// Read resolves path (see Resolve for how path and working combine) and
// returns its Tree, descending at most maxDepth levels into directory
// children: 0 returns the file alone, 1 adds its direct children.
func (e *Engine) Read(ctx context.Context, caller treefs.UserID, working treefs.FileID, path string, maxDepth int) (*treefs.Tree, error) {
	id, err := e.Resolve(ctx, caller, working, path)
	if err != nil {
		return nil, err
	}
	return e.readTree(ctx, caller, path, id, maxDepth)
}

func (e *Engine) readTree(ctx context.Context, caller treefs.UserID, path string, id treefs.FileID, depth int) (*treefs.Tree, error) {
	f, err := e.store.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	t := &treefs.Tree{Path: path, File: *f}
	if f.Type != treefs.Directory || depth <= 0 {
		return t, nil
	}

	edges, err := e.store.Descendants(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, edge := range edges {
		if edge.DescendantDepth != 1 {
			continue
		}
		if err := e.authz.Check(ctx, caller, edge.DescendantID, treefs.ShareRead); err != nil {
			continue // skip entries the caller cannot see
		}
		childPath := pathname.Join(path, lastComponent(edge.DescendantPath))
		child, err := e.readTree(ctx, caller, childPath, edge.DescendantID, depth-1)
		if err != nil {
			return nil, err
		}
		t.Children = append(t.Children, *child)
	}
	return t, nil
}

// Add creates a new file or directory named name under parent, requiring
// ShareWrite on parent.
func (e *Engine) Add(ctx context.Context, caller treefs.UserID, parent treefs.FileID, name string, typ treefs.FileType) (treefs.FileID, error) {
	start := time.Now()
	id, err := e.add(ctx, caller, parent, name, typ)
	telemetry.RecordError(ctx, err)
	e.metrics.ObserveOp(metrics.OpAdd, opResult(err), time.Since(start))
	return id, err
}

func opResult(err error) string {
	if err == nil {
		return metrics.ResultOK
	}
	if treefs.IsPermissionDenied(err) {
		return metrics.ResultDenied
	}
	return metrics.ResultError
}

func (e *Engine) add(ctx context.Context, caller treefs.UserID, parent treefs.FileID, name string, typ treefs.FileType) (treefs.FileID, error) {
	ctx, span := telemetry.StartEngineSpan(ctx, telemetry.SpanEngineAdd, caller.String(), parent.String())
	defer span.End()

	if err := pathname.ValidateName(name); err != nil {
		return treefs.Nil, err
	}
	if err := e.authz.Check(ctx, caller, parent, treefs.ShareWrite); err != nil {
		return treefs.Nil, err
	}

	parentFile, err := e.store.GetFile(ctx, parent)
	if err != nil {
		return treefs.Nil, err
	}
	if parentFile.Type != treefs.Directory {
		return treefs.Nil, treefs.NewNotDirectoryError(parent.String())
	}

	id, tx, err := e.store.BeginAdd(ctx, parent, name, typ, caller)
	if err != nil {
		return treefs.Nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return treefs.Nil, err
	}

	logger.Debug("file added", "id", id.String(), "parent", parent.String(), "name", name, "type", typ.String())
	return id, nil
}

// Move relocates id to be named newName under newParent, requiring
// ShareWrite on both the old and new parent.
func (e *Engine) Move(ctx context.Context, caller treefs.UserID, id, newParent treefs.FileID, newName string) error {
	ctx, span := telemetry.StartEngineSpan(ctx, telemetry.SpanEngineMove, caller.String(), id.String())
	defer span.End()

	start := time.Now()
	err := e.move(ctx, caller, id, newParent, newName)
	telemetry.RecordError(ctx, err)
	e.metrics.ObserveOp(metrics.OpMove, opResult(err), time.Since(start))
	return err
}

func (e *Engine) move(ctx context.Context, caller treefs.UserID, id, newParent treefs.FileID, newName string) error {
	if err := pathname.ValidateName(newName); err != nil {
		return err
	}

	oldParentEdge, err := e.store.Parent(ctx, id)
	if err != nil {
		return err
	}
	if err := e.authz.Check(ctx, caller, oldParentEdge.AncestorID, treefs.ShareWrite); err != nil {
		return err
	}
	if err := e.authz.Check(ctx, caller, newParent, treefs.ShareWrite); err != nil {
		return err
	}

	newParentFile, err := e.store.GetFile(ctx, newParent)
	if err != nil {
		return err
	}
	if newParentFile.Type != treefs.Directory {
		return treefs.NewNotDirectoryError(newParent.String())
	}

	tx, err := e.store.BeginMove(ctx, id, newParent, newName)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	logger.Debug("file moved", "id", id.String(), "new_parent", newParent.String(), "new_name", newName)
	return nil
}

// Remove cascade-deletes id, requiring ShareWrite on its parent: every
// file transitively rooted at id is deleted, directory or not. Regular
// descendants have their blob content removed only after the metadata
// transaction commits, tolerating an orphaned blob on crash between the
// two (SPEC_FULL.md §6.4 / spec.md §9).
func (e *Engine) Remove(ctx context.Context, caller treefs.UserID, id treefs.FileID) error {
	ctx, span := telemetry.StartEngineSpan(ctx, telemetry.SpanEngineRemove, caller.String(), id.String())
	defer span.End()

	start := time.Now()
	err := e.remove(ctx, caller, id)
	telemetry.RecordError(ctx, err)
	e.metrics.ObserveOp(metrics.OpRemove, opResult(err), time.Since(start))
	return err
}

func (e *Engine) remove(ctx context.Context, caller treefs.UserID, id treefs.FileID) error {
	parentEdge, err := e.store.Parent(ctx, id)
	if err != nil {
		return err
	}
	if err := e.authz.Check(ctx, caller, parentEdge.AncestorID, treefs.ShareWrite); err != nil {
		return err
	}

	removed, tx, err := e.store.BeginRemove(ctx, id)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if e.blob != nil {
		for _, f := range removed {
			if f.Type != treefs.Regular {
				continue
			}
			if err := e.blob.RemoveContent(ctx, f.ID); err != nil {
				logger.Warn("blob content orphaned after remove", "id", f.ID.String(), "error", err)
			}
		}
	}

	logger.Debug("file removed", "id", id.String(), "descendants_removed", len(removed))
	return nil
}

// Share grants kind on id to grantee, requiring the caller already hold
// ShareShare on id.
func (e *Engine) Share(ctx context.Context, caller treefs.UserID, id treefs.FileID, grantee treefs.UserID, kind treefs.ShareKind) error {
	ctx, span := telemetry.StartEngineSpan(ctx, telemetry.SpanEngineShare, caller.String(), id.String())
	defer span.End()
	span.SetAttributes(telemetry.ShareKind(kind.String()))

	start := time.Now()
	err := e.share(ctx, caller, id, grantee, kind)
	telemetry.RecordError(ctx, err)
	e.metrics.ObserveOp(metrics.OpShare, opResult(err), time.Since(start))
	return err
}

func (e *Engine) share(ctx context.Context, caller treefs.UserID, id treefs.FileID, grantee treefs.UserID, kind treefs.ShareKind) error {
	if err := e.authz.Check(ctx, caller, id, treefs.ShareShare); err != nil {
		return err
	}

	tx, err := e.store.BeginShare(ctx, treefs.FileShare{
		FileID: id, UserID: grantee, Kind: kind, CreatedBy: caller,
	})
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	logger.Debug("share granted", "id", id.String(), "grantee", grantee.String(), "kind", kind.String())
	return nil
}

// Write streams content into the regular file id, opening the blob write
// only after confirming the caller holds ShareWrite and id is a regular
// file — the metadata side of a write has nothing to commit beyond this
// check, so the two-phase ordering only matters for Add-then-Write
// sequences at the caller's discretion.
func (e *Engine) Write(ctx context.Context, caller treefs.UserID, id treefs.FileID, content io.Reader) error {
	ctx, span := telemetry.StartBlobSpan(ctx, telemetry.SpanBlobWrite, id.String())
	defer span.End()

	start := time.Now()
	counted := &countingReader{r: content}
	err := e.write(ctx, caller, id, counted)
	span.SetAttributes(telemetry.Bytes(counted.n))
	telemetry.RecordError(ctx, err)
	e.metrics.AddBlobBytesWritten(counted.n)
	e.metrics.ObserveOp(metrics.OpWrite, opResult(err), time.Since(start))
	return err
}

func (e *Engine) write(ctx context.Context, caller treefs.UserID, id treefs.FileID, content io.Reader) error {
	if err := e.authz.Check(ctx, caller, id, treefs.ShareWrite); err != nil {
		return err
	}
	f, err := e.store.GetFile(ctx, id)
	if err != nil {
		return err
	}
	if f.Type != treefs.Regular {
		return treefs.NewIsDirectoryError(id.String())
	}
	if e.blob == nil {
		return treefs.NewIOError("no blob driver configured")
	}
	return e.blob.WriteContent(ctx, id, content, e.cfg.ChunkSize, e.cfg.MaxFileSize)
}

// ReadContent opens id's content stream, requiring ShareRead. The returned
// ReadCloser tallies bytes read against the blob byte-read counter as the
// caller consumes it.
func (e *Engine) ReadContent(ctx context.Context, caller treefs.UserID, id treefs.FileID) (io.ReadCloser, error) {
	ctx, span := telemetry.StartBlobSpan(ctx, telemetry.SpanBlobRead, id.String())
	defer span.End()

	rc, err := e.readContent(ctx, caller, id)
	telemetry.RecordError(ctx, err)
	return rc, err
}

func (e *Engine) readContent(ctx context.Context, caller treefs.UserID, id treefs.FileID) (io.ReadCloser, error) {
	if err := e.authz.Check(ctx, caller, id, treefs.ShareRead); err != nil {
		return nil, err
	}
	f, err := e.store.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if f.Type != treefs.Regular {
		return nil, treefs.NewIsDirectoryError(id.String())
	}
	if e.blob == nil {
		return nil, treefs.NewIOError("no blob driver configured")
	}
	rc, err := e.blob.ReadContent(ctx, id)
	if err != nil {
		return nil, err
	}
	return &countingReadCloser{rc: rc, m: e.metrics}, nil
}

// countingReader tallies bytes passed through Read, for write-side metrics.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// countingReadCloser tallies bytes passed through Read and reports them to
// m as they are consumed, for read-side metrics.
type countingReadCloser struct {
	rc io.ReadCloser
	m  *metrics.Metrics
}

func (c *countingReadCloser) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	c.m.AddBlobBytesRead(int64(n))
	return n, err
}

func (c *countingReadCloser) Close() error { return c.rc.Close() }
