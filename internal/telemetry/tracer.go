package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for Tree Engine and Closure Store spans.
const (
	AttrFileID    = "treefs.file_id"
	AttrPath      = "treefs.path"
	AttrCaller    = "treefs.caller"
	AttrShareKind = "treefs.share_kind"
	AttrBytes     = "treefs.bytes"
	AttrStoreName = "treefs.store"
)

// Span names for the engine's suspension points.
const (
	SpanEngineResolve = "engine.resolve"
	SpanEngineRead    = "engine.read"
	SpanEngineAdd     = "engine.add"
	SpanEngineMove    = "engine.move"
	SpanEngineRemove  = "engine.remove"
	SpanEngineShare   = "engine.share"
	SpanBlobWrite     = "blob.write"
	SpanBlobRead      = "blob.read"
	SpanStoreQuery    = "store.query"
)

// FileID returns an attribute identifying a file.
func FileID(id string) attribute.KeyValue { return attribute.String(AttrFileID, id) }

// Path returns an attribute for a resolved path.
func Path(path string) attribute.KeyValue { return attribute.String(AttrPath, path) }

// Caller returns an attribute identifying the user performing an
// operation.
func Caller(id string) attribute.KeyValue { return attribute.String(AttrCaller, id) }

// ShareKind returns an attribute for the share kind involved in an
// operation.
func ShareKind(kind string) attribute.KeyValue { return attribute.String(AttrShareKind, kind) }

// Bytes returns an attribute for a byte count moved through the blob
// driver.
func Bytes(n int64) attribute.KeyValue { return attribute.Int64(AttrBytes, n) }

// StoreName returns an attribute naming the Closure Store backend in use.
func StoreName(name string) attribute.KeyValue { return attribute.String(AttrStoreName, name) }

// StartEngineSpan starts a span for a Tree Engine operation, tagging it
// with the caller and the target file id.
func StartEngineSpan(ctx context.Context, name string, caller, id string) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithAttributes(Caller(caller), FileID(id)))
}

// StartBlobSpan starts a span for a Blob Driver I/O operation.
func StartBlobSpan(ctx context.Context, name string, id string) (context.Context, trace.Span) {
	return StartSpan(ctx, name, trace.WithAttributes(FileID(id)))
}

// StartStoreSpan starts a span for a Closure Store query.
func StartStoreSpan(ctx context.Context, store string, id string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanStoreQuery, trace.WithAttributes(StoreName(store), FileID(id)))
}
