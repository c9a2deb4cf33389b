// Package blob defines the Blob Driver contract: the pluggable streaming
// content store beneath regular files. The Tree Engine depends only on
// this interface; fsblob and s3blob are its two reference backends.
package blob

import (
	"context"
	"io"

	"github.com/yamafs/treefs/pkg/treefs"
)

// Driver is the capability contract of SPEC_FULL.md §6.5 /
// spec.md §4.5: read, chunked bounded write with atomic install, and
// remove of a regular file's content, keyed by FileID.
type Driver interface {
	// ReadContent opens a stream over id's full content. Returns
	// *treefs.Error{Code: ErrBlobNotFound} if no content has been written.
	ReadContent(ctx context.Context, id treefs.FileID) (io.ReadCloser, error)

	// WriteContent consumes content from r and installs it atomically as
	// id's content, writing at most chunkSize bytes per underlying I/O
	// operation (s3blob raises chunkSize to S3's 5 MiB minimum part size)
	// and refusing (with *treefs.Error{Code: ErrBlobTooLarge})
	// to install more than maxFileSize bytes total. On any failure no
	// partial content becomes visible to ReadContent.
	WriteContent(ctx context.Context, id treefs.FileID, r io.Reader, chunkSize, maxFileSize int64) error

	// RemoveContent deletes id's content, if any. Removing content that
	// doesn't exist is not an error (idempotent, to tolerate a prior
	// partial delete being retried by a background reaper).
	RemoveContent(ctx context.Context, id treefs.FileID) error
}
