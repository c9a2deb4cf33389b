// Package fsblob is the reference filesystem Blob Driver: content is
// stored as one file per FileID under a base directory, written to a
// ".incomplete" sibling and installed by atomic rename, grounded on the
// teacher's filesystem block store (pkg/payload/store/fs), adapted from
// block-keyed writes to the chunked single-file write_regular_content
// contract.
package fsblob

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/yamafs/treefs/internal/logger"
	"github.com/yamafs/treefs/pkg/treefs"
)

// Driver is a filesystem-backed blob.Driver.
type Driver struct {
	mu      sync.RWMutex
	baseDir string
	closed  bool
}

// Config configures a filesystem Driver.
type Config struct {
	BaseDir   string
	CreateDir bool
	DirMode   os.FileMode
	FileMode  os.FileMode
}

// DefaultConfig returns sane defaults for baseDir.
func DefaultConfig(baseDir string) Config {
	return Config{BaseDir: baseDir, CreateDir: true, DirMode: 0o755, FileMode: 0o644}
}

// New creates a filesystem Driver rooted at cfg.BaseDir.
func New(cfg Config) (*Driver, error) {
	if cfg.BaseDir == "" {
		return nil, errors.New("fsblob: base dir is required")
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0o755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o644
	}
	if cfg.CreateDir {
		if err := os.MkdirAll(cfg.BaseDir, cfg.DirMode); err != nil {
			return nil, err
		}
	}
	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("fsblob: base dir is not a directory")
	}
	return &Driver{baseDir: cfg.BaseDir}, nil
}

func (d *Driver) contentPath(id treefs.FileID) string {
	return filepath.Join(d.baseDir, id.String())
}

// ReadContent opens id's content file for streaming reads.
func (d *Driver) ReadContent(_ context.Context, id treefs.FileID) (io.ReadCloser, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	f, err := os.Open(d.contentPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, treefs.NewBlobNotFoundError(id.String())
		}
		return nil, treefs.NewBlobIOError(id.String(), err.Error())
	}
	return f, nil
}

// WriteContent streams r in chunkSize pieces into a ".incomplete" sibling
// of id's content path, then installs it by atomic rename only once r is
// fully drained without exceeding maxFileSize; on any error the
// ".incomplete" sibling is removed and id's existing content (if any) is
// left untouched.
func (d *Driver) WriteContent(ctx context.Context, id treefs.FileID, r io.Reader, chunkSize, maxFileSize int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if chunkSize <= 0 {
		chunkSize = 1 << 20
	}

	path := d.contentPath(id)
	tmpPath := path + ".incomplete"

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return treefs.NewBlobIOError(id.String(), err.Error())
	}

	var written int64
	buf := make([]byte, chunkSize)
	failed := func(e error) error {
		f.Close()
		os.Remove(tmpPath)
		return e
	}

	for {
		if err := ctx.Err(); err != nil {
			return failed(treefs.NewBlobIOError(id.String(), err.Error()))
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			written += int64(n)
			if maxFileSize > 0 && written > maxFileSize {
				return failed(treefs.NewBlobTooLargeError(id.String()))
			}
			if _, werr := f.Write(buf[:n]); werr != nil {
				return failed(treefs.NewBlobIOError(id.String(), werr.Error()))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return failed(treefs.NewBlobIOError(id.String(), rerr.Error()))
		}
	}

	if err := f.Sync(); err != nil {
		return failed(treefs.NewBlobIOError(id.String(), err.Error()))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return treefs.NewBlobIOError(id.String(), err.Error())
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return treefs.NewBlobIOError(id.String(), err.Error())
	}

	logger.Debug("blob content installed", "id", id.String(), "bytes", written)
	return nil
}

// RemoveContent deletes id's content file; absence is not an error, so a
// background reaper may retry a delete that already landed.
func (d *Driver) RemoveContent(_ context.Context, id treefs.FileID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.contentPath(id)); err != nil && !os.IsNotExist(err) {
		return treefs.NewBlobIOError(id.String(), err.Error())
	}
	return nil
}
