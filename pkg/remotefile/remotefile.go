// Package remotefile presents random-access file semantics over a content
// repository that only supports whole-object fetch and replace. Content is
// materialized lazily into a local staging copy; byte I/O goes to that copy
// and Flush pushes the whole object back.
package remotefile

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/toyang/node-smb-server/internal/logging"
	"github.com/toyang/node-smb-server/internal/metrics"
	"github.com/toyang/node-smb-server/pkg/dam"
)

// Handle is the file contract this package implements. The SMB front-end
// consumes it; tests may substitute their own implementation.
type Handle interface {
	IsFile() bool
	IsDirectory() bool
	IsReadOnly() bool
	Size() int64
	AllocationSize() int64
	Created() time.Time
	LastModified() time.Time
	SetLastModified(t time.Time)
	LastAccessed() time.Time
	LastChanged() time.Time
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	WriteAt(ctx context.Context, p []byte, off int64) (int, error)
	SetLength(ctx context.Context, size int64) error
	Flush(ctx context.Context) error
	Delete(ctx context.Context) error
	Close() error
}

// File is a handle on one remote repository object. The path is fixed at
// construction. A File owns its staging copy exclusively; the endpoint
// descriptor behind the client is shared and read-only.
//
// Sequential calls from a single caller are ordered; the File performs no
// serialization of concurrent callers beyond the fetch-once guarantee of
// its staging copy.
type File struct {
	path   string
	client *dam.Client

	mu      sync.Mutex
	info    NodeInfo
	size    int64
	staging *staging
}

var _ Handle = (*File)(nil)

// New constructs a handle from already looked-up node metadata.
func New(client *dam.Client, repoPath string, info NodeInfo, stagingDir string) *File {
	f := &File{
		path:    repoPath,
		client:  client,
		info:    info,
		staging: newStaging(client, repoPath, stagingDir),
	}
	if info.Content != nil {
		f.size = info.Content.Size
	}
	return f
}

// Path returns the repository path of the handle.
func (f *File) Path() string {
	return f.path
}

// Kind returns the handle's classification.
func (f *File) Kind() Kind {
	return Classify(f.info.PrimaryType)
}

// IsFile reports whether the handle is file-typed.
func (f *File) IsFile() bool {
	return f.Kind() == KindFile
}

// IsDirectory reports whether the handle is directory-typed.
func (f *File) IsDirectory() bool {
	return f.Kind() == KindDirectory
}

// IsReadOnly always reports false. Repository ACLs are not consulted.
func (f *File) IsReadOnly() bool {
	return false
}

// Size returns the last known byte length for files, 0 for directories.
func (f *File) Size() int64 {
	if !f.IsFile() {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.size
}

// AllocationSize equals Size for files, 0 for directories.
func (f *File) AllocationSize() int64 {
	return f.Size()
}

// Created returns the node's creation timestamp.
func (f *File) Created() time.Time {
	return f.info.Created
}

// LastModified returns the content record's timestamp for files. Non-files
// fall back to the creation timestamp.
func (f *File) LastModified() time.Time {
	if !f.IsFile() {
		return f.info.Created
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.info.Content == nil {
		return f.info.Created
	}
	return f.info.Content.LastModified
}

// SetLastModified updates the in-memory content timestamp of a file-typed
// handle. The remote store is not contacted; the value is persisted only
// indirectly, when a later Flush re-derives it from the staged copy.
func (f *File) SetLastModified(t time.Time) {
	if !f.IsFile() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.info.Content == nil {
		f.info.Content = &ContentInfo{}
	}
	f.info.Content.LastModified = t
}

// LastAccessed is aliased to LastModified; the repository does not track
// access times.
func (f *File) LastAccessed() time.Time {
	return f.LastModified()
}

// LastChanged is aliased to Created.
func (f *File) LastChanged() time.Time {
	return f.info.Created
}

// ReadAt reads up to len(p) bytes at off from the staged copy, materializing
// it first if needed. Fewer bytes than requested may be returned at end of
// object; in that case err is nil unless nothing was read.
func (f *File) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	d, err := f.staging.ensure(ctx)
	if err != nil {
		return 0, err
	}
	n, err := d.ReadAt(p, off)
	if errors.Is(err, io.EOF) && n > 0 {
		return n, nil
	}
	return n, err
}

// WriteAt writes len(p) bytes at off into the staged copy, materializing it
// first if needed. Growth beyond the current length is handled by the
// delegate.
func (f *File) WriteAt(ctx context.Context, p []byte, off int64) (int, error) {
	d, err := f.staging.ensure(ctx)
	if err != nil {
		return 0, err
	}
	return d.WriteAt(p, off)
}

// SetLength truncates or extends the staged copy. The copy is materialized
// even for a zero-length truncate; the staged file is what a later Flush
// pushes, so it must exist.
func (f *File) SetLength(ctx context.Context, size int64) error {
	d, err := f.staging.ensure(ctx)
	if err != nil {
		return err
	}
	return d.Truncate(size)
}

// Flush pushes the staged copy back to the repository. With nothing staged
// it succeeds without network activity. The repository has no partial
// update, so the push is delete-then-create: the object is briefly absent
// remotely. The delete's outcome is logged but not acted on, since the
// object may legitimately not exist yet.
//
// On success the handle's length and last-modified timestamp are refreshed
// from the staged file.
func (f *File) Flush(ctx context.Context) error {
	d := f.staging.current()
	if d == nil {
		metrics.Flush("noop")
		return nil
	}

	if !f.client.Endpoint().InAssetTree(f.path) {
		metrics.Flush("error")
		return dam.ErrNotSupported
	}

	if err := f.client.DeleteAsset(ctx, f.path); err != nil {
		logging.Warn("pre-flush delete failed, continuing with create",
			zap.String("path", f.path),
			zap.Error(err))
	}

	fi, err := d.Stat()
	if err != nil {
		metrics.Flush("error")
		return &localIOError{op: "stat staged copy", path: f.path, err: err}
	}

	src, err := os.Open(d.Path())
	if err != nil {
		metrics.Flush("error")
		return &localIOError{op: "open staged copy", path: f.path, err: err}
	}
	err = f.client.CreateAsset(ctx, f.path, src, fi.Size())
	src.Close()
	if err != nil {
		metrics.Flush("error")
		return err
	}

	// Re-stat after the upload so the refreshed metadata matches what was
	// actually pushed.
	fi, err = d.Stat()
	if err != nil {
		metrics.Flush("error")
		return &localIOError{op: "stat staged copy", path: f.path, err: err}
	}

	f.mu.Lock()
	f.size = fi.Size()
	if f.info.Content == nil {
		f.info.Content = &ContentInfo{}
	}
	f.info.Content.LastModified = fi.ModTime()
	f.info.Content.Size = fi.Size()
	f.mu.Unlock()

	metrics.Flush("ok")
	logging.Info("flushed remote file",
		zap.String("path", f.path),
		zap.Int64("size", fi.Size()))
	return nil
}

// Delete removes the remote object. On success the staging copy is
// destroyed and the handle is closed; on failure the staging copy is left
// intact and the handle stays usable.
func (f *File) Delete(ctx context.Context) error {
	if !f.client.Endpoint().InAssetTree(f.path) {
		return dam.ErrNotSupported
	}

	if err := f.client.DeleteAsset(ctx, f.path); err != nil {
		return err
	}

	if err := f.staging.destroy(); err != nil {
		logging.Warn("staging copy cleanup failed after delete",
			zap.String("path", f.path),
			zap.Error(err))
	}
	return nil
}

// Close discards the staging copy, if any. Idempotent. Close does not
// flush: unflushed writes are lost.
func (f *File) Close() error {
	return f.staging.destroy()
}

// localIOError wraps a local filesystem failure behind one of the handle
// operations.
type localIOError struct {
	op   string
	path string
	err  error
}

func (e *localIOError) Error() string {
	return "remotefile: " + e.op + " for " + e.path + ": " + e.err.Error()
}

func (e *localIOError) Unwrap() error {
	return e.err
}
