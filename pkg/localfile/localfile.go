// Package localfile provides the byte-addressable local file delegate that
// staging copies are built on.
package localfile

import (
	"fmt"
	"os"
)

// Delegate is the contract a staging copy delegates byte I/O to. The
// standard implementation is File; tests and embedders may supply their own.
type Delegate interface {
	// ReadAt reads up to len(p) bytes starting at off. Fewer bytes than
	// requested may be returned at end of file.
	ReadAt(p []byte, off int64) (int, error)

	// WriteAt writes len(p) bytes starting at off, growing the file as
	// needed.
	WriteAt(p []byte, off int64) (int, error)

	// Truncate changes the file size.
	Truncate(size int64) error

	// Stat returns current file metadata.
	Stat() (os.FileInfo, error)

	// Path returns the backing file's path on disk.
	Path() string

	// Remove closes the delegate and deletes its backing file.
	Remove() error
}

// File is the OS-backed Delegate.
type File struct {
	f    *os.File
	path string
}

var _ Delegate = (*File)(nil)

// Open opens an existing file as a delegate.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open staging file: %w", err)
	}
	return &File{f: f, path: path}, nil
}

// Wrap adopts an already open file. The delegate takes ownership.
func Wrap(f *os.File) *File {
	return &File{f: f, path: f.Name()}
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.f.ReadAt(p, off)
}

func (f *File) WriteAt(p []byte, off int64) (int, error) {
	return f.f.WriteAt(p, off)
}

func (f *File) Truncate(size int64) error {
	return f.f.Truncate(size)
}

func (f *File) Stat() (os.FileInfo, error) {
	return f.f.Stat()
}

func (f *File) Path() string {
	return f.path
}

// Remove closes the file and unlinks it from disk.
func (f *File) Remove() error {
	f.f.Close()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staging file: %w", err)
	}
	return nil
}
