package localfile

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestFile(t *testing.T, content string) *File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "staged")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	f, err := Open(path)
	require.NoError(t, err)
	return f
}

func TestReadWriteAt(t *testing.T) {
	f := newTestFile(t, "hello world")
	defer f.Remove()

	buf := make([]byte, 5)
	n, err := f.ReadAt(buf, 6)
	require.NoError(t, err)
	require.Equal(t, "world", string(buf[:n]))

	_, err = f.WriteAt([]byte("WORLD"), 6)
	require.NoError(t, err)

	n, err = f.ReadAt(buf, 6)
	require.NoError(t, err)
	require.Equal(t, "WORLD", string(buf[:n]))
}

func TestWriteAt_GrowsFile(t *testing.T) {
	f := newTestFile(t, "ab")
	defer f.Remove()

	_, err := f.WriteAt([]byte("z"), 9)
	require.NoError(t, err)

	fi, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(10), fi.Size())
}

func TestReadAt_ShortReadAtEOF(t *testing.T) {
	f := newTestFile(t, "abc")
	defer f.Remove()

	buf := make([]byte, 10)
	n, err := f.ReadAt(buf, 0)
	require.Equal(t, 3, n)
	require.ErrorIs(t, err, io.EOF)
}

func TestTruncate(t *testing.T) {
	f := newTestFile(t, "hello world")
	defer f.Remove()

	require.NoError(t, f.Truncate(5))
	fi, err := f.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(5), fi.Size())

	require.NoError(t, f.Truncate(0))
	fi, err = f.Stat()
	require.NoError(t, err)
	require.Zero(t, fi.Size())
}

func TestRemove(t *testing.T) {
	f := newTestFile(t, "x")
	path := f.Path()

	require.NoError(t, f.Remove())
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// second remove of an already-gone file is not an error
	require.NoError(t, f.Remove())
}
