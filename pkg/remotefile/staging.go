package remotefile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/toyang/node-smb-server/internal/logging"
	"github.com/toyang/node-smb-server/internal/metrics"
	"github.com/toyang/node-smb-server/pkg/dam"
	"github.com/toyang/node-smb-server/pkg/localfile"
)

// ErrClosed is returned for I/O on a handle whose staging copy has been
// destroyed. A destroyed copy is never recreated.
var ErrClosed = errors.New("remotefile: handle is closed")

// staging owns the lazy materialization of one remote object into a local
// staging copy. The first ensure call fetches; later calls return the cached
// delegate. Concurrent first calls share a single fetch, and a failed fetch
// is not memoized, so the next call retries from scratch.
type staging struct {
	client *dam.Client
	path   string
	dir    string

	group singleflight.Group

	mu       sync.Mutex
	delegate localfile.Delegate
	closed   bool
}

func newStaging(client *dam.Client, repoPath, dir string) *staging {
	if dir == "" {
		dir = os.TempDir()
	}
	return &staging{client: client, path: repoPath, dir: dir}
}

// ensure returns the staging delegate, fetching the remote object on first
// use.
func (s *staging) ensure(ctx context.Context) (localfile.Delegate, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.delegate != nil {
		d := s.delegate
		s.mu.Unlock()
		return d, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do("fetch", func() (interface{}, error) {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, ErrClosed
		}
		if s.delegate != nil {
			d := s.delegate
			s.mu.Unlock()
			return d, nil
		}
		s.mu.Unlock()

		d, err := s.fetch(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			d.Remove()
			return nil, ErrClosed
		}
		s.delegate = d
		s.mu.Unlock()
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(localfile.Delegate), nil
}

// fetch streams the remote object into a fresh temp file. On any failure the
// partial file is removed so a later attempt starts clean.
func (s *staging) fetch(ctx context.Context) (localfile.Delegate, error) {
	start := time.Now()

	tmp, err := os.CreateTemp(s.dir, "damfs-"+tempName(s.path)+"-*")
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}

	body, _, err := s.client.Get(ctx, s.path)
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, err
	}

	written, err := io.Copy(tmp, body)
	body.Close()
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, &dam.TransportError{Method: "GET", Path: s.path, Err: err}
	}

	if _, err := tmp.Stat(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("stat staging file: %w", err)
	}

	metrics.AddBytesDownloaded(written)
	metrics.ObserveFetchDuration(time.Since(start).Seconds())
	metrics.StagedFileCreated()
	logging.Debug("staged remote object",
		zap.String("path", s.path),
		zap.Int64("size", written),
		zap.Duration("duration", time.Since(start)))

	return localfile.Wrap(tmp), nil
}

// current returns the delegate if materialized, without fetching.
func (s *staging) current() localfile.Delegate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delegate
}

// destroy removes the staging copy and permanently closes the staging.
// Safe to call more than once.
func (s *staging) destroy() error {
	s.mu.Lock()
	d := s.delegate
	s.delegate = nil
	s.closed = true
	s.mu.Unlock()

	if d == nil {
		return nil
	}

	metrics.StagedFileRemoved()
	if err := d.Remove(); err != nil {
		return fmt.Errorf("remotefile: discard staging copy: %w", err)
	}
	return nil
}

// tempName derives a diagnosable temp file fragment from a repository path.
func tempName(repoPath string) string {
	name := path.Base(repoPath)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '*', '?':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." {
		return "object"
	}
	return name
}
