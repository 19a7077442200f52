// damfs - command line client for the remote content repository.
//
// Sub-commands:
//
//	damfs stat <path>              Show node metadata
//	damfs cat <path>               Write object content to stdout
//	damfs put <local-file> <path>  Upload a local file as an asset
//	damfs rm <path>                Delete an asset
//	damfs prefetch <dir> <path>... Download objects into a local directory
//
// Configuration comes from DAM_* environment variables (see internal/config).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/toyang/node-smb-server/internal/config"
	"github.com/toyang/node-smb-server/internal/logging"
	"github.com/toyang/node-smb-server/internal/metrics"
	"github.com/toyang/node-smb-server/pkg/dam"
	"github.com/toyang/node-smb-server/pkg/remotefile"
	"github.com/toyang/node-smb-server/pkg/retry"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logging.Sync()

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logging.Error("metrics listener failed", zap.Error(err))
			}
		}()
	}

	client := dam.NewClient(dam.Config{
		Endpoint: &dam.Endpoint{
			Host:      cfg.RepositoryHost,
			Port:      cfg.RepositoryPort,
			Secure:    cfg.RepositoryTLS,
			BasePath:  cfg.ContentPath,
			AssetAPI:  cfg.AssetAPIPath,
			AssetRoot: cfg.AssetRoot,
			Username:  cfg.Username,
			Password:  cfg.Password,
		},
		Timeout: cfg.RequestTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: cfg, client: client, retry: retry.DefaultConfig()}

	switch os.Args[1] {
	case "stat":
		err = a.cmdStat(ctx, os.Args[2:])
	case "cat":
		err = a.cmdCat(ctx, os.Args[2:])
	case "put":
		err = a.cmdPut(ctx, os.Args[2:])
	case "rm":
		err = a.cmdRm(ctx, os.Args[2:])
	case "prefetch":
		err = a.cmdPrefetch(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logging.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: damfs <command> [args]

commands:
  stat <path>               show node metadata
  cat <path>                write object content to stdout
  put <local-file> <path>   upload a local file as an asset
  rm <path>                 delete an asset
  prefetch <dir> <path>...  download objects into a local directory`)
}

type app struct {
	cfg    *config.Config
	client *dam.Client
	retry  retry.Config
}

// open looks up node metadata and builds a handle, retrying transient
// repository failures.
func (a *app) open(ctx context.Context, repoPath string) (*remotefile.File, error) {
	return retry.DoWithResult(ctx, a.retry, func() (*remotefile.File, error) {
		f, err := remotefile.Stat(ctx, a.client, repoPath, a.cfg.StagingDir)
		if err != nil && dam.IsRetryable(err) {
			return nil, retry.Retryable(err)
		}
		return f, err
	})
}

func (a *app) cmdStat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stat", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("stat: exactly one path required")
	}

	f, err := a.open(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	kind := "other"
	switch {
	case f.IsFile():
		kind = "file"
	case f.IsDirectory():
		kind = "directory"
	}

	fmt.Printf("path:     %s\n", f.Path())
	fmt.Printf("kind:     %s\n", kind)
	fmt.Printf("size:     %d\n", f.Size())
	fmt.Printf("created:  %s\n", f.Created())
	fmt.Printf("modified: %s\n", f.LastModified())
	return nil
}

func (a *app) cmdCat(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("cat: exactly one path required")
	}

	f, err := a.open(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	if !f.IsFile() {
		return fmt.Errorf("cat: %s is not a file", f.Path())
	}

	return copyContent(ctx, os.Stdout, f)
}

func (a *app) cmdPut(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 2 {
		return errors.New("put: local file and repository path required")
	}
	local, repoPath := fs.Arg(0), fs.Arg(1)

	src, err := os.Open(local)
	if err != nil {
		return err
	}
	defer src.Close()

	f, err := a.open(ctx, repoPath)
	if err != nil {
		// A missing node cannot be materialized; create an empty asset
		// first, then reopen.
		var se *dam.StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
			return err
		}
		if err := a.client.CreateAsset(ctx, repoPath, nil, 0); err != nil {
			return err
		}
		if f, err = a.open(ctx, repoPath); err != nil {
			return err
		}
	}
	defer f.Close()

	var off int64
	buf := make([]byte, 64*1024)
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := f.WriteAt(ctx, buf[:n], off); werr != nil {
				return werr
			}
			off += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	if err := f.SetLength(ctx, off); err != nil {
		return err
	}

	if err := retry.Do(ctx, a.retry, func() error {
		err := f.Flush(ctx)
		if err != nil && dam.IsRetryable(err) {
			return retry.Retryable(err)
		}
		return err
	}); err != nil {
		return err
	}

	fmt.Printf("uploaded %s (%d bytes)\n", repoPath, f.Size())
	return nil
}

func (a *app) cmdRm(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("rm: exactly one path required")
	}

	f, err := a.open(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	return retry.Do(ctx, a.retry, func() error {
		err := f.Delete(ctx)
		if err != nil && dam.IsRetryable(err) {
			return retry.Retryable(err)
		}
		return err
	})
}

func (a *app) cmdPrefetch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("prefetch", flag.ExitOnError)
	concurrency := fs.Int("j", 4, "maximum parallel downloads")
	fs.Parse(args)
	if fs.NArg() < 2 {
		return errors.New("prefetch: destination dir and at least one path required")
	}
	dest := fs.Arg(0)

	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*concurrency)

	for _, repoPath := range fs.Args()[1:] {
		repoPath := repoPath
		g.Go(func() error {
			f, err := a.open(gctx, repoPath)
			if err != nil {
				return fmt.Errorf("prefetch %s: %w", repoPath, err)
			}
			defer f.Close()

			out, err := os.Create(filepath.Join(dest, path.Base(repoPath)))
			if err != nil {
				return err
			}
			defer out.Close()

			if err := copyContent(gctx, out, f); err != nil {
				return fmt.Errorf("prefetch %s: %w", repoPath, err)
			}
			logging.Info("prefetched", zap.String("path", repoPath), zap.Int64("size", f.Size()))
			return nil
		})
	}

	return g.Wait()
}

// copyContent streams a remote file's bytes to w through the handle's
// byte-range reads.
func copyContent(ctx context.Context, w io.Writer, f *remotefile.File) error {
	var off int64
	buf := make([]byte, 64*1024)
	for {
		n, err := f.ReadAt(ctx, buf, off)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			off += int64(n)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
	}
}
