package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/logger"
)

// FS reads resources from a file system on a background goroutine.
type FS struct {
	fsys fs.FS
	log  *zap.Logger
}

// NewFS returns a fetcher reading from fsys.
func NewFS(fsys fs.FS) *FS {
	return &FS{fsys: fsys, log: logger.Named("fetch")}
}

// NewDir returns a fetcher rooted at a host directory.
func NewDir(root string) *FS {
	return NewFS(os.DirFS(root))
}

// Fetch implements Fetcher.
func (f *FS) Fetch(ctx context.Context, uri string, deliver func(Result)) {
	if IsDataURI(uri) {
		data, _, err := DecodeDataURI(uri)
		deliver(Result{URI: uri, Data: data, Err: err})
		return
	}

	name := path.Clean(strings.TrimPrefix(uri, "/"))
	go func() {
		if err := ctx.Err(); err != nil {
			deliver(Result{URI: uri, Err: err})
			return
		}
		data, err := fs.ReadFile(f.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrNotFound, uri)
		}
		if err != nil {
			f.log.Debug("fetch failed", zap.String("uri", uri), zap.Error(err))
		}
		deliver(Result{URI: uri, Data: data, Err: err})
	}()
}
