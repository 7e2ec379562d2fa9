package shadergen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/logger"
)

// Watcher reloads a custom shader from files whenever they change.
type Watcher struct {
	shader       *CustomShader
	vertexPath   string
	fragmentPath string
	fsw          *fsnotify.Watcher
	log          *zap.Logger
}

// NewWatcher loads the files into shader and starts watching their
// directories. Either path may be empty.
func NewWatcher(shader *CustomShader, vertexPath, fragmentPath string) (*Watcher, error) {
	w := &Watcher{
		shader: shader,
		log:    logger.Named("shadergen"),
	}
	if vertexPath != "" {
		w.vertexPath = filepath.Clean(vertexPath)
	}
	if fragmentPath != "" {
		w.fragmentPath = filepath.Clean(fragmentPath)
	}
	if err := w.Reload(); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("shadergen: watcher: %w", err)
	}
	dirs := map[string]bool{}
	for _, p := range []string{w.vertexPath, w.fragmentPath} {
		if p != "" {
			dirs[filepath.Dir(p)] = true
		}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("shadergen: watch %s: %w", dir, err)
		}
	}
	w.fsw = fsw
	return w, nil
}

// Reload reads both files into the shader.
func (w *Watcher) Reload() error {
	if w.vertexPath != "" {
		src, err := os.ReadFile(w.vertexPath)
		if err != nil {
			return fmt.Errorf("shadergen: read vertex shader: %w", err)
		}
		if string(src) != w.shader.VertexShader() {
			w.shader.SetVertexShader(string(src))
		}
	}
	if w.fragmentPath != "" {
		src, err := os.ReadFile(w.fragmentPath)
		if err != nil {
			return fmt.Errorf("shadergen: read fragment shader: %w", err)
		}
		if string(src) != w.shader.FragmentShader() {
			w.shader.SetFragmentShader(string(src))
		}
	}
	return nil
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Clean(e.Name)
			if name != w.vertexPath && name != w.fragmentPath {
				continue
			}
			if err := w.Reload(); err != nil {
				w.log.Warn("custom shader reload failed", zap.String("file", name), zap.Error(err))
				continue
			}
			w.log.Debug("custom shader reloaded",
				zap.String("key", w.shader.Key()),
				zap.Uint64("revision", w.shader.Revision()))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("custom shader watcher error", zap.Error(err))
		}
	}
}
