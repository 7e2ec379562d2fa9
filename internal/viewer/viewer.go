// Package viewer runs the interactive model viewer loop.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/veandco/go-sdl2/sdl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/animation"
	"github.com/Faultbox/midgard-gltf/internal/config"
	"github.com/Faultbox/midgard-gltf/internal/drawcmd"
	"github.com/Faultbox/midgard-gltf/internal/fetch"
	"github.com/Faultbox/midgard-gltf/internal/gfx/glbackend"
	"github.com/Faultbox/midgard-gltf/internal/jobs"
	"github.com/Faultbox/midgard-gltf/internal/logger"
	"github.com/Faultbox/midgard-gltf/internal/model"
	"github.com/Faultbox/midgard-gltf/internal/rescache"
	"github.com/Faultbox/midgard-gltf/internal/shadergen"
	"github.com/Faultbox/midgard-gltf/internal/window"
)

var background = [4]float32{0.12, 0.12, 0.14, 1}

// Viewer shows one glTF model in a window.
type Viewer struct {
	cfg *config.Config
	log *zap.Logger

	window    *window.Window
	gl        *glbackend.Context
	submitter *glbackend.Submitter
	input     *window.Input
	camera    *window.OrbitCamera
	sched     *jobs.Scheduler

	model  *model.Model
	cmds   []*drawcmd.DrawCommand
	fitted bool
	frame  uint64

	// cancel stops the shader watcher and pending fetches.
	cancel context.CancelFunc
	done   chan struct{}

	running bool
}

// New opens the window and starts loading path.
func New(cfg *config.Config, path string) (*Viewer, error) {
	v := &Viewer{
		cfg:    cfg,
		log:    logger.Named("viewer"),
		input:  window.NewInput(),
		camera: window.NewOrbitCamera(),
		sched:  jobs.NewScheduler(cfg.Scheduler.Budget()),
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	root := filepath.Dir(abs)
	if cfg.Loader.AssetRoot != "" {
		if root, err = filepath.Abs(cfg.Loader.AssetRoot); err != nil {
			return nil, err
		}
	}
	uri, err := filepath.Rel(root, abs)
	if err != nil || !filepath.IsLocal(uri) {
		return nil, fmt.Errorf("%s is outside the asset root %s", path, root)
	}

	v.window, err = window.New(cfg.Window, cfg.Render.Stencil)
	if err != nil {
		return nil, fmt.Errorf("failed to create window: %w", err)
	}

	// GL objects need the window's context
	width, height := v.window.Size()
	v.gl, err = glbackend.New(width, height)
	if err != nil {
		v.window.Close()
		return nil, fmt.Errorf("failed to create GL context: %w", err)
	}
	v.submitter = glbackend.NewSubmitter(v.gl)

	ctx, cancel := context.WithCancel(context.Background())
	v.cancel = cancel

	opts := model.OptionsFromConfig(cfg)
	opts.ID = uuid.NewString()
	opts.OnComplete = func(err error) {
		if err != nil {
			v.log.Error("model failed", zap.String("uri", uri), zap.Error(err))
			return
		}
		v.log.Info("model loaded", zap.String("uri", uri), zap.Uint64("frame", v.frame))
	}
	if cfg.Render.VertexShader != "" || cfg.Render.FragmentShader != "" {
		if err := v.watchShaders(ctx, &opts); err != nil {
			v.Close()
			return nil, err
		}
	}
	var cache *rescache.Cache
	if cfg.Loader.Cache {
		cache = rescache.New()
		opts.CacheKey = abs
	}

	v.model = model.New(model.Source{URI: filepath.ToSlash(uri)}, opts, cache, fetch.NewDir(root))
	v.log.Info("viewer initialized",
		zap.String("root", root),
		zap.String("uri", uri),
		zap.Bool("async", opts.Asynchronous))
	return v, nil
}

// watchShaders registers the configured custom shader and reloads it when
// its files change.
func (v *Viewer) watchShaders(ctx context.Context, opts *model.Options) error {
	registry := shadergen.NewRegistry()
	key := "viewer"
	shader := registry.Register(shadergen.NewCustomShader(shadergen.CustomShaderOptions{Key: key}))
	w, err := shadergen.NewWatcher(shader, v.cfg.Render.VertexShader, v.cfg.Render.FragmentShader)
	if err != nil {
		return fmt.Errorf("custom shader: %w", err)
	}
	opts.AssetKey = key
	opts.CustomShaders = registry

	v.done = make(chan struct{})
	go func() {
		defer close(v.done)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			v.log.Warn("shader watcher stopped", zap.Error(err))
		}
	}()
	return nil
}

// Run drives the frame loop until the window closes.
func (v *Viewer) Run() error {
	v.running = true

	lastTime := time.Now()
	frameCount := 0
	fpsTimer := time.Now()

	v.log.Info("starting viewer loop")

	for v.running {
		now := time.Now()
		dt := now.Sub(lastTime).Seconds()
		lastTime = now

		if v.input.Poll() {
			v.running = false
			break
		}
		for _, event := range v.input.Events() {
			v.handle(event)
		}

		if err := v.update(); err != nil {
			v.log.Error("update error", zap.Error(err))
		}
		v.render()
		v.window.SwapBuffers()

		frameCount++
		if time.Since(fpsTimer) >= time.Second {
			v.log.Debug("fps",
				zap.Int("count", frameCount),
				zap.String("dt", fmt.Sprintf("%.2fms", dt*1000)),
				zap.Int("commands", len(v.cmds)))
			frameCount = 0
			fpsTimer = time.Now()
		}
	}
	return nil
}

func (v *Viewer) handle(e window.Event) {
	switch e.Type {
	case window.EventResize:
		width, height := v.window.Size()
		v.gl.Resize(width, height)
	case window.EventDrag:
		v.camera.HandleDrag(e.DX, e.DY)
	case window.EventWheel:
		v.camera.HandleZoom(e.DY)
	case window.EventKeyDown:
		switch e.Key {
		case sdl.K_w:
			v.model.DebugWireframe = !v.model.DebugWireframe
		case sdl.K_b:
			v.model.BackFaceCulling = !v.model.BackFaceCulling
		case sdl.K_h:
			v.model.Show = !v.model.Show
		case sdl.K_f:
			if s, ok := v.model.BoundingSphere(); ok {
				v.camera.FitSphere(s)
			}
		}
	}
}

// update advances the model one frame. Load errors are returned once.
func (v *Viewer) update() error {
	v.frame++
	v.sched.BeginFrame()
	v.cmds = v.cmds[:0]
	err := v.model.Update(&model.FrameState{
		Context:     v.gl,
		Scheduler:   v.sched,
		FrameNumber: v.frame,
		Time:        window.Ticks(),
		Commands:    &v.cmds,
		Passes:      drawcmd.Passes{Render: true},
		Camera:      model.Camera{View: v.camera.ViewMatrix(), FovY: v.camera.FovY},
	})

	if !v.fitted && v.model.Ready() {
		v.fitted = true
		if s, ok := v.model.BoundingSphere(); ok {
			v.camera.FitSphere(s)
		}
		playing := v.model.Animations().AddAll(animation.AddOptions{Loop: animation.LoopRepeat})
		st := v.model.Stats()
		v.log.Info("model ready",
			zap.Int("animations", len(playing)),
			zap.Int("triangles", st.TrianglesLength),
			zap.Int("geometryBytes", st.GeometryByteLength),
			zap.Int("textureBytes", st.TexturesByteLength))
	}
	return err
}

func (v *Viewer) render() {
	v.submitter.Begin(background)
	width, height := v.window.Size()
	if height == 0 {
		return
	}
	proj := v.camera.Projection(float32(width) / float32(height))
	v.submitter.Submit(v.cmds, v.camera.ViewMatrix(), proj)
}

// Close releases the model, the GL context and the window.
func (v *Viewer) Close() {
	v.log.Info("closing viewer")
	if v.cancel != nil {
		v.cancel()
	}
	if v.done != nil {
		<-v.done
	}
	if v.model != nil {
		if err := v.model.Destroy(); err != nil {
			v.log.Warn("model destroy failed", zap.Error(err))
		}
	}
	if v.gl != nil {
		if err := v.gl.Close(); err != nil {
			v.log.Warn("GL close failed", zap.Error(err))
		}
	}
	if v.window != nil {
		v.window.Close()
	}
}
