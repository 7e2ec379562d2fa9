// Package model drives one glTF asset from bytes to per-frame draw commands.
//
// A Model is updated once per frame from the render goroutine. Loading is a
// polled state machine: every Update drains completed fetches, advances the
// load stages as far as the frame's job budget allows and, once loaded,
// propagates transforms, keeps shader variants current and emits one draw
// command per visible primitive.
package model

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/animation"
	"github.com/Faultbox/midgard-gltf/internal/asset"
	"github.com/Faultbox/midgard-gltf/internal/drawcmd"
	"github.com/Faultbox/midgard-gltf/internal/fetch"
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/internal/loadres"
	"github.com/Faultbox/midgard-gltf/internal/logger"
	"github.com/Faultbox/midgard-gltf/internal/rescache"
	"github.com/Faultbox/midgard-gltf/internal/scenegraph"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// Source is the asset to load: either Data or a URI fetched through the
// model's fetcher. Relative resources resolve against BasePath, which
// defaults to the directory of URI.
type Source struct {
	Data     []byte
	URI      string
	BasePath string
}

// Stats summarizes the GPU footprint of a loaded model.
type Stats struct {
	GeometryByteLength int
	TexturesByteLength int
	TrianglesLength    int
}

// Model is one instance of a glTF asset. Appearance fields may be changed
// between updates.
type Model struct {
	Appearance

	opts    Options
	log     *zap.Logger
	cache   *rescache.Cache
	fetcher fetch.Fetcher

	life    *fetch.Liveness
	mailbox *fetch.Mailbox
	ctx     context.Context
	cancel  context.CancelFunc

	uri      string
	basePath string
	source   []byte

	state      State
	err        error
	pendingErr error
	completed  bool
	destroyed  bool

	gfx       gfx.Context
	bundle    *rescache.Bundle
	fromCache bool
	res       *loadres.Resources
	asset     *asset.Asset
	programs  *rescache.ProgramSet
	// silhouettes holds silhouette programs compiled while the model draws
	// from the shared set, which is never written after the bundle is built.
	silhouettes map[int]gfx.Program

	materials        []*asset.Material
	materialUniforms map[uniformKey]*materialUniforms
	modelUniformMap  drawcmd.UniformMap
	graph            *scenegraph.Graph
	nodeCommands     []*drawcmd.NodeCommand
	primitiveModes   []gfx.PrimitiveType
	nodeShow         []bool
	perNodeShowDirty bool
	pickIDs          []gfx.PickID
	owners           []*PickedObject
	animations       *animation.Collection
	animationsDirty  bool
	articulations    *scenegraph.Articulations
	trianglesLength  int

	lighting lighting

	computedModelMatrix math.Mat4
	boundingSphere      math.Sphere
	initialRadius       float32

	// Values seen by the previous update, for change detection.
	prevModelMatrix      math.Mat4
	prevScale            float32
	prevMinimumPixelSize float32
	prevMaximumScale     float32
	prevID               any
	prevWireframe        bool
	prevShowBV           bool
	prevShadows          ShadowMode
	prevAlphaClass       [2]int

	clippingHash        uint64
	colorShadingEnabled bool
	customRevision      uint64
	// regeneratePending asks for one regeneration on the next update.
	regeneratePending bool
	// forkPrograms keeps the model on private programs once lighting or a
	// custom shader made them differ from the shared ones.
	forkPrograms bool

	stencilReference  int
	silhouetteWarned  bool
	silhouetteSkipped map[int]bool
}

// New creates a model. Nothing is fetched or created until the first
// Update, except that a Source given by URI is requested at once. A nil
// cache gives the model private resources.
func New(src Source, opts Options, cache *rescache.Cache, fetcher fetch.Fetcher) *Model {
	if cache == nil {
		cache = rescache.New()
	}
	ctx, cancel := context.WithCancel(context.Background())
	life := fetch.NewLiveness()
	m := &Model{
		Appearance:        opts.Appearance,
		opts:              opts,
		log:               logger.Named("model"),
		cache:             cache,
		fetcher:           fetcher,
		life:              life,
		mailbox:           fetch.NewMailbox(life),
		ctx:               ctx,
		cancel:            cancel,
		uri:               src.URI,
		basePath:          src.BasePath,
		source:            src.Data,
		lighting:          newLighting(opts),
		prevScale:         opts.Scale,
		prevModelMatrix:   opts.ModelMatrix,
		prevID:            opts.ID,
		prevShadows:       opts.Shadows,
		prevAlphaClass:    [2]int{-1, -1},
		stencilReference:  nextStencilReference(),
		silhouetteSkipped: make(map[int]bool),
	}
	if m.basePath == "" && src.URI != "" && !fetch.IsDataURI(src.URI) {
		if dir := path.Dir(src.URI); dir != "." {
			m.basePath = dir
		}
	}
	if m.source == nil && src.URI != "" {
		m.requestSource()
	}
	return m
}

func (m *Model) requestSource() {
	m.fetch(m.uri, func(r fetch.Result) {
		if r.Err != nil {
			m.fail(loadError(FetchFailure, m.uri, r.Err))
			return
		}
		m.source = r.Data
	})
}

var errNoFetcher = errors.New("no fetcher configured")

var stencilReferences atomic.Uint32

// nextStencilReference hands out 1..255 so overlapping silhouettes of
// different models do not share a stencil value.
func nextStencilReference() int {
	n := stencilReferences.Add(1)
	return int((n-1)%255) + 1
}

// State returns the load state.
func (m *Model) State() State { return m.state }

// Ready reports whether the model is loaded.
func (m *Model) Ready() bool { return m.state == Loaded }

// Err returns the load error of a failed model.
func (m *Model) Err() error { return m.err }

// IsDestroyed reports whether Destroy was called.
func (m *Model) IsDestroyed() bool { return m.destroyed }

// Asset returns the parsed asset, nil before loading starts.
func (m *Model) Asset() *asset.Asset { return m.asset }

// NodeCommands returns the per-primitive command records, built once loaded.
func (m *Model) NodeCommands() []*drawcmd.NodeCommand { return m.nodeCommands }

// Bundle returns the renderer resources backing the model.
func (m *Model) Bundle() *rescache.Bundle { return m.bundle }

// Animations returns the animation collection, nil until loaded.
func (m *Model) Animations() *animation.Collection { return m.animations }

// BoundingSphere returns the world-space bounds at the placement's scale.
func (m *Model) BoundingSphere() (math.Sphere, bool) {
	if m.state != Loaded {
		return math.Sphere{}, false
	}
	s := m.Scale
	if m.MaximumScale > 0 {
		s = min(m.MaximumScale, s)
	}
	return math.Sphere{
		Center: m.ModelMatrix.TransformVec3(m.boundingSphere.Center.Scale(s)),
		Radius: m.ModelMatrix.MaxScale() * s * m.initialRadius,
	}, true
}

// Stats reports buffer and texture sizes and the triangle count.
func (m *Model) Stats() Stats {
	if m.bundle == nil {
		return Stats{}
	}
	return Stats{
		GeometryByteLength: m.bundle.GeometryByteLength(),
		TexturesByteLength: m.bundle.TexturesByteLength(),
		TrianglesLength:    m.trianglesLength,
	}
}

// Update advances loading and, once loaded, appends this frame's draw
// commands to fs.Commands. It returns the load error on the frame the model
// fails and a regeneration error when a variant program fails to compile
// after loading; the model then keeps drawing with its previous programs.
func (m *Model) Update(fs *FrameState) error {
	if m.destroyed {
		return ErrDestroyed
	}
	if m.state == Failed {
		return m.takeErr()
	}
	if fs.Context == nil {
		return errors.New("model: frame state has no graphics context")
	}
	m.gfx = fs.Context
	m.mailbox.Drain()
	m.lighting.updateDefaults(fs, m.invalidatePrograms)

	if m.state == NeedsLoad && m.source != nil {
		m.beginLoad()
		m.mailbox.Drain()
	}

	justLoaded := false
	if m.state == Loading {
		justLoaded = m.advance(fs)
	}
	if m.state == Loaded && m.res != nil {
		if m.opts.IncrementallyLoadTextures && !justLoaded {
			m.createTextures(fs.executor(m.opts.Asynchronous))
		}
		if m.res.Finished() {
			m.finishLoad()
		}
	}
	if m.state != Loaded {
		return m.takeErr()
	}

	silhouette := m.hasSilhouette(fs.Context)
	translucent := m.isTranslucent()
	show := m.Show && m.Scale != 0 && (!m.isInvisible() || silhouette)

	var err error
	if show || justLoaded {
		m.updateTransforms(fs, justLoaded)
		m.updatePerNodeShow()
		m.updatePickIDs()
		m.updateWireframe()
		m.updateShowBoundingVolume()
		m.updateShadows()
		err = m.updateShaders()
		m.updateColor(translucent)
		m.updateBackFaceCulling()
		m.updateSilhouette(silhouette, translucent)
	}

	if show && fs.Commands != nil {
		passes := fs.Passes
		passes.Pick = passes.Pick && m.opts.AllowPicking
		mode := drawcmd.Mode{
			Silhouette:      silhouette,
			Translucent:     translucent,
			BackFaceCulling: m.BackFaceCulling,
		}
		*fs.Commands = drawcmd.Emit(*fs.Commands, m.nodeCommands, mode, passes)
	}
	return multierr.Append(m.takeErr(), err)
}

func (m *Model) takeErr() error {
	err := m.pendingErr
	m.pendingErr = nil
	return err
}

// fail moves the model to Failed and releases what it holds. Only the first
// failure is reported.
func (m *Model) fail(err *LoadError) {
	if m.state == Failed || m.destroyed {
		return
	}
	m.state = Failed
	m.err = err
	m.pendingErr = err
	m.log.Error("model load failed",
		zap.String("uri", m.uri),
		zap.Stringer("kind", err.Kind),
		zap.String("resource", err.Resource),
		zap.Error(err.Err))

	m.life.Revoke()
	m.cancel()
	m.res = nil
	if m.bundle != nil {
		perr := multierr.Append(m.programs.DestroyIfNotShared(m.bundle.Programs), m.destroySilhouettes())
		if perr != nil {
			m.log.Warn("destroying private programs of failed model", zap.Error(perr))
		}
		m.programs = nil
		if _, rerr := m.cache.Release(m.bundle); rerr != nil {
			m.log.Warn("releasing resources of failed model", zap.Error(rerr))
		}
		m.bundle = nil
	}
	m.complete(err)
}

func (m *Model) complete(err error) {
	if m.completed {
		return
	}
	m.completed = true
	if m.opts.OnComplete != nil {
		m.opts.OnComplete(err)
	}
}

// Destroy releases the model's resources. Shared resources are destroyed
// when the last model holding them is. Pending fetches are cancelled and
// their completions discarded.
func (m *Model) Destroy() error {
	if m.destroyed {
		return nil
	}
	m.destroyed = true
	m.life.Revoke()
	m.cancel()

	var err error
	for _, p := range m.pickIDs {
		err = multierr.Append(err, p.Destroy())
	}
	m.pickIDs = nil
	if m.bundle != nil {
		err = multierr.Append(err, m.programs.DestroyIfNotShared(m.bundle.Programs))
		err = multierr.Append(err, m.destroySilhouettes())
		_, rerr := m.cache.Release(m.bundle)
		err = multierr.Append(err, rerr)
		m.bundle = nil
	}
	m.programs = nil
	m.res = nil
	m.nodeCommands = nil
	return err
}

func (m *Model) resolve(uri string) string {
	if fetch.IsDataURI(uri) || strings.Contains(uri, "://") {
		return uri
	}
	return fetch.Resolve(m.basePath, uri)
}
