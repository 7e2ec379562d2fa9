package model

import (
	"errors"
	"fmt"
	"image"
	stdmath "math"

	"github.com/jinzhu/copier"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/asset"
	"github.com/Faultbox/midgard-gltf/internal/fetch"
	"github.com/Faultbox/midgard-gltf/internal/loadres"
	"github.com/Faultbox/midgard-gltf/internal/rescache"
	"github.com/Faultbox/midgard-gltf/internal/texture"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// fetch requests uri and applies the result on the next mailbox drain.
func (m *Model) fetch(uri string, apply func(fetch.Result)) {
	m.fetchWith(uri, nil, apply)
}

// fetchWith runs prepare on the delivering goroutine before the result is
// posted, so expensive decoding stays off the update thread.
func (m *Model) fetchWith(uri string, prepare, apply func(fetch.Result)) {
	deliver := m.mailbox.Deliverer(apply)
	post := deliver
	if prepare != nil {
		post = func(r fetch.Result) {
			prepare(r)
			deliver(r)
		}
	}
	if m.fetcher == nil {
		if fetch.IsDataURI(uri) {
			data, _, err := fetch.DecodeDataURI(uri)
			post(fetch.Result{URI: uri, Data: data, Err: err})
			return
		}
		post(fetch.Result{URI: uri, Err: errNoFetcher})
		return
	}
	m.fetcher.Fetch(m.ctx, uri, post)
}

// beginLoad acquires the resource bundle and parses the document. A model
// whose cache entry is still being filled by another model stays in
// NeedsLoad and retries on the next update.
func (m *Model) beginLoad() {
	if m.opts.CacheKey == "" {
		m.bundle = rescache.Private()
	} else {
		b, outcome := m.cache.Acquire(m.opts.CacheKey)
		switch outcome {
		case rescache.Wait:
			return
		case rescache.Attach:
			m.fromCache = true
		}
		m.bundle = b
		m.log.Debug("cache entry acquired",
			zap.String("key", m.opts.CacheKey),
			zap.Stringer("outcome", outcome))
	}
	m.programs = m.bundle.Programs

	a := m.bundle.Asset
	if !m.fromCache {
		var err error
		a, err = asset.Parse(m.source)
		if err != nil {
			m.fail(loadError(ParseFailure, m.documentName(), err))
			return
		}
		m.bundle.Asset = a
	}
	m.asset = a
	m.res = loadres.New()
	m.state = Loading
	m.log.Debug("loading", zap.String("uri", m.uri), zap.Bool("cached", m.fromCache))

	if m.fromCache {
		return
	}
	r := m.res
	for i, b := range a.Buffers {
		if b.Embedded {
			r.Buffers[i] = a.BufferData(i)
			continue
		}
		i, uri := i, m.resolve(b.URI)
		r.PendingBufferLoads++
		m.fetch(uri, func(res fetch.Result) {
			if res.Err != nil {
				m.fail(loadError(FetchFailure, uri, res.Err))
				return
			}
			a.SetBufferData(i, res.Data)
			r.Buffers[i] = res.Data
			r.PendingBufferLoads--
		})
	}
}

func (m *Model) documentName() string {
	if m.uri == "" || fetch.IsDataURI(m.uri) {
		return "document"
	}
	return m.uri
}

// advance runs one frame of the LOADING state and reports whether the model
// became drawable.
func (m *Model) advance(fs *FrameState) bool {
	r := m.res
	if r.PendingBufferLoads == 0 && !r.Parsed {
		m.parse()
		if m.state == Failed {
			return false
		}
		m.mailbox.Drain()
		if m.state == Failed {
			return false
		}
	}
	if !r.Parsed || r.PendingShaderLoads > 0 {
		return false
	}

	m.createResources(fs.executor(m.opts.Asynchronous))
	if m.state == Failed {
		return false
	}
	if r.Finished() || (m.opts.IncrementallyLoadTextures && r.FinishedEverythingButTextureCreation()) {
		m.state = Loaded
		m.log.Debug("loaded",
			zap.String("uri", m.uri),
			zap.Uint64("frame", fs.FrameNumber),
			zap.Int("pendingTextures", r.PendingTextureLoads+r.TexturesToCreate.Len()))
		m.complete(nil)
		return true
	}
	return false
}

// finishLoad drops the load-time state once every resource exists.
func (m *Model) finishLoad() {
	if !m.fromCache {
		m.bundle.Ready = true
	}
	if m.opts.ReleaseSourceAfterLoad {
		m.asset.ReleaseData()
		m.source = nil
	}
	m.res = nil
}

// parse walks the asset tables and fills the creation queues. Cached models
// only build their per-model state.
func (m *Model) parse() {
	a, r := m.asset, m.res

	if !m.fromCache {
		for i, bv := range a.BufferViews {
			switch {
			case bv.Index:
				r.IndexBuffersToCreate.Enqueue(loadres.IndexBuffer{BufferView: i, ComponentType: int(bv.IndexType)})
			case bv.Vertex:
				r.VertexBuffersToCreate.Enqueue(i)
			}
		}
		if !m.parseShaders() {
			return
		}
		for i := range a.Techniques {
			r.ProgramsToCreate.Enqueue(i)
		}
		if !m.parseTextures() {
			return
		}
	}

	m.materials = make([]*asset.Material, len(a.Materials))
	for i := range a.Materials {
		mat := new(asset.Material)
		if err := copier.CopyWithOption(mat, &a.Materials[i], copier.Option{DeepCopy: true}); err != nil {
			m.fail(loadError(ParseFailure, fmt.Sprintf("material %d", i), err))
			return
		}
		m.materials[i] = mat
	}

	if !m.fromCache {
		if err := m.computeBounds(); err != nil {
			m.fail(loadError(ParseFailure, "bounds", err))
			return
		}
	}
	m.boundingSphere = m.bundle.BoundingSphere
	m.initialRadius = m.boundingSphere.Radius
	r.Parsed = true
}

func (m *Model) parseShaders() bool {
	a, r := m.asset, m.res
	for i, sh := range a.Shaders {
		switch {
		case sh.Source != "":
			r.Shaders[i] = sh.Source
		case sh.BufferView != nil:
			data, err := a.BufferViewData(*sh.BufferView)
			if err != nil {
				m.fail(loadError(ParseFailure, fmt.Sprintf("shader %d", i), err))
				return false
			}
			r.Shaders[i] = string(data)
		case sh.URI != "":
			i, uri := i, m.resolve(sh.URI)
			r.PendingShaderLoads++
			m.fetch(uri, func(res fetch.Result) {
				if res.Err != nil {
					m.fail(loadError(FetchFailure, uri, res.Err))
					return
				}
				r.Shaders[i] = string(res.Data)
				r.PendingShaderLoads--
			})
		default:
			m.fail(loadError(ParseFailure, fmt.Sprintf("shader %d", i), errors.New("no source")))
			return false
		}
	}
	return true
}

func (m *Model) parseTextures() bool {
	a, r := m.asset, m.res
	for i, t := range a.Textures {
		if t.Source < 0 || t.Source >= len(a.Images) {
			continue
		}
		img := a.Images[t.Source]
		if img.BufferView != nil {
			data, err := a.BufferViewData(*img.BufferView)
			var decoded *image.RGBA
			if err == nil {
				decoded, err = texture.Decode(data, img.MimeType)
			}
			if err != nil {
				m.textureFailed(ParseFailure, fmt.Sprintf("texture %d", i), err)
				if m.state == Failed {
					return false
				}
				continue
			}
			r.TexturesToCreate.Enqueue(loadres.Texture{ID: i, Image: decoded})
			continue
		}
		if img.URI != "" {
			m.loadTexture(i, img)
		}
		if m.state == Failed {
			return false
		}
	}
	return true
}

func (m *Model) loadTexture(id int, img asset.Image) {
	r := m.res
	uri := m.resolve(img.URI)
	var (
		decoded   *image.RGBA
		decodeErr error
	)
	r.PendingTextureLoads++
	m.fetchWith(uri,
		func(res fetch.Result) {
			if res.Err == nil {
				decoded, decodeErr = texture.Decode(res.Data, img.MimeType)
			}
		},
		func(res fetch.Result) {
			r.PendingTextureLoads--
			switch {
			case res.Err != nil:
				m.textureFailed(FetchFailure, uri, res.Err)
			case decodeErr != nil:
				m.textureFailed(ParseFailure, uri, decodeErr)
			default:
				r.TexturesToCreate.Enqueue(loadres.Texture{ID: id, Image: decoded})
			}
		})
}

// textureFailed leaves the default texture bound when textures stream in
// or the model already draws; otherwise the load fails.
func (m *Model) textureFailed(kind ErrorKind, resource string, err error) {
	if m.opts.IncrementallyLoadTextures || m.state == Loaded {
		m.log.Warn("texture unavailable, keeping default",
			zap.String("resource", resource),
			zap.Stringer("kind", kind),
			zap.Error(err))
		return
	}
	m.fail(loadError(kind, resource, err))
}

// computeBounds records the model-space sphere of every primitive and of the
// whole scene in the bundle.
func (m *Model) computeBounds() error {
	a, b := m.asset, m.bundle
	inf := float32(stdmath.Inf(1))
	lo := math.Vec3{X: inf, Y: inf, Z: inf}
	hi := math.Vec3{X: -inf, Y: -inf, Z: -inf}
	found := false

	boxes := make(map[rescache.PrimitiveKey][2]math.Vec3)
	for mi, mesh := range a.Meshes {
		for pi, p := range mesh.Primitives {
			plo, phi, err := a.PositionBounds(p.Attributes["POSITION"])
			if err != nil {
				return fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			key := rescache.PrimitiveKey{Mesh: mi, Primitive: pi}
			boxes[key] = [2]math.Vec3{plo, phi}
			b.Bounds[key] = math.SphereFromCornerPoints(plo, phi)
		}
	}

	onPath := make([]bool, len(a.Nodes))
	var walk func(i int, parent math.Mat4)
	walk = func(i int, parent math.Mat4) {
		if i < 0 || i >= len(a.Nodes) || onPath[i] {
			return
		}
		onPath[i] = true
		defer func() { onPath[i] = false }()

		n := &a.Nodes[i]
		world := parent.MulTransformation(n.LocalMatrix())
		if n.Mesh != nil && *n.Mesh >= 0 && *n.Mesh < len(a.Meshes) {
			for pi := range a.Meshes[*n.Mesh].Primitives {
				box := boxes[rescache.PrimitiveKey{Mesh: *n.Mesh, Primitive: pi}]
				for _, c := range boxCorners(box[0], box[1]) {
					w := world.TransformVec3(c)
					lo = math.Vec3{X: min(lo.X, w.X), Y: min(lo.Y, w.Y), Z: min(lo.Z, w.Z)}
					hi = math.Vec3{X: max(hi.X, w.X), Y: max(hi.Y, w.Y), Z: max(hi.Z, w.Z)}
				}
				found = true
			}
		}
		for _, c := range n.Children {
			walk(c, world)
		}
	}
	for _, r := range a.Roots {
		walk(r, math.Identity())
	}
	if !found {
		b.BoundingSphere = math.Sphere{}
		return nil
	}

	sphere := math.SphereFromCornerPoints(lo, hi)
	switch m.opts.UpAxis {
	case math.AxisY:
		sphere = sphere.Transform(math.YUpToZUp)
	case math.AxisX:
		sphere = sphere.Transform(math.XUpToZUp)
	}
	if m.opts.ForwardAxis == math.AxisZ {
		sphere = sphere.Transform(math.ZUpToXUp)
	}
	b.BoundingSphere = sphere
	return nil
}

func boxCorners(lo, hi math.Vec3) [8]math.Vec3 {
	var out [8]math.Vec3
	for i := range out {
		c := lo
		if i&1 != 0 {
			c.X = hi.X
		}
		if i&2 != 0 {
			c.Y = hi.Y
		}
		if i&4 != 0 {
			c.Z = hi.Z
		}
		out[i] = c
	}
	return out
}
