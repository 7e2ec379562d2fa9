// Package rescache holds the GPU objects backing loaded models and shares
// them by reference count between models built from the same asset.
package rescache

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/animation"
	"github.com/Faultbox/midgard-gltf/internal/asset"
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/internal/logger"
	"github.com/Faultbox/midgard-gltf/internal/shadergen"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// PrimitiveKey identifies a mesh primitive.
type PrimitiveKey struct {
	Mesh      int
	Primitive int
}

// ProgramSet is a technique-indexed program dictionary with the silhouette
// programs derived from it. A bundle's set is shared by every model using the
// bundle; models that need variants fork a private set.
type ProgramSet struct {
	Programs   map[int]gfx.Program
	Silhouette map[int]gfx.Program
	// Decode holds the dequantization uniforms of each technique's program.
	Decode map[int][]shadergen.DecodeUniform
}

// NewProgramSet returns an empty set.
func NewProgramSet() *ProgramSet {
	return &ProgramSet{
		Programs:   make(map[int]gfx.Program),
		Silhouette: make(map[int]gfx.Program),
		Decode:     make(map[int][]shadergen.DecodeUniform),
	}
}

// Fork returns an empty private set. Nothing is copied; the caller fills it
// with regenerated programs.
func (p *ProgramSet) Fork() *ProgramSet {
	return NewProgramSet()
}

// Destroy destroys every program in the set.
func (p *ProgramSet) Destroy() error {
	var err error
	for _, prog := range p.Programs {
		err = multierr.Append(err, prog.Destroy())
	}
	for _, prog := range p.Silhouette {
		err = multierr.Append(err, prog.Destroy())
	}
	clear(p.Programs)
	clear(p.Silhouette)
	return err
}

// DestroyIfNotShared destroys p unless it is the shared set.
func (p *ProgramSet) DestroyIfNotShared(shared *ProgramSet) error {
	if p == nil || p == shared {
		return nil
	}
	return p.Destroy()
}

// Bundle is the renderer resources of one asset.
type Bundle struct {
	Buffers      map[int]gfx.Buffer
	VertexArrays map[PrimitiveKey]gfx.VertexArray
	Programs     *ProgramSet
	Textures     map[int]gfx.Texture
	Samplers     map[int]gfx.Sampler
	// RenderStates is indexed by material.
	RenderStates map[int]*gfx.RenderState
	// SourceShaders keeps the shader sources for program regeneration.
	SourceShaders map[int]string

	// Asset is the parsed description; attaching models skip parsing.
	Asset               *asset.Asset
	InverseBindMatrices [][]math.Mat4
	Animations          []*animation.Animation
	// Bounds holds the model-space sphere of each primitive and
	// BoundingSphere the whole asset's, axis conversion included.
	Bounds         map[PrimitiveKey]math.Sphere
	BoundingSphere math.Sphere

	// Ready is set once every resource exists. Waiting models attach then.
	Ready bool

	key       string
	refs      int
	destroyed bool
}

// NewBundle returns an empty unkeyed bundle.
func NewBundle() *Bundle {
	return &Bundle{
		Buffers:       make(map[int]gfx.Buffer),
		VertexArrays:  make(map[PrimitiveKey]gfx.VertexArray),
		Programs:      NewProgramSet(),
		Textures:      make(map[int]gfx.Texture),
		Samplers:      make(map[int]gfx.Sampler),
		RenderStates:  make(map[int]*gfx.RenderState),
		SourceShaders: make(map[int]string),
		Bounds:        make(map[PrimitiveKey]math.Sphere),
	}
}

// Private returns a bundle owned by a single model.
func Private() *Bundle {
	b := NewBundle()
	b.refs = 1
	return b
}

// Key returns the cache key, empty for private bundles.
func (b *Bundle) Key() string { return b.key }

// Refs returns the reference count.
func (b *Bundle) Refs() int { return b.refs }

// Destroyed reports whether the GPU objects were released.
func (b *Bundle) Destroyed() bool { return b.destroyed }

// GeometryByteLength sums the sizes of all buffers.
func (b *Bundle) GeometryByteLength() int {
	n := 0
	for _, buf := range b.Buffers {
		n += buf.SizeInBytes()
	}
	return n
}

// TexturesByteLength sums the sizes of all textures.
func (b *Bundle) TexturesByteLength() int {
	n := 0
	for _, tex := range b.Textures {
		n += tex.SizeInBytes()
	}
	return n
}

// destroy releases every GPU object and collects all failures.
func (b *Bundle) destroy() error {
	if b.destroyed {
		return nil
	}
	b.destroyed = true

	var err error
	for _, va := range b.VertexArrays {
		err = multierr.Append(err, va.Destroy())
	}
	for _, buf := range b.Buffers {
		err = multierr.Append(err, buf.Destroy())
	}
	err = multierr.Append(err, b.Programs.Destroy())
	for _, tex := range b.Textures {
		err = multierr.Append(err, tex.Destroy())
	}
	clear(b.VertexArrays)
	clear(b.Buffers)
	clear(b.Textures)
	return err
}

// Outcome is the result of Cache.Acquire.
type Outcome int

const (
	// Create means the caller owns a new entry and must fill it.
	Create Outcome = iota
	// Attach means a ready bundle was shared with the caller.
	Attach
	// Wait means another model is still filling the entry.
	Wait
)

func (o Outcome) String() string {
	switch o {
	case Attach:
		return "attach"
	case Wait:
		return "wait"
	default:
		return "create"
	}
}

// Cache maps cache keys to shared bundles.
type Cache struct {
	mu      sync.Mutex
	bundles map[string]*Bundle
	log     *zap.Logger
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		bundles: make(map[string]*Bundle),
		log:     logger.Named("rescache"),
	}
}

// Acquire looks up key. A ready bundle gains a reference (Attach); a bundle
// still being filled is returned without one (Wait); otherwise a new bundle
// with one reference is stored and returned (Create).
func (c *Cache) Acquire(key string) (*Bundle, Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.bundles[key]; ok {
		if !b.Ready {
			return b, Wait
		}
		b.refs++
		c.log.Debug("bundle attached", zap.String("key", key), zap.Int("refs", b.refs))
		return b, Attach
	}

	b := NewBundle()
	b.key = key
	b.refs = 1
	c.bundles[key] = b
	return b, Create
}

// Release drops one reference. The GPU objects are destroyed, and the entry
// removed, when the count reaches zero. Private bundles are destroyed at once.
func (c *Cache) Release(b *Bundle) (destroyed bool, err error) {
	if b == nil || b.destroyed {
		return false, nil
	}
	if b.key == "" {
		b.refs = 0
		return true, b.destroy()
	}

	c.mu.Lock()
	if b.refs <= 0 {
		c.mu.Unlock()
		return false, fmt.Errorf("rescache: release of unreferenced bundle %q", b.key)
	}
	b.refs--
	last := b.refs == 0
	if last && c.bundles[b.key] == b {
		delete(c.bundles, b.key)
	}
	c.mu.Unlock()

	if !last {
		return false, nil
	}
	c.log.Debug("bundle destroyed", zap.String("key", b.key))
	return true, b.destroy()
}

// Len returns the number of cached bundles.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bundles)
}
