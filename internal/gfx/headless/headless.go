// Package headless is a gfx.Context that allocates nothing on a GPU. It
// records every object it creates so tools and tests can inspect what the
// model runtime asked for.
package headless

import (
	"fmt"
	"image"
	"regexp"
	"sync"

	"github.com/Faultbox/midgard-gltf/internal/gfx"
)

// Kind names a resource category in the counters.
type Kind string

const (
	KindBuffer      Kind = "buffer"
	KindProgram     Kind = "program"
	KindTexture     Kind = "texture"
	KindVertexArray Kind = "vertexArray"
	KindPickID      Kind = "pickId"
)

// Context records created and destroyed resources.
type Context struct {
	// FailProgram, when set, is consulted before linking each program.
	FailProgram func(desc gfx.ProgramDesc) error
	// FailTexture, when set, is consulted before each texture upload.
	FailTexture func(desc gfx.TextureDesc) error

	caps gfx.Capabilities

	mu        sync.Mutex
	nextID    uint64
	nextPick  uint32
	live      map[uint64]Kind
	created   map[Kind]int
	destroyed map[Kind]int
	programs  []*Program
	defaultTx *Texture
}

// New returns a context with the given capabilities.
func New(caps gfx.Capabilities) *Context {
	c := &Context{
		caps:      caps,
		live:      make(map[uint64]Kind),
		created:   make(map[Kind]int),
		destroyed: make(map[Kind]int),
	}
	c.defaultTx = &Texture{res: res{id: 0, ctx: nil}, width: 1, height: 1}
	return c
}

// NewDefault returns a context with a stencil buffer and a 1024x768 drawing buffer.
func NewDefault() *Context {
	return New(gfx.Capabilities{
		StencilBuffer:       true,
		OctahedralCubeMaps:  true,
		MaxTextureSize:      4096,
		DrawingBufferWidth:  1024,
		DrawingBufferHeight: 768,
	})
}

func (c *Context) alloc(k Kind) res {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.live[c.nextID] = k
	c.created[k]++
	return res{id: c.nextID, ctx: c}
}

func (c *Context) release(id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k, ok := c.live[id]
	if !ok {
		return fmt.Errorf("%w: id %d", gfx.ErrDestroyed, id)
	}
	delete(c.live, id)
	c.destroyed[k]++
	return nil
}

// Created returns how many resources of kind k were created.
func (c *Context) Created(k Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created[k]
}

// Destroyed returns how many resources of kind k were destroyed.
func (c *Context) Destroyed(k Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed[k]
}

// Live returns how many resources are currently alive.
func (c *Context) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

// IsLive reports whether the resource with id is still alive.
func (c *Context) IsLive(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.live[id]
	return ok
}

// Programs returns every program created so far, in creation order.
func (c *Context) Programs() []*Program {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Program(nil), c.programs...)
}

// SetCapabilities replaces the reported capabilities.
func (c *Context) SetCapabilities(caps gfx.Capabilities) {
	c.caps = caps
}

// Capabilities implements gfx.Context.
func (c *Context) Capabilities() gfx.Capabilities {
	return c.caps
}

// DefaultTexture implements gfx.Context. It is never counted or destroyed.
func (c *Context) DefaultTexture() gfx.Texture {
	return c.defaultTx
}

// CreateVertexBuffer implements gfx.Context.
func (c *Context) CreateVertexBuffer(data []byte) (gfx.Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("headless: empty vertex buffer")
	}
	return &Buffer{res: c.alloc(KindBuffer), size: len(data)}, nil
}

// CreateIndexBuffer implements gfx.Context.
func (c *Context) CreateIndexBuffer(data []byte, t gfx.IndexType) (gfx.Buffer, error) {
	if len(data)%t.SizeInBytes() != 0 {
		return nil, fmt.Errorf("headless: index buffer of %d bytes is not a multiple of %d", len(data), t.SizeInBytes())
	}
	return &Buffer{res: c.alloc(KindBuffer), size: len(data), Index: t}, nil
}

var attributeDecl = regexp.MustCompile(`(?m)^\s*(?:attribute|in)\s+\w+\s+(\w+)\s*;`)

// CreateProgram implements gfx.Context. Attributes declared in the vertex
// source and present in the requested locations are reported active.
func (c *Context) CreateProgram(desc gfx.ProgramDesc) (gfx.Program, error) {
	if c.FailProgram != nil {
		if err := c.FailProgram(desc); err != nil {
			return nil, err
		}
	}
	active := make(map[string]int)
	for _, m := range attributeDecl.FindAllStringSubmatch(desc.VertexSource, -1) {
		if loc, ok := desc.AttributeLocations[m[1]]; ok {
			active[m[1]] = loc
		}
	}
	p := &Program{res: c.alloc(KindProgram), Desc: desc, active: active}
	c.mu.Lock()
	c.programs = append(c.programs, p)
	c.mu.Unlock()
	return p, nil
}

// CreateTexture implements gfx.Context.
func (c *Context) CreateTexture(desc gfx.TextureDesc) (gfx.Texture, error) {
	if c.FailTexture != nil {
		if err := c.FailTexture(desc); err != nil {
			return nil, err
		}
	}
	w, h := 1, 1
	if desc.Image != nil {
		b := desc.Image.Bounds()
		w, h = b.Dx(), b.Dy()
	}
	if limit := c.caps.MaxTextureSize; limit > 0 && (w > limit || h > limit) {
		return nil, fmt.Errorf("headless: texture %dx%d exceeds %d", w, h, limit)
	}
	return &Texture{res: c.alloc(KindTexture), width: w, height: h, Sampler: desc.Sampler}, nil
}

// CreateVertexArray implements gfx.Context.
func (c *Context) CreateVertexArray(desc gfx.VertexArrayDesc) (gfx.VertexArray, error) {
	return &VertexArray{res: c.alloc(KindVertexArray), Desc: desc}, nil
}

// CreatePickID implements gfx.Context.
func (c *Context) CreatePickID(owner any) gfx.PickID {
	r := c.alloc(KindPickID)
	c.mu.Lock()
	c.nextPick++
	key := c.nextPick
	c.mu.Unlock()
	return &PickID{
		res:   r,
		owner: owner,
		color: [4]float32{
			float32(key&0xff) / 255,
			float32((key>>8)&0xff) / 255,
			float32((key>>16)&0xff) / 255,
			1,
		},
	}
}

type res struct {
	id  uint64
	ctx *Context
}

func (r res) ID() uint64 { return r.id }

func (r res) Destroy() error {
	if r.ctx == nil {
		return nil
	}
	return r.ctx.release(r.id)
}

// Buffer is a recorded buffer.
type Buffer struct {
	res
	size  int
	Index gfx.IndexType
}

// SizeInBytes implements gfx.Buffer.
func (b *Buffer) SizeInBytes() int { return b.size }

// Program is a recorded program.
type Program struct {
	res
	Desc   gfx.ProgramDesc
	active map[string]int
}

// AttributeLocations implements gfx.Program.
func (p *Program) AttributeLocations() map[string]int { return p.active }

// VertexSource implements gfx.Program.
func (p *Program) VertexSource() string { return p.Desc.VertexSource }

// FragmentSource implements gfx.Program.
func (p *Program) FragmentSource() string { return p.Desc.FragmentSource }

// Texture is a recorded texture.
type Texture struct {
	res
	width, height int
	Sampler       gfx.Sampler
}

// Width implements gfx.Texture.
func (t *Texture) Width() int { return t.width }

// Height implements gfx.Texture.
func (t *Texture) Height() int { return t.height }

// SizeInBytes implements gfx.Texture.
func (t *Texture) SizeInBytes() int { return t.width * t.height * 4 }

// VertexArray is a recorded vertex array.
type VertexArray struct {
	res
	Desc gfx.VertexArrayDesc
}

// PickID is a recorded pick id.
type PickID struct {
	res
	owner any
	color [4]float32
}

// Color implements gfx.PickID.
func (p *PickID) Color() [4]float32 { return p.color }

// Owner implements gfx.PickID.
func (p *PickID) Owner() any { return p.owner }

// SetOwner implements gfx.PickID.
func (p *PickID) SetOwner(owner any) { p.owner = owner }

var _ gfx.Context = (*Context)(nil)

// Solid returns a w x h image, handy for texture tests.
func Solid(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}
