package glbackend

import (
	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/midgard-gltf/internal/gfx"
)

// Buffer is a GL buffer object.
type Buffer struct {
	id        uint64
	handle    uint32
	target    uint32
	size      int
	indexType gfx.IndexType
}

func (b *Buffer) ID() uint64       { return b.id }
func (b *Buffer) SizeInBytes() int { return b.size }

// Destroy implements gfx.Resource.
func (b *Buffer) Destroy() error {
	if b.handle == 0 {
		return gfx.ErrDestroyed
	}
	gl.DeleteBuffers(1, &b.handle)
	b.handle = 0
	return nil
}

// Texture is a GL 2D texture.
type Texture struct {
	id            uint64
	handle        uint32
	width, height int
}

func (t *Texture) ID() uint64       { return t.id }
func (t *Texture) Width() int       { return t.width }
func (t *Texture) Height() int      { return t.height }
func (t *Texture) SizeInBytes() int { return t.width * t.height * 4 }

// Destroy implements gfx.Resource.
func (t *Texture) Destroy() error {
	if t.handle == 0 {
		return gfx.ErrDestroyed
	}
	gl.DeleteTextures(1, &t.handle)
	t.handle = 0
	return nil
}

// VertexArray is a GL vertex array object.
type VertexArray struct {
	id     uint64
	handle uint32
}

func (v *VertexArray) ID() uint64 { return v.id }

// Destroy implements gfx.Resource.
func (v *VertexArray) Destroy() error {
	if v.handle == 0 {
		return gfx.ErrDestroyed
	}
	gl.DeleteVertexArrays(1, &v.handle)
	v.handle = 0
	return nil
}

// PickID maps a unique color back to its owner.
type PickID struct {
	ctx   *Context
	key   uint32
	owner any
}

// Color implements gfx.PickID.
func (p *PickID) Color() [4]float32 {
	return [4]float32{
		float32(p.key&0xff) / 255,
		float32((p.key>>8)&0xff) / 255,
		float32((p.key>>16)&0xff) / 255,
		1,
	}
}

func (p *PickID) Owner() any         { return p.owner }
func (p *PickID) SetOwner(owner any) { p.owner = owner }

// Destroy implements gfx.PickID.
func (p *PickID) Destroy() error {
	if _, ok := p.ctx.picks[p.key]; !ok {
		return gfx.ErrDestroyed
	}
	delete(p.ctx.picks, p.key)
	return nil
}
