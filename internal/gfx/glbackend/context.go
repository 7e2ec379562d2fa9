// Package glbackend implements gfx.Context on an OpenGL 4.1 core context.
//
// Every call must happen on the thread that owns the GL context. The window
// package locks the main OS thread for that.
package glbackend

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/internal/logger"
)

// Context creates GL objects for the model runtime.
type Context struct {
	log  *zap.Logger
	caps gfx.Capabilities

	nextID     uint64
	nextPick   uint32
	picks      map[uint32]*PickID
	defaultTex *Texture
}

// New initializes the GL function pointers and queries capabilities. It must
// be called after the GL context is made current.
func New(width, height int) (*Context, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	c := &Context{
		log:   logger.Named("glbackend"),
		picks: make(map[uint32]*PickID),
	}

	var maxTex int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxTex)
	var stencilBits int32
	gl.GetFramebufferAttachmentParameteriv(gl.FRAMEBUFFER, gl.STENCIL,
		gl.FRAMEBUFFER_ATTACHMENT_STENCIL_SIZE, &stencilBits)
	c.caps = gfx.Capabilities{
		StencilBuffer:       stencilBits > 0,
		OctahedralCubeMaps:  true,
		MaxTextureSize:      int(maxTex),
		DrawingBufferWidth:  width,
		DrawingBufferHeight: height,
	}

	c.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int32("maxTextureSize", maxTex),
		zap.Int32("stencilBits", stencilBits))

	white := gfx.DefaultSampler()
	tex, err := c.createTexture2D("default", 1, 1, []byte{255, 255, 255, 255}, white)
	if err != nil {
		return nil, err
	}
	c.defaultTex = tex
	return c, nil
}

// Close releases the default texture.
func (c *Context) Close() error {
	if c.defaultTex == nil {
		return nil
	}
	err := c.defaultTex.Destroy()
	c.defaultTex = nil
	return err
}

// Resize records the drawing buffer size and updates the viewport.
func (c *Context) Resize(width, height int) {
	c.caps.DrawingBufferWidth = width
	c.caps.DrawingBufferHeight = height
	gl.Viewport(0, 0, int32(width), int32(height))
	c.log.Debug("drawing buffer resized", zap.Int("width", width), zap.Int("height", height))
}

// Capabilities implements gfx.Context.
func (c *Context) Capabilities() gfx.Capabilities { return c.caps }

// DefaultTexture implements gfx.Context.
func (c *Context) DefaultTexture() gfx.Texture { return c.defaultTex }

func (c *Context) id() uint64 {
	c.nextID++
	return c.nextID
}

// CreateVertexBuffer implements gfx.Context.
func (c *Context) CreateVertexBuffer(data []byte) (gfx.Buffer, error) {
	return c.createBuffer(gl.ARRAY_BUFFER, data, 0)
}

// CreateIndexBuffer implements gfx.Context.
func (c *Context) CreateIndexBuffer(data []byte, t gfx.IndexType) (gfx.Buffer, error) {
	return c.createBuffer(gl.ELEMENT_ARRAY_BUFFER, data, t)
}

func (c *Context) createBuffer(target uint32, data []byte, t gfx.IndexType) (*Buffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("glbackend: empty buffer")
	}
	b := &Buffer{id: c.id(), target: target, size: len(data), indexType: t}
	gl.GenBuffers(1, &b.handle)
	gl.BindBuffer(target, b.handle)
	gl.BufferData(target, len(data), gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(target, 0)
	if err := glError("buffer data"); err != nil {
		gl.DeleteBuffers(1, &b.handle)
		return nil, err
	}
	return b, nil
}

// CreateTexture implements gfx.Context.
func (c *Context) CreateTexture(desc gfx.TextureDesc) (gfx.Texture, error) {
	if desc.Image == nil {
		return nil, fmt.Errorf("glbackend: texture %q has no image", desc.Label)
	}
	b := desc.Image.Bounds()
	if limit := c.caps.MaxTextureSize; limit > 0 && (b.Dx() > limit || b.Dy() > limit) {
		return nil, fmt.Errorf("glbackend: texture %q is %dx%d, limit %d", desc.Label, b.Dx(), b.Dy(), limit)
	}
	return c.createTexture2D(desc.Label, b.Dx(), b.Dy(), desc.Image.Pix, desc.Sampler)
}

func (c *Context) createTexture2D(label string, w, h int, pix []byte, s gfx.Sampler) (*Texture, error) {
	t := &Texture{id: c.id(), width: w, height: h}
	gl.GenTextures(1, &t.handle)
	gl.BindTexture(gl.TEXTURE_2D, t.handle)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, int32(s.WrapS))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, int32(s.WrapT))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, int32(s.MinFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, int32(s.MagFilter))
	if s.UsesMipmaps() {
		gl.GenerateMipmap(gl.TEXTURE_2D)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	if err := glError("texture " + label); err != nil {
		gl.DeleteTextures(1, &t.handle)
		return nil, err
	}
	return t, nil
}

// CreateVertexArray implements gfx.Context.
func (c *Context) CreateVertexArray(desc gfx.VertexArrayDesc) (gfx.VertexArray, error) {
	va := &VertexArray{id: c.id()}
	gl.GenVertexArrays(1, &va.handle)
	gl.BindVertexArray(va.handle)
	for _, a := range desc.Attributes {
		buf, ok := a.Buffer.(*Buffer)
		if !ok {
			gl.BindVertexArray(0)
			gl.DeleteVertexArrays(1, &va.handle)
			return nil, fmt.Errorf("glbackend: vertex array %q: attribute %d has a foreign buffer", desc.Label, a.Index)
		}
		gl.BindBuffer(gl.ARRAY_BUFFER, buf.handle)
		gl.VertexAttribPointerWithOffset(uint32(a.Index), int32(a.ComponentsPerAttribute),
			uint32(a.ComponentType), a.Normalize, int32(a.Stride), uintptr(a.Offset))
		gl.EnableVertexAttribArray(uint32(a.Index))
	}
	if desc.IndexBuffer != nil {
		if ib, ok := desc.IndexBuffer.(*Buffer); ok {
			gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ib.handle)
		}
	}
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	if err := glError("vertex array " + desc.Label); err != nil {
		gl.DeleteVertexArrays(1, &va.handle)
		return nil, err
	}
	return va, nil
}

// CreatePickID implements gfx.Context. The color encodes a key resolvable
// with Pick.
func (c *Context) CreatePickID(owner any) gfx.PickID {
	c.nextPick++
	key := c.nextPick
	p := &PickID{ctx: c, key: key, owner: owner}
	c.picks[key] = p
	return p
}

// Pick returns the owner of the pick color read back from the pick pass.
func (c *Context) Pick(rgba [4]byte) (any, bool) {
	key := uint32(rgba[0]) | uint32(rgba[1])<<8 | uint32(rgba[2])<<16
	p, ok := c.picks[key]
	if !ok {
		return nil, false
	}
	return p.owner, true
}

func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("glbackend: %s: GL error 0x%x", op, code)
	}
	return nil
}

var _ gfx.Context = (*Context)(nil)
