package gfx

import "sync"

// CompareFunc is a depth or stencil comparison (GL enum values).
type CompareFunc int

const (
	CompareNever    CompareFunc = 0x0200
	CompareLess     CompareFunc = 0x0201
	CompareEqual    CompareFunc = 0x0202
	CompareLEqual   CompareFunc = 0x0203
	CompareGreater  CompareFunc = 0x0204
	CompareNotEqual CompareFunc = 0x0205
	CompareGEqual   CompareFunc = 0x0206
	CompareAlways   CompareFunc = 0x0207
)

// StencilOp is a stencil buffer operation.
type StencilOp int

const (
	StencilKeep    StencilOp = 0x1E00
	StencilReplace StencilOp = 0x1E01
	StencilZero    StencilOp = 0
)

// BlendFunc is a blend factor.
type BlendFunc int

const (
	BlendZero             BlendFunc = 0
	BlendOne              BlendFunc = 1
	BlendSrcAlpha         BlendFunc = 0x0302
	BlendOneMinusSrcAlpha BlendFunc = 0x0303
)

// CullState controls face culling.
type CullState struct {
	Enabled   bool
	BackFaces bool
}

// DepthState controls the depth test.
type DepthState struct {
	Enabled bool
	Func    CompareFunc
}

// BlendState controls color blending.
type BlendState struct {
	Enabled  bool
	SrcRGB   BlendFunc
	DstRGB   BlendFunc
	SrcAlpha BlendFunc
	DstAlpha BlendFunc
}

// StencilState controls the stencil test and writes.
type StencilState struct {
	Enabled   bool
	Func      CompareFunc
	Ref       int
	Mask      uint32
	Fail      StencilOp
	DepthFail StencilOp
	DepthPass StencilOp
}

// RenderState is an immutable fixed-function state block. It is comparable,
// so identical states can share one pointer through a RenderStateCache.
type RenderState struct {
	Cull      CullState
	Depth     DepthState
	DepthMask bool
	// NoColorWrites masks all color channels.
	NoColorWrites bool
	Blending      BlendState
	Stencil       StencilState
}

// AlphaBlending is standard non-premultiplied alpha blending.
var AlphaBlending = BlendState{
	Enabled:  true,
	SrcRGB:   BlendSrcAlpha,
	DstRGB:   BlendOneMinusSrcAlpha,
	SrcAlpha: BlendOne,
	DstAlpha: BlendOneMinusSrcAlpha,
}

// Opaque returns the state for an opaque material.
func Opaque(cull bool) RenderState {
	return RenderState{
		Cull:      CullState{Enabled: cull, BackFaces: true},
		Depth:     DepthState{Enabled: true, Func: CompareLEqual},
		DepthMask: true,
	}
}

// RenderStateCache interns render states.
type RenderStateCache struct {
	mu     sync.Mutex
	states map[RenderState]*RenderState
}

// NewRenderStateCache returns an empty cache.
func NewRenderStateCache() *RenderStateCache {
	return &RenderStateCache{states: make(map[RenderState]*RenderState)}
}

// Get returns the shared pointer for rs.
func (c *RenderStateCache) Get(rs RenderState) *RenderState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.states[rs]; ok {
		return p
	}
	p := new(RenderState)
	*p = rs
	c.states[rs] = p
	return p
}

// Len returns the number of distinct states.
func (c *RenderStateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.states)
}

var defaultStates = NewRenderStateCache()

// FromCache interns rs in the process-wide cache.
func FromCache(rs RenderState) *RenderState {
	return defaultStates.Get(rs)
}
