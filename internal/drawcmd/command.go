// Package drawcmd builds the per-primitive draw commands a model submits each
// frame, their lazily derived variants and the uniform bindings they carry.
package drawcmd

import (
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// Pass classifies a command for the renderer's sort order.
type Pass int

const (
	PassOpaque Pass = iota
	PassTranslucent
)

func (p Pass) String() string {
	if p == PassTranslucent {
		return "translucent"
	}
	return "opaque"
}

// DrawCommand is one GPU draw submission.
type DrawCommand struct {
	Primitive   gfx.PrimitiveType
	VertexArray gfx.VertexArray
	// Indexed draws read IndexType indices from the vertex array's index buffer.
	Indexed   bool
	IndexType gfx.IndexType
	Count     int
	Offset    int

	Program     gfx.Program
	RenderState *gfx.RenderState
	Uniforms    UniformMap

	ModelMatrix    math.Mat4
	BoundingVolume math.Sphere
	Pass           Pass
	Cull           bool

	CastShadows    bool
	ReceiveShadows bool

	PickID gfx.PickID
	// Owner is what a pick of this command resolves to.
	Owner any

	DebugShowBoundingVolume bool
}

// Clone returns a shallow copy. Uniform maps and GPU objects are shared.
func (c *DrawCommand) Clone() *DrawCommand {
	cp := *c
	return &cp
}

// NodeCommand groups the base command of a primitive with its derived
// variants. Variants are nil until first needed.
type NodeCommand struct {
	Show bool
	// BoundingSphere is in model space; Command.BoundingVolume is in world space.
	BoundingSphere math.Sphere

	Command         *DrawCommand
	Translucent     *DrawCommand
	DisableCulling  *DrawCommand
	SilhouetteModel *DrawCommand
	SilhouetteColor *DrawCommand

	TechniqueID int
	ProgramID   int
	Node        int
	Mesh        int
	Primitive   int
}

// DeriveTranslucent returns a copy of cmd drawn with alpha blending in the
// translucent pass.
func DeriveTranslucent(cmd *DrawCommand) *DrawCommand {
	rs := *cmd.RenderState
	rs.Cull.Enabled = false
	rs.Depth.Enabled = true
	rs.DepthMask = false
	rs.Blending = gfx.AlphaBlending

	out := cmd.Clone()
	out.RenderState = gfx.FromCache(rs)
	out.Pass = PassTranslucent
	return out
}

// DeriveDisableCulling returns a copy of cmd with face culling off.
func DeriveDisableCulling(cmd *DrawCommand) *DrawCommand {
	rs := *cmd.RenderState
	rs.Cull.Enabled = false

	out := cmd.Clone()
	out.RenderState = gfx.FromCache(rs)
	return out
}

// SilhouetteOptions drives DeriveSilhouette.
type SilhouetteOptions struct {
	// StencilReference is written by the model pass and tested by the color pass.
	StencilReference int
	// Invisible disables color and depth writes of the model pass.
	Invisible bool
	// Translucent draws the color pass in the translucent pass.
	Translucent bool
	// Program is the inflated silhouette program for cmd's program.
	Program  gfx.Program
	Uniforms UniformMap
}

// DeriveSilhouette returns the two silhouette passes. modelCmd is the command
// the model is normally drawn with (base or translucent); the color pass is
// derived from the base cmd.
func DeriveSilhouette(cmd, modelCmd *DrawCommand, opts SilhouetteOptions) (model, color *DrawCommand) {
	rs := *modelCmd.RenderState
	rs.Stencil = gfx.StencilState{
		Enabled:   true,
		Func:      gfx.CompareAlways,
		Ref:       opts.StencilReference,
		Mask:      ^uint32(0),
		Fail:      gfx.StencilKeep,
		DepthFail: gfx.StencilKeep,
		DepthPass: gfx.StencilReplace,
	}
	if opts.Invisible {
		rs.NoColorWrites = true
		rs.DepthMask = false
	}
	model = modelCmd.Clone()
	model.RenderState = gfx.FromCache(rs)

	rs = *cmd.RenderState
	rs.Depth.Enabled = true
	rs.Cull.Enabled = false
	color = cmd.Clone()
	if opts.Translucent {
		color.Pass = PassTranslucent
		rs.DepthMask = false
		rs.Blending = gfx.AlphaBlending
	}
	rs.Stencil = gfx.StencilState{
		Enabled:   true,
		Func:      gfx.CompareNotEqual,
		Ref:       opts.StencilReference,
		Mask:      ^uint32(0),
		Fail:      gfx.StencilKeep,
		DepthFail: gfx.StencilKeep,
		DepthPass: gfx.StencilKeep,
	}
	color.RenderState = gfx.FromCache(rs)
	color.Program = opts.Program
	color.Uniforms = Combine(cmd.Uniforms, opts.Uniforms)
	color.CastShadows = false
	color.ReceiveShadows = false
	return model, color
}

// Mode is the per-frame appearance state that picks a variant.
type Mode struct {
	Silhouette      bool
	Translucent     bool
	BackFaceCulling bool
}

// Select returns the variant of nc to draw: silhouette model pass first, then
// translucent, then disable-culling, then the base command. A variant that
// was never derived falls back to the base command.
func Select(nc *NodeCommand, m Mode) *DrawCommand {
	switch {
	case m.Silhouette && nc.SilhouetteModel != nil:
		return nc.SilhouetteModel
	case m.Translucent && nc.Translucent != nil:
		return nc.Translucent
	case !m.BackFaceCulling && nc.DisableCulling != nil:
		return nc.DisableCulling
	}
	return nc.Command
}

// Passes says which passes the frame renders.
type Passes struct {
	Render bool
	Pick   bool
}

// Emit appends the selected command of every shown node command to list. In
// the render pass the silhouette color commands follow all model commands.
func Emit(list []*DrawCommand, ncs []*NodeCommand, m Mode, passes Passes) []*DrawCommand {
	if !passes.Render && !passes.Pick {
		return list
	}
	for _, nc := range ncs {
		if nc.Show {
			list = append(list, Select(nc, m))
		}
	}
	if m.Silhouette && !passes.Pick {
		for _, nc := range ncs {
			if nc.Show && nc.SilhouetteColor != nil {
				list = append(list, nc.SilhouetteColor)
			}
		}
	}
	return list
}
