package glbackend

import (
	"sort"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/drawcmd"
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// Submitter executes draw command lists on the GL context.
type Submitter struct {
	ctx   *Context
	state *gfx.RenderState
	// warned holds uniforms whose value type was already reported as unsupported.
	warned map[string]bool
}

// NewSubmitter returns a submitter for ctx.
func NewSubmitter(ctx *Context) *Submitter {
	return &Submitter{ctx: ctx, warned: make(map[string]bool)}
}

// Begin clears the drawing buffer.
func (s *Submitter) Begin(color [4]float32) {
	gl.ClearColor(color[0], color[1], color[2], color[3])
	gl.DepthMask(true)
	gl.StencilMask(0xff)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT | gl.STENCIL_BUFFER_BIT)
	s.state = nil
}

// Submit draws cmds, opaque pass first. Commands keep their relative order
// within a pass so silhouette color passes follow their model passes.
func (s *Submitter) Submit(cmds []*drawcmd.DrawCommand, view, projection math.Mat4) {
	sorted := append([]*drawcmd.DrawCommand(nil), cmds...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Pass < sorted[j].Pass })

	caps := s.ctx.Capabilities()
	us := drawcmd.NewUniformState()
	us.View = view
	us.Projection = projection
	us.Viewport = [4]float32{0, 0, float32(caps.DrawingBufferWidth), float32(caps.DrawingBufferHeight)}

	for _, cmd := range sorted {
		prog, ok := cmd.Program.(*Program)
		if !ok || prog.handle == 0 {
			continue
		}
		va, ok := cmd.VertexArray.(*VertexArray)
		if !ok || va.handle == 0 {
			continue
		}
		us.Model = cmd.ModelMatrix
		s.applyRenderState(cmd.RenderState)
		gl.UseProgram(prog.handle)
		s.bindUniforms(prog, cmd.Uniforms, us)

		gl.BindVertexArray(va.handle)
		mode := primitiveMode(cmd.Primitive)
		if cmd.Indexed {
			offset := cmd.Offset * cmd.IndexType.SizeInBytes()
			gl.DrawElements(mode, int32(cmd.Count), uint32(cmd.IndexType), gl.PtrOffset(offset))
		} else {
			gl.DrawArrays(mode, int32(cmd.Offset), int32(cmd.Count))
		}
	}
	gl.BindVertexArray(0)
	gl.UseProgram(0)
}

func primitiveMode(p gfx.PrimitiveType) uint32 {
	switch p {
	case gfx.Points:
		return gl.POINTS
	case gfx.Lines:
		return gl.LINES
	case gfx.LineLoop:
		return gl.LINE_LOOP
	case gfx.LineStrip:
		return gl.LINE_STRIP
	case gfx.TriangleStrip:
		return gl.TRIANGLE_STRIP
	case gfx.TriangleFan:
		return gl.TRIANGLE_FAN
	default:
		return gl.TRIANGLES
	}
}

func enable(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}

// applyRenderState sets the fixed-function state. Render states are interned,
// so pointer equality skips redundant changes.
func (s *Submitter) applyRenderState(rs *gfx.RenderState) {
	if rs == nil || rs == s.state {
		return
	}
	s.state = rs

	enable(gl.CULL_FACE, rs.Cull.Enabled)
	if rs.Cull.BackFaces {
		gl.CullFace(gl.BACK)
	} else {
		gl.CullFace(gl.FRONT)
	}
	enable(gl.DEPTH_TEST, rs.Depth.Enabled)
	if rs.Depth.Func != 0 {
		gl.DepthFunc(uint32(rs.Depth.Func))
	}
	gl.DepthMask(rs.DepthMask)
	w := !rs.NoColorWrites
	gl.ColorMask(w, w, w, w)

	enable(gl.BLEND, rs.Blending.Enabled)
	if rs.Blending.Enabled {
		b := rs.Blending
		gl.BlendFuncSeparate(uint32(b.SrcRGB), uint32(b.DstRGB), uint32(b.SrcAlpha), uint32(b.DstAlpha))
	}

	enable(gl.STENCIL_TEST, rs.Stencil.Enabled)
	if st := rs.Stencil; st.Enabled {
		gl.StencilFunc(uint32(st.Func), int32(st.Ref), st.Mask)
		gl.StencilOp(uint32(st.Fail), uint32(st.DepthFail), uint32(st.DepthPass))
	}
}

func (s *Submitter) bindUniforms(p *Program, u drawcmd.UniformMap, us *drawcmd.UniformState) {
	unit := int32(0)
	for name, fn := range u {
		loc := p.uniform(name)
		if loc < 0 {
			continue
		}
		switch v := fn(us).(type) {
		case float32:
			gl.Uniform1f(loc, v)
		case int:
			gl.Uniform1i(loc, int32(v))
		case bool:
			var i int32
			if v {
				i = 1
			}
			gl.Uniform1i(loc, i)
		case [2]float32:
			gl.Uniform2f(loc, v[0], v[1])
		case math.Vec3:
			gl.Uniform3f(loc, v.X, v.Y, v.Z)
		case [4]float32:
			gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
		case math.Vec4:
			gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
		case drawcmd.Mat2:
			gl.UniformMatrix2fv(loc, 1, false, &v[0])
		case drawcmd.Mat3:
			gl.UniformMatrix3fv(loc, 1, false, &v[0])
		case math.Mat4:
			gl.UniformMatrix4fv(loc, 1, false, v.Ptr())
		case []math.Mat4:
			if len(v) > 0 {
				gl.UniformMatrix4fv(loc, int32(len(v)), false, v[0].Ptr())
			}
		case []math.Vec3:
			if len(v) > 0 {
				gl.Uniform3fv(loc, int32(len(v)), &v[0].X)
			}
		case []math.Vec4:
			if len(v) > 0 {
				gl.Uniform4fv(loc, int32(len(v)), &v[0][0])
			}
		case []float32:
			if len(v) > 0 {
				gl.Uniform1fv(loc, int32(len(v)), &v[0])
			}
		case gfx.Texture:
			tex, ok := v.(*Texture)
			if !ok {
				tex = s.ctx.defaultTex
			}
			gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
			gl.BindTexture(gl.TEXTURE_2D, tex.handle)
			gl.Uniform1i(loc, unit)
			unit++
		case nil:
		default:
			if !s.warned[name] {
				s.warned[name] = true
				s.ctx.log.Warn("unsupported uniform value type", zap.String("uniform", name), zap.Any("value", v))
			}
		}
	}
}
