package model

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/drawcmd"
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/internal/shadergen"
)

var white = [4]float32{1, 1, 1, 1}

// colorShading reports whether gltf_color has to be compiled in.
func (m *Model) colorShading() bool {
	return m.Color != white || m.ColorBlendMode != shadergen.BlendHighlight
}

func (m *Model) isTranslucent() bool {
	a := m.Color[3]
	return a > 0 && a < 1
}

func (m *Model) isInvisible() bool {
	return m.Color[3] == 0
}

// hasSilhouette reports whether the silhouette passes are drawn this frame.
// Without a stencil buffer the silhouette is skipped and a warning logged once.
func (m *Model) hasSilhouette(ctx gfx.Context) bool {
	if m.SilhouetteSize <= 0 || m.SilhouetteColor[3] <= 0 {
		return false
	}
	if !ctx.Capabilities().StencilBuffer {
		if !m.silhouetteWarned {
			m.silhouetteWarned = true
			m.log.Warn("silhouette needs a stencil buffer, skipping",
				zap.String("uri", m.uri),
				zap.Stringer("kind", UnsupportedFeature))
		}
		return false
	}
	return true
}

// variants returns the commands of nc that exist.
func variants(nc *drawcmd.NodeCommand) []*drawcmd.DrawCommand {
	out := make([]*drawcmd.DrawCommand, 0, 5)
	for _, c := range []*drawcmd.DrawCommand{
		nc.Command, nc.Translucent, nc.DisableCulling, nc.SilhouetteModel, nc.SilhouetteColor,
	} {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

// updateColor derives the translucent variants the first time the model
// becomes translucent. They are kept when it turns opaque again.
func (m *Model) updateColor(translucent bool) {
	if !translucent {
		return
	}
	for _, nc := range m.nodeCommands {
		if nc.Translucent == nil {
			nc.Translucent = drawcmd.DeriveTranslucent(nc.Command)
		}
	}
}

func (m *Model) updateBackFaceCulling() {
	if m.BackFaceCulling {
		return
	}
	for _, nc := range m.nodeCommands {
		if nc.DisableCulling == nil {
			nc.DisableCulling = drawcmd.DeriveDisableCulling(nc.Command)
		}
	}
}

// alphaClass buckets an alpha into invisible, translucent and opaque; the
// silhouette passes depend only on the bucket.
func alphaClass(a float32) int {
	switch {
	case a <= 0:
		return 0
	case a < 1:
		return 1
	default:
		return 2
	}
}

// updateSilhouette derives missing silhouette passes and rebuilds all of
// them when the model or silhouette alpha moves between buckets.
func (m *Model) updateSilhouette(silhouette, translucent bool) {
	if !silhouette {
		return
	}
	class := [2]int{alphaClass(m.Color[3]), alphaClass(m.SilhouetteColor[3])}
	dirty := class != m.prevAlphaClass
	m.prevAlphaClass = class

	for _, nc := range m.nodeCommands {
		if nc.SilhouetteModel != nil && !dirty {
			continue
		}
		prog, ok := m.silhouetteProgram(nc.TechniqueID)
		if !ok {
			continue
		}
		modelCmd := nc.Command
		if translucent && nc.Translucent != nil {
			modelCmd = nc.Translucent
		}
		nc.SilhouetteModel, nc.SilhouetteColor = drawcmd.DeriveSilhouette(nc.Command, modelCmd, drawcmd.SilhouetteOptions{
			StencilReference: m.stencilReference,
			Invisible:        m.isInvisible(),
			Translucent:      m.SilhouetteColor[3] < 1,
			Program:          prog,
			Uniforms:         m.silhouetteUniforms(),
		})
	}
}

func (m *Model) silhouetteUniforms() drawcmd.UniformMap {
	return drawcmd.UniformMap{
		"gltf_silhouetteColor": func(*drawcmd.UniformState) any { return m.SilhouetteColor },
		"gltf_silhouetteSize":  func(*drawcmd.UniformState) any { return m.SilhouetteSize },
	}
}
