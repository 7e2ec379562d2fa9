package model

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/internal/animation"
	"github.com/Faultbox/midgard-gltf/internal/asset"
	"github.com/Faultbox/midgard-gltf/internal/drawcmd"
	"github.com/Faultbox/midgard-gltf/internal/gfx"
	"github.com/Faultbox/midgard-gltf/internal/rescache"
	"github.com/Faultbox/midgard-gltf/internal/scenegraph"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// buildRuntimeNodes creates the scene graph, the animation collection, the
// articulations and one node command per primitive of every node reachable
// from a root.
func (m *Model) buildRuntimeNodes() {
	a, b := m.asset, m.bundle

	nodes := make([]scenegraph.Node, len(a.Nodes))
	for i, n := range a.Nodes {
		sn := scenegraph.Node{
			Name:             n.Name,
			Translation:      n.Translation,
			Rotation:         n.Rotation,
			Scale:            n.Scale,
			Children:         append([]int(nil), n.Children...),
			Weights:          append([]float32(nil), n.Weights...),
			Mesh:             -1,
			ArticulationName: n.ArticulationName,
		}
		if n.Matrix != nil {
			sn.HasMatrix = true
			sn.Matrix = *n.Matrix
		}
		if n.Mesh != nil && *n.Mesh >= 0 && *n.Mesh < len(a.Meshes) {
			sn.Mesh = *n.Mesh
		}
		if n.Skin != nil {
			sn.Skin = m.runtimeSkin(i, *n.Skin)
		}
		nodes[i] = sn
	}
	m.graph = scenegraph.New(nodes, a.Roots)
	m.animations = animation.NewCollection(b.Animations, m.graph)

	if len(a.Articulations) > 0 {
		arts := make([]scenegraph.Articulation, len(a.Articulations))
		for i, art := range a.Articulations {
			arts[i].Name = art.Name
			for _, s := range art.Stages {
				arts[i].Stages = append(arts[i].Stages, scenegraph.Stage{
					Name:  s.Name,
					Type:  s.Type,
					Min:   s.Minimum,
					Max:   s.Maximum,
					Value: s.Initial,
				})
			}
		}
		m.articulations = scenegraph.NewArticulations(m.graph, arts)
	}

	m.nodeShow = make([]bool, len(nodes))
	for i := range m.nodeShow {
		m.nodeShow[i] = true
	}

	for _, ni := range m.reachableNodes() {
		mi := m.graph.Nodes[ni].Mesh
		if mi < 0 {
			continue
		}
		for pi, p := range a.Meshes[mi].Primitives {
			nc := m.createCommand(ni, mi, pi, p)
			if nc == nil {
				continue
			}
			m.graph.Nodes[ni].Commands = append(m.graph.Nodes[ni].Commands, len(m.nodeCommands))
			m.nodeCommands = append(m.nodeCommands, nc)
		}
	}
	m.log.Debug("runtime nodes built",
		zap.Int("nodes", len(nodes)),
		zap.Int("commands", len(m.nodeCommands)),
		zap.Int("animations", len(b.Animations)))
}

func (m *Model) runtimeSkin(node, index int) *scenegraph.Skin {
	a := m.asset
	if index < 0 || index >= len(a.Skins) {
		return nil
	}
	s := a.Skins[index]
	for _, j := range s.Joints {
		if j < 0 || j >= len(a.Nodes) {
			m.log.Warn("skin references a missing joint, ignoring skin",
				zap.Int("node", node), zap.Int("skin", index), zap.Int("joint", j))
			return nil
		}
	}
	var ibm []math.Mat4
	if index < len(m.bundle.InverseBindMatrices) {
		ibm = m.bundle.InverseBindMatrices[index]
	}
	return &scenegraph.Skin{
		Joints:              append([]int(nil), s.Joints...),
		InverseBindMatrices: ibm,
		BindShapeMatrix:     s.BindShapeMatrix,
	}
}

// reachableNodes lists the nodes reachable from the roots in depth-first
// order, each once.
func (m *Model) reachableNodes() []int {
	g := m.graph
	seen := make([]bool, len(g.Nodes))
	var out []int
	var walk func(i int)
	walk = func(i int) {
		if seen[i] {
			return
		}
		seen[i] = true
		out = append(out, i)
		for _, c := range g.Nodes[i].Children {
			walk(c)
		}
	}
	for _, r := range g.Roots {
		walk(r)
	}
	return out
}

func (m *Model) createCommand(ni, mi, pi int, p asset.Primitive) *drawcmd.NodeCommand {
	a, b := m.asset, m.bundle
	key := rescache.PrimitiveKey{Mesh: mi, Primitive: pi}
	va := b.VertexArrays[key]
	prog := m.programs.Programs[p.Technique]
	rs := b.RenderStates[p.Material]
	if va == nil || prog == nil || rs == nil {
		m.log.Warn("primitive has no resources, not drawn",
			zap.Int("node", ni), zap.Int("mesh", mi), zap.Int("primitive", pi))
		return nil
	}

	cmd := &drawcmd.DrawCommand{
		Primitive:               p.Mode,
		VertexArray:             va,
		Program:                 prog,
		RenderState:             rs,
		ModelMatrix:             math.Identity(),
		BoundingVolume:          b.Bounds[key],
		Pass:                    drawcmd.PassOpaque,
		Cull:                    m.opts.Cull,
		CastShadows:             m.Shadows.casts(),
		ReceiveShadows:          m.Shadows.receives(),
		DebugShowBoundingVolume: m.DebugShowBoundingVolume,
	}
	if p.Indices != nil {
		acc := a.Accessors[*p.Indices]
		cmd.Indexed = true
		cmd.Count = acc.Count
		if acc.BufferView != nil {
			cmd.IndexType = a.BufferViews[*acc.BufferView].IndexType
		}
		cmd.Offset = acc.ByteOffset / cmd.IndexType.SizeInBytes()
	} else if pos, ok := p.Attributes["POSITION"]; ok {
		cmd.Count = a.Accessors[pos].Count
	}
	if m.materials[p.Material].AlphaMode == asset.AlphaBlend {
		cmd.Pass = drawcmd.PassTranslucent
	}

	owner := &PickedObject{Model: m, ID: m.ID, Node: ni, Mesh: mi, Primitive: pi}
	cmd.Owner = owner
	if m.opts.AllowPicking {
		cmd.PickID = m.gfx.CreatePickID(owner)
		m.pickIDs = append(m.pickIDs, cmd.PickID)
	}
	m.owners = append(m.owners, owner)

	programID := a.Techniques[p.Technique].Program
	cmd.Uniforms = m.commandUniforms(ni, programID, p, cmd.PickID)

	m.primitiveModes = append(m.primitiveModes, p.Mode)
	m.trianglesLength += triangleCount(p.Mode, cmd.Count)

	return &drawcmd.NodeCommand{
		Show:           true,
		BoundingSphere: b.Bounds[key],
		Command:        cmd,
		TechniqueID:    p.Technique,
		ProgramID:      programID,
		Node:           ni,
		Mesh:           mi,
		Primitive:      pi,
	}
}

// commandUniforms binds the material map, the model map, dequantization
// constants, the node's joint matrices and the pick color.
func (m *Model) commandUniforms(ni, programID int, p asset.Primitive, pick gfx.PickID) drawcmd.UniformMap {
	mu := m.materialUniforms[uniformKey{material: p.Material, technique: p.Technique}]
	var u drawcmd.UniformMap
	if mu != nil {
		u = drawcmd.Combine(mu.uniforms, m.modelUniformMap)
	} else {
		u = drawcmd.Combine(m.modelUniformMap)
	}
	for _, d := range m.programs.Decode[p.Technique] {
		u[d.Name] = drawcmd.Constant(decodeValue(d))
	}
	if mu != nil && mu.jointMatrix != "" {
		u[mu.jointMatrix] = func(*drawcmd.UniformState) any {
			if s := m.graph.Nodes[ni].Skin; s != nil {
				return s.JointMatrices
			}
			return []math.Mat4(nil)
		}
	}
	if pick != nil && m.opts.UniformMapLoaded == nil {
		u["czm_pickColor"] = drawcmd.Constant(pick.Color())
	}
	if hook := m.opts.UniformMapLoaded; hook != nil {
		u = hook(u, programID, ni)
	}
	return u
}

func triangleCount(mode gfx.PrimitiveType, count int) int {
	switch mode {
	case gfx.Triangles:
		return count / 3
	case gfx.TriangleStrip, gfx.TriangleFan:
		return max(count-2, 0)
	default:
		return 0
	}
}

// updateTransforms runs animations, recomputes the placement matrix when it
// changed and propagates dirty node transforms to their commands. Joint
// matrices follow whenever a node moved.
func (m *Model) updateTransforms(fs *FrameState, justLoaded bool) {
	animated := m.animations.Update(fs.Time) || m.animationsDirty
	m.animationsDirty = false

	scale := m.getScale(fs)
	modelChanged := justLoaded ||
		!m.ModelMatrix.Equal(m.prevModelMatrix, 0) ||
		m.Scale != m.prevScale ||
		m.MinimumPixelSize != m.prevMinimumPixelSize ||
		m.MinimumPixelSize != 0 ||
		m.MaximumScale != m.prevMaximumScale
	if modelChanged {
		m.prevModelMatrix = m.ModelMatrix
		m.prevScale = m.Scale
		m.prevMinimumPixelSize = m.MinimumPixelSize
		m.prevMaximumScale = m.MaximumScale

		cm := m.ModelMatrix.MulUniformScale(scale)
		switch m.opts.UpAxis {
		case math.AxisY:
			cm = cm.MulTransformation(math.YUpToZUp)
		case math.AxisX:
			cm = cm.MulTransformation(math.XUpToZUp)
		}
		if m.opts.ForwardAxis == math.AxisZ {
			cm = cm.MulTransformation(math.ZUpToXUp)
		}
		m.computedModelMatrix = cm
	}
	if !animated && !modelChanged {
		return
	}

	m.graph.Propagate(m.computedModelMatrix, modelChanged, justLoaded, func(_ int, n *scenegraph.Node) {
		for _, ci := range n.Commands {
			nc := m.nodeCommands[ci]
			bv := nc.BoundingSphere.Transform(n.Computed)
			for _, cmd := range variants(nc) {
				cmd.ModelMatrix = n.Computed
				cmd.BoundingVolume = bv
			}
		}
	})
	m.graph.ApplySkins()
}

// updatePerNodeShow hides the commands of nodes with no shown path from a
// root.
func (m *Model) updatePerNodeShow() {
	if !m.perNodeShowDirty {
		return
	}
	m.perNodeShowDirty = false

	g := m.graph
	visible := make([]bool, len(g.Nodes))
	visited := make([]bool, len(g.Nodes))
	var walk func(i int, parentShow bool)
	walk = func(i int, parentShow bool) {
		show := parentShow && m.nodeShow[i]
		if visited[i] && (visible[i] || !show) {
			return
		}
		visited[i] = true
		visible[i] = visible[i] || show
		for _, c := range g.Nodes[i].Children {
			walk(c, show)
		}
	}
	for _, r := range g.Roots {
		walk(r, true)
	}
	for _, nc := range m.nodeCommands {
		nc.Show = visible[nc.Node]
	}
}

// updatePickIDs reports the new ID from picks once ID changes.
func (m *Model) updatePickIDs() {
	if m.ID == m.prevID {
		return
	}
	m.prevID = m.ID
	for _, o := range m.owners {
		o.ID = m.ID
	}
}

// updateWireframe draws triangle primitives as lines while DebugWireframe is set.
func (m *Model) updateWireframe() {
	if m.DebugWireframe == m.prevWireframe {
		return
	}
	m.prevWireframe = m.DebugWireframe
	for i, nc := range m.nodeCommands {
		mode := m.primitiveModes[i]
		if m.DebugWireframe && (mode == gfx.Triangles || mode == gfx.TriangleStrip || mode == gfx.TriangleFan) {
			mode = gfx.Lines
		}
		for _, cmd := range variants(nc) {
			cmd.Primitive = mode
		}
	}
}

func (m *Model) updateShowBoundingVolume() {
	if m.DebugShowBoundingVolume == m.prevShowBV {
		return
	}
	m.prevShowBV = m.DebugShowBoundingVolume
	for _, nc := range m.nodeCommands {
		for _, cmd := range variants(nc) {
			cmd.DebugShowBoundingVolume = m.DebugShowBoundingVolume
		}
	}
}

func (m *Model) updateShadows() {
	if m.Shadows == m.prevShadows {
		return
	}
	m.prevShadows = m.Shadows
	for _, nc := range m.nodeCommands {
		for _, cmd := range variants(nc) {
			cmd.CastShadows = m.Shadows.casts()
			cmd.ReceiveShadows = m.Shadows.receives()
		}
	}
}
