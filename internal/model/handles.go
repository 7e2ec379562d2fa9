package model

import (
	"fmt"

	"github.com/Faultbox/midgard-gltf/internal/asset"
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// PickedObject is what a pick of one of the model's commands resolves to.
type PickedObject struct {
	Model *Model
	// ID is the model's ID at the time of the pick.
	ID        any
	Node      int
	Mesh      int
	Primitive int
}

// Node is a handle to a runtime node of a loaded model.
type Node struct {
	m     *Model
	index int
}

// Node returns the first node with the given name. It is only available
// once the model is loaded.
func (m *Model) Node(name string) (*Node, bool) {
	if m.graph == nil {
		return nil, false
	}
	i, ok := m.asset.NodeByName(name)
	if !ok {
		return nil, false
	}
	return &Node{m: m, index: i}, true
}

func (n *Node) Name() string { return n.m.graph.Nodes[n.index].Name }
func (n *Node) Index() int   { return n.index }

// Show reports whether the node's own show flag is set.
func (n *Node) Show() bool { return n.m.nodeShow[n.index] }

// SetShow hides or shows the node and everything below it.
func (n *Node) SetShow(show bool) {
	if n.m.nodeShow[n.index] == show {
		return
	}
	n.m.nodeShow[n.index] = show
	n.m.perNodeShowDirty = true
}

// Matrix returns the node's effective local transform.
func (n *Node) Matrix() math.Mat4 { return n.m.graph.Nodes[n.index].LocalMatrix() }

// SetMatrix overrides the local transform from the asset and animations.
func (n *Node) SetMatrix(mat math.Mat4) {
	n.m.graph.SetPublicMatrix(n.index, mat)
	n.m.animationsDirty = true
}

// ClearMatrix restores the asset transform.
func (n *Node) ClearMatrix() {
	n.m.graph.ClearPublicMatrix(n.index)
	n.m.animationsDirty = true
}

// WorldMatrix returns the node's transform as of the last update.
func (n *Node) WorldMatrix() math.Mat4 { return n.m.graph.Nodes[n.index].Computed }

// Mesh is a handle to a mesh of a loaded model.
type Mesh struct {
	m     *Model
	index int
}

// Mesh returns the first mesh with the given name.
func (m *Model) Mesh(name string) (*Mesh, bool) {
	if m.graph == nil {
		return nil, false
	}
	i, ok := m.asset.MeshByName(name)
	if !ok {
		return nil, false
	}
	return &Mesh{m: m, index: i}, true
}

func (h *Mesh) Name() string { return h.m.asset.Meshes[h.index].Name }
func (h *Mesh) Index() int   { return h.index }

// Materials returns the materials of the mesh's primitives, once each.
func (h *Mesh) Materials() []*Material {
	seen := make(map[int]bool)
	var out []*Material
	for _, p := range h.m.asset.Meshes[h.index].Primitives {
		if seen[p.Material] {
			continue
		}
		seen[p.Material] = true
		out = append(out, &Material{m: h.m, index: p.Material})
	}
	return out
}

// Material is a handle to a runtime material. Value changes take effect on
// the next draw without rebuilding commands.
type Material struct {
	m     *Model
	index int
}

// Material returns the first material with the given name.
func (m *Model) Material(name string) (*Material, bool) {
	if m.materials == nil {
		return nil, false
	}
	i, ok := m.asset.MaterialByName(name)
	if !ok {
		return nil, false
	}
	return &Material{m: m, index: i}, true
}

func (h *Material) Name() string { return h.m.materials[h.index].Name }
func (h *Material) Index() int   { return h.index }

// Value returns the current value of a material parameter.
func (h *Material) Value(name string) (asset.Value, bool) {
	v, ok := h.m.materials[h.index].Values[name]
	return v, ok
}

// SetValue changes a material parameter. Only parameters the material
// declares can be changed.
func (h *Material) SetValue(name string, v asset.Value) error {
	mat := h.m.materials[h.index]
	if _, ok := mat.Values[name]; !ok {
		return fmt.Errorf("model: material %q has no value %q", mat.Name, name)
	}
	mat.Values[name] = v
	return nil
}

// SetArticulationStage sets a stage addressed as "<articulation> <stage>".
// The value takes effect on ApplyArticulations.
func (m *Model) SetArticulationStage(key string, value float32) error {
	if m.articulations == nil {
		return fmt.Errorf("model: no articulations")
	}
	return m.articulations.SetStage(key, value)
}

// ApplyArticulations moves the attach points of every changed articulation.
func (m *Model) ApplyArticulations() {
	if m.articulations == nil {
		return
	}
	m.articulations.Apply(m.graph)
	m.animationsDirty = true
}
