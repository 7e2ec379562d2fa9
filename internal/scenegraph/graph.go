// Package scenegraph holds a model's runtime node hierarchy.
//
// Nodes live in an arena and reference each other by index. A node may be
// reached from several parents, so the hierarchy is a DAG. Transform
// propagation is dirty-tracked: writers stamp a node with the current
// MaxDirtyNumber and the next Propagate recomputes it and everything below.
package scenegraph

import (
	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// Node is one runtime node.
type Node struct {
	Name string

	// Local transform: Matrix when HasMatrix, otherwise TRS.
	HasMatrix   bool
	Matrix      math.Mat4
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3

	// PublicMatrix overrides the local transform when UsePublicMatrix is set.
	PublicMatrix    math.Mat4
	UsePublicMatrix bool

	TransformToRoot math.Mat4
	// Computed is the world matrix: model matrix times TransformToRoot.
	Computed    math.Mat4
	DirtyNumber uint64

	Children []int
	Parents  []int
	// Commands indexes the draw commands of the node's mesh primitives.
	Commands []int

	Skin    *Skin
	Weights []float32
	// Mesh is the mesh index, or -1.
	Mesh int

	// Attach point data for articulations.
	ArticulationName string
	baseMatrix       math.Mat4
}

// LocalMatrix returns the node's effective local transform.
func (n *Node) LocalMatrix() math.Mat4 {
	switch {
	case n.UsePublicMatrix:
		return n.PublicMatrix
	case n.HasMatrix:
		return n.Matrix
	default:
		return math.FromTRS(n.Translation, n.Rotation, n.Scale)
	}
}

// Skin holds the joint data of a skinned node.
type Skin struct {
	Joints              []int
	InverseBindMatrices []math.Mat4
	BindShapeMatrix     *math.Mat4
	JointMatrices       []math.Mat4
}

// Graph is the node arena.
type Graph struct {
	Nodes          []Node
	Roots          []int
	Skinned        []int
	MaxDirtyNumber uint64
}

// New builds a graph. Parents are derived from children; child links that
// would close a cycle or point outside the arena are dropped.
func New(nodes []Node, roots []int) *Graph {
	g := &Graph{Nodes: nodes}
	for i := range g.Nodes {
		g.Nodes[i].Parents = nil
		g.Nodes[i].TransformToRoot = math.Identity()
		g.Nodes[i].Computed = math.Identity()
		g.Nodes[i].baseMatrix = g.Nodes[i].LocalMatrix()
	}
	for _, r := range roots {
		if r >= 0 && r < len(nodes) {
			g.Roots = append(g.Roots, r)
		}
	}
	g.dropCycles()
	for i := range g.Nodes {
		for _, c := range g.Nodes[i].Children {
			g.Nodes[c].Parents = append(g.Nodes[c].Parents, i)
		}
		if g.Nodes[i].Skin != nil {
			g.Skinned = append(g.Skinned, i)
		}
	}
	return g
}

func (g *Graph) dropCycles() {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(g.Nodes))
	var visit func(i int)
	visit = func(i int) {
		color[i] = gray
		kept := g.Nodes[i].Children[:0]
		for _, c := range g.Nodes[i].Children {
			if c < 0 || c >= len(g.Nodes) || color[c] == gray {
				continue
			}
			kept = append(kept, c)
			if color[c] == white {
				visit(c)
			}
		}
		g.Nodes[i].Children = kept
		color[i] = black
	}
	for i := range g.Nodes {
		if color[i] == white {
			visit(i)
		}
	}
}

// MarkDirty stamps node i with the current dirty number so the next
// Propagate recomputes it and its descendants.
func (g *Graph) MarkDirty(i int) {
	g.Nodes[i].DirtyNumber = g.MaxDirtyNumber
}

// SetTranslation writes a node translation.
func (g *Graph) SetTranslation(i int, t math.Vec3) {
	g.Nodes[i].Translation = t
	g.MarkDirty(i)
}

// SetRotation writes a node rotation.
func (g *Graph) SetRotation(i int, r math.Quat) {
	g.Nodes[i].Rotation = r
	g.MarkDirty(i)
}

// SetScale writes a node scale.
func (g *Graph) SetScale(i int, s math.Vec3) {
	g.Nodes[i].Scale = s
	g.MarkDirty(i)
}

// SetWeights writes morph target weights.
func (g *Graph) SetWeights(i int, w []float32) {
	g.Nodes[i].Weights = append(g.Nodes[i].Weights[:0], w...)
	g.MarkDirty(i)
}

// SetMatrix replaces the local transform with a matrix.
func (g *Graph) SetMatrix(i int, m math.Mat4) {
	g.Nodes[i].HasMatrix = true
	g.Nodes[i].Matrix = m
	g.MarkDirty(i)
}

// SetPublicMatrix overrides a node's transform from outside the asset.
func (g *Graph) SetPublicMatrix(i int, m math.Mat4) {
	g.Nodes[i].PublicMatrix = m
	g.Nodes[i].UsePublicMatrix = true
	g.MarkDirty(i)
}

// ClearPublicMatrix restores the asset transform.
func (g *Graph) ClearPublicMatrix(i int) {
	g.Nodes[i].UsePublicMatrix = false
	g.MarkDirty(i)
}

// Propagate recomputes transforms from every root with a depth-first walk.
// A node's world matrix is refreshed when it is dirty, when the model
// matrix changed or when force is set (first frame after loading); visit is
// called for each refreshed node. Children inherit the highest dirty number
// of any parent reached in this pass, so a node under several parents is
// recomputed when any of them moved. MaxDirtyNumber advances afterwards.
func (g *Graph) Propagate(modelMatrix math.Mat4, modelChanged, force bool, visit func(i int, n *Node)) {
	maxDirty := g.MaxDirtyNumber
	stack := make([]int, 0, len(g.Nodes))
	for _, r := range g.Roots {
		root := &g.Nodes[r]
		root.TransformToRoot = root.LocalMatrix()
		stack = append(stack, r)

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			n := &g.Nodes[i]

			if n.DirtyNumber == maxDirty || modelChanged || force {
				n.Computed = modelMatrix.MulTransformation(n.TransformToRoot)
				if visit != nil {
					visit(i, n)
				}
			}
			for _, c := range n.Children {
				child := &g.Nodes[c]
				if n.DirtyNumber > child.DirtyNumber {
					child.DirtyNumber = n.DirtyNumber
				}
				if child.DirtyNumber == maxDirty || force {
					child.TransformToRoot = n.TransformToRoot.MulTransformation(child.LocalMatrix())
				}
				stack = append(stack, c)
			}
		}
	}
	g.MaxDirtyNumber++
}

// ApplySkins recomputes joint matrices of every skinned node:
// inverse(node to root) * joint to root * inverse bind matrix [* bind shape].
// It must run after Propagate.
func (g *Graph) ApplySkins() {
	for _, i := range g.Skinned {
		n := &g.Nodes[i]
		skin := n.Skin
		objectSpace := n.TransformToRoot.InverseTransformation()
		if len(skin.JointMatrices) != len(skin.Joints) {
			skin.JointMatrices = make([]math.Mat4, len(skin.Joints))
		}
		for j, joint := range skin.Joints {
			m := objectSpace.MulTransformation(g.Nodes[joint].TransformToRoot)
			if j < len(skin.InverseBindMatrices) {
				m = m.MulTransformation(skin.InverseBindMatrices[j])
			}
			if skin.BindShapeMatrix != nil {
				m = m.MulTransformation(*skin.BindShapeMatrix)
			}
			skin.JointMatrices[j] = m
		}
	}
}
