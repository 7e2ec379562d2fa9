package scenegraph

import (
	stdmath "math"
	"testing"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

const eps = 1e-5

func trsNode(name string, t math.Vec3, children ...int) Node {
	return Node{
		Name:        name,
		Translation: t,
		Rotation:    math.QuatIdentity(),
		Scale:       math.Vec3{X: 1, Y: 1, Z: 1},
		Children:    children,
		Mesh:        -1,
	}
}

// diamond: root -> a, b; a -> c; b -> c
func diamond() *Graph {
	return New([]Node{
		trsNode("root", math.Vec3{}, 1, 2),
		trsNode("a", math.Vec3{X: 1}, 3),
		trsNode("b", math.Vec3{X: 1}, 3),
		trsNode("c", math.Vec3{Y: 1}),
	}, []int{0})
}

func TestNewDerivesParents(t *testing.T) {
	g := diamond()
	if len(g.Nodes[3].Parents) != 2 {
		t.Errorf("c parents = %v", g.Nodes[3].Parents)
	}
}

func TestNewDropsCycles(t *testing.T) {
	g := New([]Node{
		trsNode("a", math.Vec3{}, 1),
		trsNode("b", math.Vec3{}, 0, 7),
	}, []int{0, 9})
	if len(g.Nodes[1].Children) != 0 {
		t.Errorf("cyclic and dangling children should be dropped, got %v", g.Nodes[1].Children)
	}
	if len(g.Roots) != 1 {
		t.Errorf("out of range root should be dropped, got %v", g.Roots)
	}
}

func TestPropagateFirstPassComputesAll(t *testing.T) {
	g := diamond()
	model := math.Translate(10, 0, 0)
	visited := map[int]int{}
	g.Propagate(model, false, true, func(i int, _ *Node) { visited[i]++ })

	want := math.Translate(11, 1, 0)
	if !g.Nodes[3].Computed.Equal(want, eps) {
		t.Errorf("c world = %v, want %v", g.Nodes[3].Computed, want)
	}
	if visited[3] != 2 {
		t.Errorf("c should be visited once per parent path, got %d", visited[3])
	}
	if g.MaxDirtyNumber != 1 {
		t.Errorf("MaxDirtyNumber = %d", g.MaxDirtyNumber)
	}
}

func TestPropagateSkipsCleanNodes(t *testing.T) {
	g := diamond()
	g.Propagate(math.Identity(), false, true, nil)

	visited := map[int]bool{}
	g.Propagate(math.Identity(), false, false, func(i int, _ *Node) { visited[i] = true })
	if len(visited) != 0 {
		t.Errorf("nothing changed, visited %v", visited)
	}

	g.Propagate(math.Translate(0, 0, 5), true, false, func(i int, _ *Node) { visited[i] = true })
	if len(visited) != 4 {
		t.Errorf("model matrix change must refresh every node, visited %v", visited)
	}
	if !g.Nodes[3].Computed.Equal(math.Translate(1, 1, 5), eps) {
		t.Errorf("c world = %v", g.Nodes[3].Computed)
	}
}

func TestPropagateMultiParentDirtyInheritance(t *testing.T) {
	g := diamond()
	g.Propagate(math.Identity(), false, true, nil)

	// Move both parents to the same place; c must follow whichever path is
	// walked last, and both paths now agree.
	g.SetTranslation(1, math.Vec3{X: 4})
	g.SetTranslation(2, math.Vec3{X: 4})
	visited := map[int]bool{}
	g.Propagate(math.Identity(), false, false, func(i int, _ *Node) { visited[i] = true })

	if visited[0] {
		t.Error("root is clean and must not be refreshed")
	}
	if !visited[3] {
		t.Fatal("c inherits its parents' dirty number and must be refreshed")
	}
	for _, p := range g.Nodes[3].Parents {
		want := g.Nodes[p].Computed.MulTransformation(g.Nodes[3].LocalMatrix())
		if !g.Nodes[3].Computed.Equal(want, eps) {
			t.Errorf("c world %v != parent %d path %v", g.Nodes[3].Computed, p, want)
		}
	}
}

func TestPropagateOneParentChanged(t *testing.T) {
	g := diamond()
	g.Propagate(math.Identity(), false, true, nil)

	g.SetTranslation(2, math.Vec3{X: 3})
	visited := map[int]bool{}
	g.Propagate(math.Identity(), false, false, func(i int, _ *Node) { visited[i] = true })
	if !visited[3] || visited[1] {
		t.Errorf("visited %v; want b and c only", visited)
	}
	if g.Nodes[3].DirtyNumber > g.MaxDirtyNumber {
		t.Errorf("dirty number %d ahead of frame counter %d", g.Nodes[3].DirtyNumber, g.MaxDirtyNumber)
	}
}

func TestPublicMatrixOverride(t *testing.T) {
	g := diamond()
	g.Propagate(math.Identity(), false, true, nil)
	g.SetPublicMatrix(3, math.Translate(0, 0, 9))
	g.Propagate(math.Identity(), false, false, nil)
	if got := g.Nodes[3].Computed.Translation(); got.Z != 9 || got.Y != 0 {
		t.Errorf("public matrix ignored: %v", got)
	}
	g.ClearPublicMatrix(3)
	g.Propagate(math.Identity(), false, false, nil)
	if got := g.Nodes[3].Computed.Translation(); got.Y != 1 {
		t.Errorf("clear did not restore TRS: %v", got)
	}
}

func TestApplySkinsTwoBone(t *testing.T) {
	s := float32(stdmath.Sqrt2 / 2)
	mesh := trsNode("mesh", math.Vec3{X: 5})
	joint0 := trsNode("joint0", math.Vec3{}, 2)
	joint1 := trsNode("joint1", math.Vec3{Y: 1})
	joint1.Rotation = math.Quat{Z: s, W: s}
	ibm1 := math.Translate(0, -1, 0)
	mesh.Skin = &Skin{
		Joints:              []int{1, 2},
		InverseBindMatrices: []math.Mat4{math.Identity(), ibm1},
	}
	g := New([]Node{mesh, joint0, joint1}, []int{0, 1})

	g.Propagate(math.Identity(), false, true, nil)
	g.ApplySkins()

	jm := g.Nodes[0].Skin.JointMatrices
	if len(jm) != 2 {
		t.Fatalf("joint matrices = %d", len(jm))
	}
	if !jm[0].Equal(math.Translate(-5, 0, 0), eps) {
		t.Errorf("joint0 = %v", jm[0])
	}
	// T(-5) * T(0,1,0) * Rz(90) * T(0,-1,0)
	want := math.Translate(-5, 0, 0).Mul(math.Translate(0, 1, 0)).Mul(math.RotateZ(stdmath.Pi / 2)).Mul(ibm1)
	if !jm[1].Equal(want, eps) {
		t.Errorf("joint1 = %v, want %v", jm[1], want)
	}
	// the rest-pose vertex at (0,1,0) bound to joint1 stays put in joint space
	p := jm[1].TransformVec3(math.Vec3{Y: 1})
	if abs(p.X+5) > eps || abs(p.Y-1) > eps {
		t.Errorf("skinned vertex = %v", p)
	}
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
