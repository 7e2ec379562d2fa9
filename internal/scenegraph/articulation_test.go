package scenegraph

import (
	"testing"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

func TestArticulations(t *testing.T) {
	base := trsNode("hatch", math.Vec3{X: 2})
	base.ArticulationName = "Hatch"
	g := New([]Node{base}, []int{0})
	arts := NewArticulations(g, []Articulation{{
		Name: "Hatch",
		Stages: []Stage{
			{Name: "Lift", Type: StageZTranslate, Min: 0, Max: 1},
			{Name: "Grow", Type: StageUniformScale, Min: 1, Max: 3, Value: 1},
		},
	}})
	g.Propagate(math.Identity(), false, true, nil)

	if err := arts.SetStage("Hatch Lift", 5); err != nil {
		t.Fatalf("SetStage: %v", err)
	}
	if err := arts.SetStage("Hatch Grow", 2); err != nil {
		t.Fatalf("SetStage: %v", err)
	}
	if err := arts.SetStage("Hatch Spin", 1); err == nil {
		t.Error("unknown stage should fail")
	}
	arts.Apply(g)
	g.Propagate(math.Identity(), false, false, nil)

	got := g.Nodes[0].Computed
	want := math.Translate(2, 0, 1).Mul(math.Scale(2, 2, 2))
	if !got.Equal(want, eps) {
		t.Errorf("articulated = %v, want %v", got, want)
	}

	// applying again without changes leaves the node clean
	before := g.Nodes[0].DirtyNumber
	arts.Apply(g)
	if g.Nodes[0].DirtyNumber != before {
		t.Error("unchanged articulation should not dirty nodes")
	}
}
