package math

import (
	"math"
	"testing"
)

func TestQuatFromArrayOrder(t *testing.T) {
	q := QuatFromArray([4]float32{1, 2, 3, 4})
	if q.X != 1 || q.Y != 2 || q.Z != 3 || q.W != 4 {
		t.Errorf("expected x,y,z,w = 1,2,3,4, got %+v", q)
	}
}

func TestQuatNormalize(t *testing.T) {
	n := Quat{X: 1, Y: 2, Z: 3, W: 4}.Normalize()
	if l := math.Sqrt(float64(n.Dot(n))); math.Abs(l-1) > 1e-4 {
		t.Errorf("normalized length = %v, want 1", l)
	}

	if z := (Quat{}).Normalize(); z != QuatIdentity() {
		t.Errorf("zero quaternion should normalize to identity, got %+v", z)
	}
}

func TestQuatSlerp(t *testing.T) {
	q1 := QuatIdentity()
	q2 := QuatFromAxisAngle(Vec3{Z: 1}, math.Pi/2)

	if r := q1.Slerp(q2, 0); math.Abs(float64(r.W-q1.W)) > 1e-3 {
		t.Errorf("slerp at 0 = %+v, want %+v", r, q1)
	}
	if r := q1.Slerp(q2, 1); math.Abs(float64(r.W-q2.W)) > 1e-3 {
		t.Errorf("slerp at 1 = %+v, want %+v", r, q2)
	}

	half := q1.Slerp(q2, 0.5)
	want := QuatFromAxisAngle(Vec3{Z: 1}, math.Pi/4)
	if math.Abs(float64(half.Dot(want))-1) > 1e-3 {
		t.Errorf("slerp at 0.5 = %+v, want %+v", half, want)
	}
}

func TestQuatSlerpShortestPath(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{Z: 1}, math.Pi/2)
	neg := Quat{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}

	// q and -q are the same rotation; halfway between them is that rotation.
	mid := q.Slerp(neg, 0.5)
	if math.Abs(math.Abs(float64(mid.Dot(q)))-1) > 1e-3 {
		t.Errorf("slerp between q and -q left the rotation: %+v", mid)
	}
}

func TestQuatToMat4MatchesRotate(t *testing.T) {
	if m := QuatIdentity().ToMat4(); !m.Equal(Identity(), 1e-6) {
		t.Errorf("identity quaternion gave %v", m)
	}

	q := QuatFromAxisAngle(Vec3{Z: 1}, math.Pi/2)
	if m := q.ToMat4(); !m.Equal(RotateZ(math.Pi/2), 1e-5) {
		t.Errorf("ToMat4 = %v, want RotateZ(pi/2)", m)
	}

	p := q.ToMat4().TransformVec3(Vec3{X: 1})
	if p.Distance(Vec3{Y: 1}) > 1e-5 {
		t.Errorf("x axis rotated to %+v, want +y", p)
	}
}

func TestQuatMulComposes(t *testing.T) {
	a := QuatFromAxisAngle(Vec3{Z: 1}, math.Pi/4)
	got := a.Mul(a).ToMat4()
	if !got.Equal(RotateZ(math.Pi/2), 1e-5) {
		t.Errorf("two eighth turns = %v, want a quarter turn", got)
	}
}

func TestVec3Lerp(t *testing.T) {
	result := Vec3{}.Lerp(Vec3{10, 20, 30}, 0.5)
	expected := Vec3{5, 10, 15}

	if result.Distance(expected) > 0.001 {
		t.Errorf("Lerp: expected %v, got %v", expected, result)
	}
}
