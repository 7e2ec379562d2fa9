package math

import "testing"

func TestSphereFromCornerPoints(t *testing.T) {
	s := SphereFromCornerPoints(Vec3{-1, -1, -1}, Vec3{1, 3, 1})

	if s.Center != (Vec3{0, 1, 0}) {
		t.Errorf("center: got %v, want (0,1,0)", s.Center)
	}
	want := Vec3{1, 2, 1}.Length()
	if abs(s.Radius-want) > 1e-5 {
		t.Errorf("radius: got %f, want %f", s.Radius, want)
	}
}

func TestSphereTransform(t *testing.T) {
	s := Sphere{Center: Vec3{1, 0, 0}, Radius: 2}
	m := Translate(0, 10, 0).Mul(Scale(3, 1, 1))

	got := s.Transform(m)
	if got.Center.Distance(Vec3{3, 10, 0}) > 1e-5 {
		t.Errorf("center: got %v, want (3,10,0)", got.Center)
	}
	if abs(got.Radius-6) > 1e-5 {
		t.Errorf("radius: got %f, want 6", got.Radius)
	}
}

func TestSphereUnion(t *testing.T) {
	a := Sphere{Center: Vec3{-2, 0, 0}, Radius: 1}
	b := Sphere{Center: Vec3{2, 0, 0}, Radius: 1}

	u := a.Union(b)
	if u.Center.Length() > 1e-5 || abs(u.Radius-3) > 1e-5 {
		t.Errorf("union: got %+v, want center 0 radius 3", u)
	}
	if inner := u.Union(a); inner != u {
		t.Errorf("union with a contained sphere should be unchanged")
	}
}
