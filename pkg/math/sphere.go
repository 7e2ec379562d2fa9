package math

// Sphere is a bounding sphere.
type Sphere struct {
	Center Vec3
	Radius float32
}

// SphereFromCornerPoints returns the sphere enclosing the box [min, max].
func SphereFromCornerPoints(min, max Vec3) Sphere {
	center := min.Add(max).Scale(0.5)
	return Sphere{Center: center, Radius: center.Distance(max)}
}

// Transform moves the sphere by m, growing the radius by the largest axis scale.
func (s Sphere) Transform(m Mat4) Sphere {
	return Sphere{
		Center: m.TransformVec3(s.Center),
		Radius: s.Radius * m.MaxScale(),
	}
}

// Union returns the smallest sphere enclosing both.
func (s Sphere) Union(o Sphere) Sphere {
	if s.Radius == 0 && s.Center == (Vec3{}) {
		return o
	}
	d := o.Center.Sub(s.Center)
	dist := d.Length()
	if dist+o.Radius <= s.Radius {
		return s
	}
	if dist+s.Radius <= o.Radius {
		return o
	}
	radius := (dist + s.Radius + o.Radius) / 2
	center := s.Center.Add(d.Scale((radius - s.Radius) / dist))
	return Sphere{Center: center, Radius: radius}
}
