// Package animation plays glTF keyframe animations onto a node hierarchy.
package animation

import (
	"fmt"
	"sort"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// Interpolation is a sampler interpolation mode.
type Interpolation int

const (
	Linear Interpolation = iota
	Step
	CubicSpline
)

// ParseInterpolation maps the glTF name to an Interpolation.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", "LINEAR":
		return Linear, nil
	case "STEP":
		return Step, nil
	case "CUBICSPLINE":
		return CubicSpline, nil
	default:
		return Linear, fmt.Errorf("animation: unknown interpolation %q", s)
	}
}

// Path is the node property a channel writes.
type Path int

const (
	Translation Path = iota
	Rotation
	Scale
	Weights
)

// ParsePath maps the glTF target path to a Path.
func ParsePath(s string) (Path, error) {
	switch s {
	case "translation":
		return Translation, nil
	case "rotation":
		return Rotation, nil
	case "scale":
		return Scale, nil
	case "weights":
		return Weights, nil
	default:
		return Translation, fmt.Errorf("animation: unknown path %q", s)
	}
}

// Sampler holds keyframes. For CubicSpline each keyframe stores an in
// tangent, the value and an out tangent.
type Sampler struct {
	Times         []float32
	Values        []float32
	Interpolation Interpolation
	components    int
}

// NewSampler validates keyframe data and derives the component count.
func NewSampler(times, values []float32, interp Interpolation) (*Sampler, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("animation: sampler without keyframes")
	}
	perKey := 1
	if interp == CubicSpline {
		perKey = 3
	}
	if len(values)%(len(times)*perKey) != 0 {
		return nil, fmt.Errorf("animation: %d values do not divide into %d keyframes", len(values), len(times))
	}
	return &Sampler{
		Times:         times,
		Values:        values,
		Interpolation: interp,
		components:    len(values) / (len(times) * perKey),
	}, nil
}

// Components returns the number of floats per value.
func (s *Sampler) Components() int { return s.components }

func (s *Sampler) value(k int) []float32 {
	n := s.components
	if s.Interpolation == CubicSpline {
		return s.Values[(3*k+1)*n : (3*k+2)*n]
	}
	return s.Values[k*n : (k+1)*n]
}

// Evaluate writes the value at time t into out (len Components). Rotation
// samplers are slerped and normalized.
func (s *Sampler) Evaluate(t float32, rotation bool, out []float32) {
	last := len(s.Times) - 1
	if t <= s.Times[0] || last == 0 {
		copy(out, s.value(0))
		return
	}
	if t >= s.Times[last] {
		copy(out, s.value(last))
		return
	}
	k := sort.Search(len(s.Times), func(i int) bool { return s.Times[i] > t }) - 1
	t0, t1 := s.Times[k], s.Times[k+1]
	dt := t1 - t0
	u := (t - t0) / dt

	switch s.Interpolation {
	case Step:
		copy(out, s.value(k))
	case CubicSpline:
		n := s.components
		u2, u3 := u*u, u*u*u
		h00 := 2*u3 - 3*u2 + 1
		h10 := u3 - 2*u2 + u
		h01 := -2*u3 + 3*u2
		h11 := u3 - u2
		p0 := s.value(k)
		p1 := s.value(k + 1)
		m0 := s.Values[(3*k+2)*n : (3*k+3)*n]
		m1 := s.Values[(3*(k+1))*n : (3*(k+1)+1)*n]
		for i := 0; i < n; i++ {
			out[i] = h00*p0[i] + h10*dt*m0[i] + h01*p1[i] + h11*dt*m1[i]
		}
		if rotation && n == 4 {
			q := math.QuatFromArray([4]float32(out[:4])).Normalize()
			out[0], out[1], out[2], out[3] = q.X, q.Y, q.Z, q.W
		}
	default:
		a, b := s.value(k), s.value(k+1)
		if rotation && s.components == 4 {
			q := math.QuatFromArray([4]float32(a)).Slerp(math.QuatFromArray([4]float32(b)), u)
			out[0], out[1], out[2], out[3] = q.X, q.Y, q.Z, q.W
			return
		}
		for i := range out[:s.components] {
			out[i] = a[i] + (b[i]-a[i])*u
		}
	}
}
