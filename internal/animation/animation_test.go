package animation

import (
	"errors"
	stdmath "math"
	"testing"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

type recorder struct {
	translations map[int]math.Vec3
	rotations    map[int]math.Quat
	weights      map[int][]float32
	writes       int
}

func newRecorder() *recorder {
	return &recorder{
		translations: map[int]math.Vec3{},
		rotations:    map[int]math.Quat{},
		weights:      map[int][]float32{},
	}
}

func (r *recorder) SetTranslation(n int, t math.Vec3) { r.translations[n] = t; r.writes++ }
func (r *recorder) SetRotation(n int, q math.Quat)    { r.rotations[n] = q; r.writes++ }
func (r *recorder) SetScale(int, math.Vec3)           { r.writes++ }
func (r *recorder) SetWeights(n int, w []float32) {
	r.weights[n] = append([]float32(nil), w...)
	r.writes++
}

func near(a, b float32) bool { return stdmath.Abs(float64(a-b)) < 1e-4 }

func TestSamplerInterpolation(t *testing.T) {
	times := []float32{0, 1, 2}
	values := []float32{0, 10, 30}
	tests := []struct {
		interp Interpolation
		at     float32
		want   float32
	}{
		{Linear, -1, 0},
		{Linear, 0.5, 5},
		{Linear, 1.5, 20},
		{Linear, 5, 30},
		{Step, 0.9, 0},
		{Step, 1.0, 10},
		{Step, 1.99, 10},
	}
	for _, tt := range tests {
		s, err := NewSampler(times, values, tt.interp)
		if err != nil {
			t.Fatalf("NewSampler: %v", err)
		}
		out := make([]float32, 1)
		s.Evaluate(tt.at, false, out)
		if !near(out[0], tt.want) {
			t.Errorf("interp %d at %v = %v, want %v", tt.interp, tt.at, out[0], tt.want)
		}
	}
}

func TestSamplerCubicSpline(t *testing.T) {
	// zero tangents: hermite midpoint equals the linear midpoint
	s, err := NewSampler([]float32{0, 1}, []float32{
		0, 0, 0, // in, value, out
		0, 4, 0,
	}, CubicSpline)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	if s.Components() != 1 {
		t.Fatalf("components = %d", s.Components())
	}
	out := make([]float32, 1)
	s.Evaluate(0.5, false, out)
	if !near(out[0], 2) {
		t.Errorf("cubic midpoint = %v", out[0])
	}
	s.Evaluate(1, false, out)
	if out[0] != 4 {
		t.Errorf("cubic end = %v", out[0])
	}
}

func TestSamplerRotationSlerp(t *testing.T) {
	half := float32(stdmath.Sqrt2 / 2)
	s, _ := NewSampler([]float32{0, 1}, []float32{0, 0, 0, 1, 0, 0, half, half}, Linear)
	out := make([]float32, 4)
	s.Evaluate(0.5, true, out)
	q := math.Quat{X: out[0], Y: out[1], Z: out[2], W: out[3]}
	want := math.QuatFromAxisAngle(math.Vec3{Z: 1}, stdmath.Pi/4)
	if !near(q.Z, want.Z) || !near(q.W, want.W) {
		t.Errorf("slerp = %+v, want %+v", q, want)
	}
}

func TestNewSamplerRejectsBadData(t *testing.T) {
	if _, err := NewSampler(nil, nil, Linear); err == nil {
		t.Error("empty sampler should fail")
	}
	if _, err := NewSampler([]float32{0, 1}, []float32{1, 2, 3}, Linear); err == nil {
		t.Error("mismatched value count should fail")
	}
}

func slide(t *testing.T) *Animation {
	t.Helper()
	s, err := NewSampler([]float32{0, 2}, []float32{0, 0, 0, 4, 0, 0}, Linear)
	if err != nil {
		t.Fatal(err)
	}
	a, err := New("slide", []Channel{{Sampler: 0, Node: 7, Path: Translation}}, []*Sampler{s})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestCollectionPlaysOnceAndStops(t *testing.T) {
	rec := newRecorder()
	c := NewCollection([]*Animation{slide(t)}, rec)
	stopped := 0
	if _, err := c.Add(AddOptions{Name: "slide", RemoveOnStop: true, OnStop: func(*Playing) { stopped++ }}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if !c.Update(10) {
		t.Fatal("first update should animate")
	}
	if got := rec.translations[7]; got.X != 0 {
		t.Errorf("t=0 translation = %v", got)
	}
	c.Update(11)
	if got := rec.translations[7]; !near(got.X, 2) {
		t.Errorf("t=1 translation = %v", got)
	}
	if c.Update(13) {
		t.Error("past the end without looping should not animate")
	}
	if stopped != 1 || c.Len() != 0 {
		t.Errorf("stopped=%d scheduled=%d", stopped, c.Len())
	}
}

func TestCollectionLoops(t *testing.T) {
	tests := []struct {
		name    string
		loop    Loop
		reverse bool
		at      float64
		want    float32
	}{
		{"repeat", LoopRepeat, false, 3, 2},
		{"mirrored", LoopMirroredRepeat, false, 3, 2},
		{"mirrored second half", LoopMirroredRepeat, false, 3.5, 1},
		{"reverse", LoopNone, true, 0.5, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			c := NewCollection([]*Animation{slide(t)}, rec)
			start := 0.0
			if _, err := c.Add(AddOptions{Index: 0, Loop: tt.loop, Reverse: tt.reverse, StartTime: &start}); err != nil {
				t.Fatal(err)
			}
			if !c.Update(tt.at) {
				t.Fatal("expected animation")
			}
			if got := rec.translations[7].X; !near(got, tt.want) {
				t.Errorf("x = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCollectionStopTimeAndRemove(t *testing.T) {
	rec := newRecorder()
	c := NewCollection([]*Animation{slide(t)}, rec)
	stop := 1.0
	start := 0.0
	p, _ := c.Add(AddOptions{Index: 0, StartTime: &start, StopTime: &stop})
	if !c.Update(0.5) {
		t.Error("before stop time should animate")
	}
	if c.Update(1.5) || p.State() != Stopped {
		t.Error("after stop time should stop")
	}
	if !c.Remove(p) || c.Remove(p) {
		t.Error("Remove should succeed once")
	}
}

func TestCollectionAddErrors(t *testing.T) {
	c := NewCollection([]*Animation{slide(t)}, newRecorder())
	if _, err := c.Add(AddOptions{Name: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
	if _, err := c.Add(AddOptions{Index: 3}); !errors.Is(err, ErrNotFound) {
		t.Errorf("want ErrNotFound, got %v", err)
	}
	if got := len(c.AddAll(AddOptions{})); got != 1 {
		t.Errorf("AddAll scheduled %d", got)
	}
	c.RemoveAll()
	if c.Len() != 0 {
		t.Error("RemoveAll left animations scheduled")
	}
}

func TestWeightsChannel(t *testing.T) {
	s, _ := NewSampler([]float32{0, 1}, []float32{0, 1, 1, 0}, Linear)
	a, _ := New("morph", []Channel{{Sampler: 0, Node: 1, Path: Weights}}, []*Sampler{s})
	rec := newRecorder()
	a.Animate(0.5, rec)
	w := rec.weights[1]
	if len(w) != 2 || !near(w[0], 0.5) || !near(w[1], 0.5) {
		t.Errorf("weights = %v", w)
	}
}
