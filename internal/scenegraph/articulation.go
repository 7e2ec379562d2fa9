package scenegraph

import (
	"fmt"
	stdmath "math"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// Articulation stage types.
const (
	StageXTranslate   = "xTranslate"
	StageYTranslate   = "yTranslate"
	StageZTranslate   = "zTranslate"
	StageXRotate      = "xRotate"
	StageYRotate      = "yRotate"
	StageZRotate      = "zRotate"
	StageXScale       = "xScale"
	StageYScale       = "yScale"
	StageZScale       = "zScale"
	StageUniformScale = "uniformScale"
)

// Stage is one degree of freedom. Rotations are in degrees.
type Stage struct {
	Name  string
	Type  string
	Min   float32
	Max   float32
	Value float32
}

// Articulation is a named list of stages applied in order.
type Articulation struct {
	Name   string
	Stages []Stage
	dirty  bool
}

// Articulations drives attach-point nodes from stage values.
type Articulations struct {
	byName map[string]*Articulation
	order  []string
	nodes  map[string][]int
}

// NewArticulations indexes arts and the graph's attach points.
func NewArticulations(g *Graph, arts []Articulation) *Articulations {
	a := &Articulations{
		byName: make(map[string]*Articulation, len(arts)),
		nodes:  make(map[string][]int),
	}
	for i := range arts {
		art := arts[i]
		art.Stages = append([]Stage(nil), art.Stages...)
		a.byName[art.Name] = &art
		a.order = append(a.order, art.Name)
	}
	for i, n := range g.Nodes {
		if n.ArticulationName != "" {
			a.nodes[n.ArticulationName] = append(a.nodes[n.ArticulationName], i)
		}
	}
	return a
}

// Len returns the number of articulations.
func (a *Articulations) Len() int { return len(a.order) }

// SetStage sets the value of a stage addressed as "<articulation> <stage>".
// Values are clamped to the stage range.
func (a *Articulations) SetStage(key string, value float32) error {
	for name, art := range a.byName {
		if len(key) <= len(name) || key[:len(name)] != name || key[len(name)] != ' ' {
			continue
		}
		stageName := key[len(name)+1:]
		for i := range art.Stages {
			s := &art.Stages[i]
			if s.Name != stageName {
				continue
			}
			s.Value = clamp(value, s.Min, s.Max)
			art.dirty = true
			return nil
		}
	}
	return fmt.Errorf("scenegraph: no articulation stage %q", key)
}

// Apply rewrites the local matrix of every attach point whose articulation
// changed since the last call.
func (a *Articulations) Apply(g *Graph) {
	for _, name := range a.order {
		art := a.byName[name]
		if !art.dirty {
			continue
		}
		art.dirty = false
		m := art.matrix()
		for _, i := range a.nodes[name] {
			g.SetMatrix(i, g.Nodes[i].baseMatrix.Mul(m))
		}
	}
}

func (art *Articulation) matrix() math.Mat4 {
	m := math.Identity()
	for _, s := range art.Stages {
		v := s.Value
		rad := float32(float64(v) * stdmath.Pi / 180)
		switch s.Type {
		case StageXTranslate:
			m = m.Mul(math.Translate(v, 0, 0))
		case StageYTranslate:
			m = m.Mul(math.Translate(0, v, 0))
		case StageZTranslate:
			m = m.Mul(math.Translate(0, 0, v))
		case StageXRotate:
			m = m.Mul(math.RotateX(rad))
		case StageYRotate:
			m = m.Mul(math.RotateY(rad))
		case StageZRotate:
			m = m.Mul(math.RotateZ(rad))
		case StageXScale:
			m = m.Mul(math.Scale(v, 1, 1))
		case StageYScale:
			m = m.Mul(math.Scale(1, v, 1))
		case StageZScale:
			m = m.Mul(math.Scale(1, 1, v))
		case StageUniformScale:
			m = m.Mul(math.Scale(v, v, v))
		}
	}
	return m
}

func clamp(v, lo, hi float32) float32 {
	if lo > hi {
		return v
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
